package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// Service is the exposed entry point of the discovery layer: classify a
// URL, run the matching adapter, normalize the result.
type Service struct {
	classifier *Classifier
	registry   *Registry
	logger     *slog.Logger
	newFetcher func() (fetch.Fetcher, error)
}

// Options configures a Service.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// UserAgent overrides the default request User-Agent.
	UserAgent string

	// Timeouts overrides per-library request timeouts in seconds,
	// keyed by adapter id or alias.
	Timeouts map[string]int

	// NewFetcher overrides per-resolution fetcher construction. Tests
	// inject scripted fetchers here. The production fetcher is a fresh
	// client (resolution-scoped cookie jar) wrapped in the shared retry
	// policy.
	NewFetcher func() (fetch.Fetcher, error)
}

// NewService loads the library table and builds the classifier and adapter
// registry.
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	libs, err := LoadLibraries()
	if err != nil {
		return nil, err
	}
	applyTimeouts(libs, opts.Timeouts)
	classifier, err := NewClassifier(libs)
	if err != nil {
		return nil, err
	}
	registry, err := NewRegistry(libs, logger)
	if err != nil {
		return nil, err
	}

	newFetcher := opts.NewFetcher
	if newFetcher == nil {
		userAgent := opts.UserAgent
		newFetcher = func() (fetch.Fetcher, error) {
			client, err := fetch.NewClient(fetch.WithUserAgent(userAgent))
			if err != nil {
				return nil, err
			}
			return fetch.NewRetrying(client, fetch.DefaultAttempts, fetch.DefaultRetryDelay), nil
		}
	}

	return &Service{
		classifier: classifier,
		registry:   registry,
		logger:     logger,
		newFetcher: newFetcher,
	}, nil
}

// applyTimeouts rewrites per-library timeouts from override keys that may
// be canonical ids or aliases.
func applyTimeouts(libs []LibraryConfig, overrides map[string]int) {
	if len(overrides) == 0 {
		return
	}
	for i := range libs {
		lib := &libs[i]
		if secs, ok := overrides[string(lib.ID)]; ok && secs > 0 {
			lib.TimeoutSeconds = secs
			continue
		}
		for _, alias := range lib.Aliases {
			if secs, ok := overrides[alias]; ok && secs > 0 {
				lib.TimeoutSeconds = secs
				break
			}
		}
	}
}

// Classify returns the canonical adapter for a URL without any I/O.
// Usable independently for UI validation before a full resolution.
func (s *Service) Classify(url string) (AdapterID, bool) {
	return s.classifier.Classify(url)
}

// Canonical resolves an adapter id or alias spelling to its canonical form.
func (s *Service) Canonical(id string) (AdapterID, bool) {
	return s.classifier.Canonical(id)
}

// Libraries returns the library table entries.
func (s *Service) Libraries() []LibraryConfig {
	return s.registry.Configs()
}

// Resolve turns a manuscript viewer URL into a normalized manifest. Every
// failure is a typed *Error; cancellation surfaces as KindCancelled.
func (s *Service) Resolve(ctx context.Context, url string) (*Manifest, error) {
	id, ok := s.classifier.Classify(url)
	if !ok {
		return nil, errNotSupported(url)
	}

	adapter, err := s.registry.Get(id)
	if err != nil {
		// Classifier and registry are built from the same table, so
		// this is unreachable short of a programming error.
		return nil, errUnavailable(id, url, err)
	}

	fetcher, err := s.newFetcher()
	if err != nil {
		return nil, errUnavailable(id, url, err)
	}

	resID := uuid.NewString()[:8]
	logger := s.logger.With("resolution", resID, "library", id)
	logger.Info("resolving manuscript", "url", url)
	start := time.Now()

	raw, err := adapter.Resolve(ctx, url, fetcher)
	if err != nil {
		if ctx.Err() != nil && !IsKind(err, KindCancelled) {
			err = errCancelled(id)
		}
		if IsKind(err, KindCancelled) {
			logger.Info("resolution cancelled")
		} else {
			logger.Warn("resolution failed", "kind", KindOf(err), "error", err)
		}
		return nil, err
	}

	manifest, err := Normalize(id, raw)
	if err != nil {
		logger.Warn("normalization rejected manifest", "kind", KindOf(err), "error", err)
		return nil, err
	}

	logger.Info("manuscript resolved",
		"title", manifest.DisplayName,
		"pages", manifest.TotalPages,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return manifest, nil
}
