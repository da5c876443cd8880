package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// Adapter is a stateless strategy for one library platform. Implementations
// hold only their LibraryConfig; all I/O goes through the injected Fetcher,
// and no state survives a Resolve call.
type Adapter interface {
	// ID returns the canonical adapter identifier.
	ID() AdapterID

	// Resolve fetches the library's native metadata for the viewer URL
	// and returns the raw page list. Every failure is a typed *Error
	// carrying the most specific Kind the adapter can determine.
	Resolve(ctx context.Context, url string, f fetch.Fetcher) (*RawResult, error)
}

// Registry holds the adapter instances built from the library table.
// Thread-safe; adapters themselves are stateless and shared.
type Registry struct {
	mu       sync.RWMutex
	adapters map[AdapterID]Adapter
	configs  []LibraryConfig
	logger   *slog.Logger
}

// NewRegistry builds one adapter per library table entry. An entry whose
// shape cannot be constructed is a startup error, so a misconfigured
// library can never surface as a runtime dispatch miss.
func NewRegistry(libs []LibraryConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		adapters: make(map[AdapterID]Adapter, len(libs)),
		configs:  libs,
		logger:   logger,
	}

	for i := range libs {
		adapter, err := buildAdapter(&libs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter %s: %w", libs[i].ID, err)
		}
		r.adapters[libs[i].ID] = adapter
	}

	logger.Info("adapter registry built", "adapters", len(r.adapters))
	return r, nil
}

// buildAdapter constructs the shape implementation for one library entry.
func buildAdapter(cfg *LibraryConfig) (Adapter, error) {
	switch cfg.Shape {
	case ShapeIIIF:
		return newIIIFAdapter(cfg)
	case ShapeContentDM:
		return newContentDMAdapter(cfg)
	case ShapePaginatedHTML:
		return newPaginatedAdapter(cfg)
	case ShapeDirect:
		return newDirectAdapter(cfg)
	default:
		return nil, fmt.Errorf("unknown adapter shape %q", cfg.Shape)
	}
}

// Get returns the adapter for a canonical ID.
func (r *Registry) Get(id AdapterID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("adapter not found: %s", id)
	}
	return adapter, nil
}

// Has reports whether an adapter is registered for the ID.
func (r *Registry) Has(id AdapterID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[id]
	return ok
}

// Configs returns the library table entries in declaration order.
func (r *Registry) Configs() []LibraryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs
}
