// Package assemble downloads resolved page images and merges them into a PDF.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/evb0110/mss-downloader-sub014/internal/discovery"
	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
	"github.com/evb0110/mss-downloader-sub014/internal/home"
)

// DefaultConcurrency bounds parallel page downloads per manuscript.
const DefaultConcurrency = 5

// Request contains the parameters for downloading one manuscript.
type Request struct {
	Manifest    *discovery.Manifest
	OutputPath  string       // Destination PDF path; derived from DisplayName if empty.
	OutputDir   string       // Directory for the derived path. Defaults to ".".
	Concurrency int          // Parallel page downloads. Defaults to DefaultConcurrency.
	KeepStaging bool         // Leave the staged page images on disk after assembly.
	Logger      *slog.Logger // Optional logger for progress updates.
}

// Result describes a completed download.
type Result struct {
	OutputPath string
	PageCount  int
	Elapsed    time.Duration
}

// Downloader fetches page images into the staging area and assembles PDFs.
type Downloader struct {
	home    *home.Dir
	fetcher fetch.Fetcher
}

// NewDownloader creates a Downloader that stages files under homeDir.
func NewDownloader(homeDir *home.Dir, fetcher fetch.Fetcher) *Downloader {
	return &Downloader{home: homeDir, fetcher: fetcher}
}

// Download fetches every page in the manifest and merges the images into a
// single PDF. Pages that come back 404 mean the resolved list promised more
// than the server holds, which is reported as a page count mismatch.
func (d *Downloader) Download(ctx context.Context, req Request) (*Result, error) {
	m := req.Manifest
	if m == nil || len(m.Pages) == 0 {
		return nil, fmt.Errorf("nothing to download")
	}

	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	id := uuid.New().String()
	if err := d.home.EnsureDownloadDir(id); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	if !req.KeepStaging {
		defer d.home.CleanupDownloadDir(id)
	}

	start := time.Now()
	log.Info("downloading pages", "library", m.Library, "pages", len(m.Pages))

	files, missing, err := d.downloadPages(ctx, id, m, req.Concurrency, log)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		found := len(m.Pages) - len(missing)
		return nil, discovery.NewPageCountMismatch(m.Library, m.Pages[missing[0]].ImageURL, found, len(m.Pages))
	}

	outPath := req.OutputPath
	if outPath == "" {
		dir := req.OutputDir
		if dir == "" {
			dir = "."
		}
		outPath = filepath.Join(dir, safeFilename(m.DisplayName)+".pdf")
	}

	if err := assemblePDF(files, outPath); err != nil {
		return nil, err
	}

	res := &Result{
		OutputPath: outPath,
		PageCount:  len(files),
		Elapsed:    time.Since(start),
	}
	log.Info("download complete", "output", outPath, "pages", res.PageCount, "elapsed", res.Elapsed)
	return res, nil
}

// downloadPages fetches all page images into the staging directory.
// It returns the staged file paths in page order, plus the indices of
// pages the server reported as not found.
func (d *Downloader) downloadPages(ctx context.Context, id string, m *discovery.Manifest, concurrency int, log *slog.Logger) ([]string, []int, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = slog.Default()
	}

	var mu sync.Mutex
	var missing []int
	files := make([]string, len(m.Pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, page := range m.Pages {
		g.Go(func() error {
			path := d.home.PagePath(id, page.Index)
			resp, err := d.fetcher.Fetch(ctx, &fetch.Request{Method: "GET", URL: page.ImageURL})
			if err != nil {
				return fmt.Errorf("fetching page %d: %w", page.Index, err)
			}
			if resp.Status == 404 {
				log.Warn("page not found", "index", page.Index, "url", page.ImageURL)
				mu.Lock()
				missing = append(missing, page.Index)
				mu.Unlock()
				return nil
			}
			if !resp.OK() {
				return fmt.Errorf("fetching page %d: status %d", page.Index, resp.Status)
			}
			if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
				return fmt.Errorf("writing page %d: %w", page.Index, err)
			}
			files[page.Index] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Ints(missing)
	staged := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			staged = append(staged, f)
		}
	}
	return staged, missing, nil
}

// assemblePDF merges the staged images into outPath and verifies the
// resulting document holds one page per image.
func assemblePDF(imgFiles []string, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := api.ImportImagesFile(imgFiles, outPath, nil, nil); err != nil {
		return fmt.Errorf("failed to assemble PDF: %w", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return fmt.Errorf("failed to open assembled PDF: %w", err)
	}
	defer f.Close()
	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		return fmt.Errorf("failed to get page count for %s: %w", outPath, err)
	}
	if pageCount != len(imgFiles) {
		return fmt.Errorf("assembled PDF has %d pages, expected %d", pageCount, len(imgFiles))
	}
	return nil
}

// safeFilename turns a manuscript display name into a filesystem-safe stem.
func safeFilename(name string) string {
	if name == "" {
		return "manuscript"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '-' || r == '_' || r == '.':
			out = append(out, r)
		case r == ' ' || r == ',' || r == '/':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "manuscript"
	}
	return string(out)
}
