package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// probeConcurrency bounds parallel probe requests within one resolution.
// Legacy library servers are fragile; five matches what they tolerate.
const probeConcurrency = 5

// defaultSizeLadder is the descending width ladder used when a library
// doesn't configure its own. Servers that cap request width answer 403
// above the cap, so the negotiator walks down until one succeeds.
var defaultSizeLadder = []string{"max", "4000", "3000", "2000", "1000"}

// errAllForbidden signals that every ladder step was refused with 403,
// which on some CONTENTdm deployments means a session cookie is required.
var errAllForbidden = errors.New("all probed sizes were forbidden")

// negotiateSize returns the first ladder entry the server accepts for the
// probe URL built by build. HEAD is tried first; servers that reject HEAD
// outright are re-probed with GET.
func negotiateSize(ctx context.Context, f fetch.Fetcher, cfg *LibraryConfig, build func(size string) string, ladder []string) (string, error) {
	if len(ladder) == 0 {
		ladder = defaultSizeLadder
	}

	sawForbidden := false
	for _, size := range ladder {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		status, err := probeOnce(ctx, f, cfg, build(size))
		if err != nil {
			return "", err
		}

		switch {
		case status >= 200 && status < 300:
			return size, nil
		case status == http.StatusForbidden:
			sawForbidden = true
		}
	}

	if sawForbidden {
		return "", errAllForbidden
	}
	return "", fmt.Errorf("no size in ladder %v accepted", ladder)
}

// probeOnce issues a HEAD probe, falling back to GET when the server does
// not implement HEAD.
func probeOnce(ctx context.Context, f fetch.Fetcher, cfg *LibraryConfig, url string) (int, error) {
	resp, err := f.Fetch(ctx, libRequest(cfg, http.MethodHead, url))
	if err != nil {
		return 0, err
	}
	if resp.Status == http.StatusMethodNotAllowed || resp.Status == http.StatusNotImplemented {
		resp, err = f.Fetch(ctx, libRequest(cfg, http.MethodGet, url))
		if err != nil {
			return 0, err
		}
	}
	return resp.Status, nil
}

// probeStatuses probes several candidate URLs concurrently with bounded
// workers and returns their statuses in input order.
func probeStatuses(ctx context.Context, f fetch.Fetcher, cfg *LibraryConfig, urls []string) ([]int, error) {
	statuses := make([]int, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, url := range urls {
		g.Go(func() error {
			status, err := probeOnce(ctx, f, cfg, url)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}
