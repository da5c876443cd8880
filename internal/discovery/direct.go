package discovery

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// directAdapter serves libraries whose image URLs are fully predictable
// from (identifier, page index) once the total page count is known. One
// lightweight metadata call resolves the count; the page list is generated
// arithmetically with no further fetches.
type directAdapter struct {
	cfg     *LibraryConfig
	idRe    *regexp.Regexp
	countRe *regexp.Regexp
}

func newDirectAdapter(cfg *LibraryConfig) (*directAdapter, error) {
	if cfg.IDPattern == "" || cfg.InfoTemplate == "" || cfg.CountPattern == "" || cfg.ImageTemplate == "" {
		return nil, fmt.Errorf("direct shape requires id_pattern, info_template, count_pattern and image_template")
	}

	a := &directAdapter{cfg: cfg}
	var err error
	if a.idRe, err = regexp.Compile(cfg.IDPattern); err != nil {
		return nil, fmt.Errorf("invalid id_pattern: %w", err)
	}
	if a.countRe, err = regexp.Compile(cfg.CountPattern); err != nil {
		return nil, fmt.Errorf("invalid count_pattern: %w", err)
	}
	return a, nil
}

func (a *directAdapter) ID() AdapterID {
	return a.cfg.ID
}

func (a *directAdapter) Resolve(ctx context.Context, viewerURL string, f fetch.Fetcher) (*RawResult, error) {
	m := a.idRe.FindStringSubmatch(viewerURL)
	if len(m) < 2 {
		return nil, &Error{
			Kind:    KindLibraryNotSupported,
			Library: a.cfg.ID,
			URL:     viewerURL,
			Hint:    "open a single manuscript in the viewer and copy that URL",
		}
	}
	id := m[1]

	infoURL := expand(a.cfg.InfoTemplate, map[string]string{"id": id})
	resp, err := f.Fetch(ctx, libRequest(a.cfg, "", infoURL))
	if err != nil {
		return nil, errUnavailable(a.cfg.ID, infoURL, err)
	}
	if !resp.OK() {
		return nil, errUnavailable(a.cfg.ID, infoURL, fmt.Errorf("metadata request returned status %d", resp.Status))
	}

	count := a.pageCount(resp.Body)
	if count <= 0 {
		return nil, errEmpty(a.cfg.ID, infoURL)
	}

	pages := make([]Page, 0, count)
	for n := 1; n <= count; n++ {
		pages = append(pages, Page{
			ImageURL: a.pageURL(id, n),
			Label:    fmt.Sprintf("Page %d", n),
		})
	}

	// Spot-check the generated pattern before handing the list on. A
	// wrong template would otherwise surface as hundreds of 404s in the
	// download stage.
	if err := a.sampleProbe(ctx, f, pages, count); err != nil {
		return nil, err
	}

	return &RawResult{
		DisplayName:   id,
		Pages:         pages,
		DeclaredCount: count,
	}, nil
}

func (a *directAdapter) pageCount(body []byte) int {
	m := a.countRe.FindSubmatch(body)
	if len(m) < 2 {
		return 0
	}
	count, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return count
}

func (a *directAdapter) pageURL(id string, n int) string {
	page := strconv.Itoa(n)
	if a.cfg.PadWidth > 0 {
		page = fmt.Sprintf("%0*d", a.cfg.PadWidth, n)
	}
	return expand(a.cfg.ImageTemplate, map[string]string{"id": id, "page": page})
}

// sampleProbe probes the first and last generated URLs concurrently. If
// every sample is a 404 the template or count is wrong: that is a
// PageCountMismatch, not something to retry page by page. Probe transport
// errors are tolerated; the download stage re-reports them per page.
func (a *directAdapter) sampleProbe(ctx context.Context, f fetch.Fetcher, pages []Page, count int) error {
	samples := []string{pages[0].ImageURL}
	if count > 1 {
		samples = append(samples, pages[count-1].ImageURL)
	}

	statuses, err := probeStatuses(ctx, f, a.cfg, samples)
	if err != nil {
		if ctx.Err() != nil {
			return errCancelled(a.cfg.ID)
		}
		return nil
	}

	all404 := true
	for _, status := range statuses {
		if status != http.StatusNotFound {
			all404 = false
			break
		}
	}
	if all404 {
		return NewPageCountMismatch(a.cfg.ID, samples[0], 0, count)
	}
	return nil
}
