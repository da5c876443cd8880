package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// defaultMaxPages is the hard pagination cap when a library configures
// none. Discovery must terminate even against malformed listings.
const defaultMaxPages = 2000

// paginatedAdapter walks thumbnail/listing HTML pages, following "next"
// links until exhausted, extracting image identifiers by pattern.
//
// Termination is guaranteed three ways: absence of a next link, a next
// token already visited (self-referential and cyclic pagination both hit
// this), and the hard step cap.
type paginatedAdapter struct {
	cfg     *LibraryConfig
	idRe    *regexp.Regexp
	itemRe  *regexp.Regexp
	nextRe  *regexp.Regexp
	countRe *regexp.Regexp
}

func newPaginatedAdapter(cfg *LibraryConfig) (*paginatedAdapter, error) {
	a := &paginatedAdapter{cfg: cfg}
	if cfg.ItemPattern == "" {
		return nil, fmt.Errorf("paginated shape requires item_pattern")
	}

	var err error
	if a.itemRe, err = regexp.Compile(cfg.ItemPattern); err != nil {
		return nil, fmt.Errorf("invalid item_pattern: %w", err)
	}
	if cfg.NextPattern != "" {
		if a.nextRe, err = regexp.Compile(cfg.NextPattern); err != nil {
			return nil, fmt.Errorf("invalid next_pattern: %w", err)
		}
	}
	if cfg.CountPattern != "" {
		if a.countRe, err = regexp.Compile(cfg.CountPattern); err != nil {
			return nil, fmt.Errorf("invalid count_pattern: %w", err)
		}
	}
	if cfg.IDPattern != "" {
		if a.idRe, err = regexp.Compile(cfg.IDPattern); err != nil {
			return nil, fmt.Errorf("invalid id_pattern: %w", err)
		}
	}
	return a, nil
}

func (a *paginatedAdapter) ID() AdapterID {
	return a.cfg.ID
}

// discoveryState tracks one pagination walk. It lives for a single Resolve
// call and exists to make termination provable.
type discoveryState struct {
	visited map[string]bool
	items   []string
	cursor  string
}

func (a *paginatedAdapter) Resolve(ctx context.Context, viewerURL string, f fetch.Fetcher) (*RawResult, error) {
	start := viewerURL
	if a.cfg.ListTemplate != "" && a.idRe != nil {
		m := a.idRe.FindStringSubmatch(viewerURL)
		if len(m) < 2 {
			return nil, &Error{Kind: KindLibraryNotSupported, Library: a.cfg.ID, URL: viewerURL}
		}
		start = expand(a.cfg.ListTemplate, map[string]string{"id": m[1]})
	}

	maxSteps := a.cfg.MaxPages
	if maxSteps <= 0 {
		maxSteps = defaultMaxPages
	}

	st := &discoveryState{
		visited: make(map[string]bool),
		cursor:  start,
	}
	declared := 0

	for steps := 0; st.cursor != "" && steps < maxSteps; steps++ {
		// Cancellation is checked between steps, not only up front:
		// slow listings can run for minutes.
		if err := ctx.Err(); err != nil {
			return nil, errCancelled(a.cfg.ID)
		}
		if st.visited[st.cursor] {
			break
		}
		st.visited[st.cursor] = true

		resp, err := f.Fetch(ctx, libRequest(a.cfg, "", st.cursor))
		if err != nil {
			return nil, errUnavailable(a.cfg.ID, st.cursor, err)
		}
		if !resp.OK() {
			return nil, errUnavailable(a.cfg.ID, st.cursor, fmt.Errorf("listing returned status %d", resp.Status))
		}

		body := string(resp.Body)
		if steps == 0 && a.countRe != nil {
			if m := a.countRe.FindStringSubmatch(body); len(m) >= 2 {
				declared, _ = strconv.Atoi(m[1])
			}
		}

		st.items = append(st.items, a.extractItems(body)...)
		st.cursor = a.nextURL(resp.Body, st.cursor)
	}

	if len(st.items) == 0 {
		return nil, errEmpty(a.cfg.ID, start)
	}

	pages := make([]Page, 0, len(st.items))
	for _, id := range st.items {
		pages = append(pages, Page{
			ImageURL: expand(a.cfg.ImageTemplate, map[string]string{"id": id}),
		})
	}

	return &RawResult{
		DisplayName:   a.displayName(viewerURL),
		Pages:         pages,
		DeclaredCount: declared,
	}, nil
}

// extractItems returns image identifiers in document order. Duplicates are
// kept; the normalizer deduplicates and judges collapse anomalies.
func (a *paginatedAdapter) extractItems(body string) []string {
	var items []string
	for _, m := range a.itemRe.FindAllStringSubmatch(body, -1) {
		if len(m) >= 2 {
			items = append(items, m[1])
		} else {
			items = append(items, m[0])
		}
	}
	return items
}

// nextURL finds the next listing page. Anchors are inspected first
// (rel="next" or an href matching next_pattern); a raw pattern search over
// the body covers listings that build the link in script. The result is
// resolved against the current page URL.
func (a *paginatedAdapter) nextURL(body []byte, current string) string {
	if a.nextRe == nil {
		return ""
	}

	href := a.nextAnchor(body)
	if href == "" {
		if m := a.nextRe.FindString(string(body)); m != "" {
			href = m
		}
	}
	if href == "" {
		return ""
	}

	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(html.UnescapeString(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// nextAnchor walks the parsed document for a suitable <a> element.
func (a *paginatedAdapter) nextAnchor(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, rel string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "href":
					href = attr.Val
				case "rel":
					rel = attr.Val
				}
			}
			if href != "" && (strings.Contains(rel, "next") || a.nextRe.MatchString(href)) {
				found = href
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// displayName derives a fallback title from the viewer URL path.
func (a *paginatedAdapter) displayName(viewerURL string) string {
	parsed, err := url.Parse(viewerURL)
	if err != nil {
		return viewerURL
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" && segments[i] != "thumbs" {
			return segments[i]
		}
	}
	return viewerURL
}
