package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// cdmViewerRe extracts collection and item from a CONTENTdm viewer path.
var cdmViewerRe = regexp.MustCompile(`/digital/collection/([^/]+)/id/(\d+)`)

// contentdmAdapter enumerates CONTENTdm compound objects and builds IIIF
// Image API URLs for each child page.
type contentdmAdapter struct {
	cfg *LibraryConfig
}

func newContentDMAdapter(cfg *LibraryConfig) (*contentdmAdapter, error) {
	return &contentdmAdapter{cfg: cfg}, nil
}

func (a *contentdmAdapter) ID() AdapterID {
	return a.cfg.ID
}

func (a *contentdmAdapter) Resolve(ctx context.Context, viewerURL string, f fetch.Fetcher) (*RawResult, error) {
	m := cdmViewerRe.FindStringSubmatch(viewerURL)
	if len(m) < 3 {
		return nil, &Error{
			Kind:    KindLibraryNotSupported,
			Library: a.cfg.ID,
			URL:     viewerURL,
			Hint:    "expected a /digital/collection/<name>/id/<number> viewer URL",
		}
	}
	collection, itemID := m[1], m[2]

	parsed, err := url.Parse(viewerURL)
	if err != nil || parsed.Host == "" {
		return nil, &Error{Kind: KindLibraryNotSupported, Library: a.cfg.ID, URL: viewerURL, Err: err}
	}
	host := parsed.Host

	children, err := a.compoundPages(ctx, f, host, collection, itemID)
	if err != nil {
		return nil, err
	}

	size, err := a.negotiateWidth(ctx, f, host, collection, children[0].ptr)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, errCancelled(a.cfg.ID)
		}
		return nil, errUnavailable(a.cfg.ID, viewerURL, err)
	}

	pages := make([]Page, 0, len(children))
	for i, child := range children {
		label := child.title
		if label == "" {
			label = fmt.Sprintf("Page %d", i+1)
		}
		pages = append(pages, Page{
			ImageURL: cdmImageURL(host, collection, child.ptr, size),
			Label:    label,
		})
	}

	name := a.itemTitle(ctx, f, host, collection, itemID)
	if name == "" {
		name = fmt.Sprintf("%s %s", collection, itemID)
	}

	return &RawResult{
		DisplayName:   name,
		Pages:         pages,
		DeclaredCount: len(children),
	}, nil
}

type cdmChild struct {
	ptr   string
	title string
}

// compoundPages resolves the item's child pages. Single-item documents
// (the web service answers with an error object instead of a page array)
// yield one child: the item itself.
func (a *contentdmAdapter) compoundPages(ctx context.Context, f fetch.Fetcher, host, collection, itemID string) ([]cdmChild, error) {
	compoundURL := fmt.Sprintf(
		"https://%s/digital/bl/dmwebservices/index.php?q=dmGetCompoundObjectInfo/%s/%s/json",
		host, collection, itemID,
	)

	resp, err := f.Fetch(ctx, libRequest(a.cfg, "", compoundURL))
	if err != nil || !resp.OK() {
		// Compound endpoint unreachable: the item may still exist as a
		// plain document. Only give up when info.json fails too.
		if infoErr := a.checkInfoJSON(ctx, f, host, collection, itemID); infoErr != nil {
			if err == nil {
				err = fmt.Errorf("compound endpoint returned status %d", resp.Status)
			}
			return nil, errUnavailable(a.cfg.ID, compoundURL, errors.Join(err, infoErr))
		}
		return []cdmChild{{ptr: itemID}}, nil
	}

	var compound cdmCompound
	if err := json.Unmarshal(resp.Body, &compound); err != nil {
		// Some deployments answer XML here; treat as single item.
		return []cdmChild{{ptr: itemID}}, nil
	}

	pages := compound.pages()
	if len(pages) == 0 {
		// Not a compound object.
		return []cdmChild{{ptr: itemID}}, nil
	}

	children := make([]cdmChild, 0, len(pages))
	for _, p := range pages {
		if p.Pageptr.value == "" {
			continue
		}
		children = append(children, cdmChild{ptr: p.Pageptr.value, title: p.Pagetitle})
	}
	if len(children) == 0 {
		return []cdmChild{{ptr: itemID}}, nil
	}
	return children, nil
}

// negotiateWidth walks the size ladder against the first page. When every
// step answers 403 the deployment wants a session cookie: warm one up with
// a collection-page GET and walk the ladder once more. The unauthenticated
// attempt always comes first to spare well-behaved servers the extra
// round-trip.
func (a *contentdmAdapter) negotiateWidth(ctx context.Context, f fetch.Fetcher, host, collection, firstPtr string) (string, error) {
	build := func(size string) string {
		return cdmImageURL(host, collection, firstPtr, size)
	}

	size, err := negotiateSize(ctx, f, a.cfg, build, a.cfg.SizeLadder)
	if err == nil {
		return size, nil
	}
	if !errors.Is(err, errAllForbidden) {
		return "", err
	}

	warmupURL := fmt.Sprintf("https://%s/digital/collection/%s", host, collection)
	if _, err := f.Fetch(ctx, libRequest(a.cfg, "", warmupURL)); err != nil {
		return "", fmt.Errorf("session warmup failed: %w", err)
	}
	return negotiateSize(ctx, f, a.cfg, build, a.cfg.SizeLadder)
}

// checkInfoJSON verifies the item is at least visible to the IIIF endpoint.
func (a *contentdmAdapter) checkInfoJSON(ctx context.Context, f fetch.Fetcher, host, collection, itemID string) error {
	infoURL := fmt.Sprintf("https://%s/iiif/2/%s:%s/info.json", host, collection, itemID)
	resp, err := f.Fetch(ctx, libRequest(a.cfg, "", infoURL))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("info.json returned status %d", resp.Status)
	}
	return nil
}

// itemTitle fetches the item's display title. Failures are tolerated; the
// caller falls back to collection and item id.
func (a *contentdmAdapter) itemTitle(ctx context.Context, f fetch.Fetcher, host, collection, itemID string) string {
	infoURL := fmt.Sprintf(
		"https://%s/digital/bl/dmwebservices/index.php?q=dmGetItemInfo/%s/%s/json",
		host, collection, itemID,
	)
	resp, err := f.Fetch(ctx, libRequest(a.cfg, "", infoURL))
	if err != nil || !resp.OK() {
		return ""
	}
	var info struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return ""
	}
	return info.Title
}

func cdmImageURL(host, collection, ptr, size string) string {
	width := size
	if width != "max" && width != "full" {
		width = size + ","
	}
	return fmt.Sprintf("https://%s/iiif/2/%s:%s/full/%s/0/default.jpg", host, collection, ptr, width)
}

// cdmCompound models dmGetCompoundObjectInfo output. The page array may sit
// at the top level or under a node wrapper, and single entries may arrive
// as a bare object rather than a one-element array.
type cdmCompound struct {
	Node *cdmNode `json:"node"`
	Page cdmPages `json:"page"`
}

func (c *cdmCompound) pages() []cdmPage {
	if len(c.Page) > 0 {
		return c.Page
	}
	if c.Node != nil {
		return c.Node.allPages()
	}
	return nil
}

type cdmNode struct {
	Node *cdmNode `json:"node"`
	Page cdmPages `json:"page"`
}

func (n *cdmNode) allPages() []cdmPage {
	if len(n.Page) > 0 {
		return n.Page
	}
	if n.Node != nil {
		return n.Node.allPages()
	}
	return nil
}

type cdmPage struct {
	Pageptr   flexString `json:"pageptr"`
	Pagetitle string     `json:"pagetitle"`
}

// cdmPages accepts both a JSON array and a bare object.
type cdmPages []cdmPage

func (p *cdmPages) UnmarshalJSON(data []byte) error {
	var list []cdmPage
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var one cdmPage
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*p = cdmPages{one}
	return nil
}

// flexString accepts JSON strings and numbers; CONTENTdm is inconsistent
// about which it emits for page pointers.
type flexString struct {
	value string
}

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.value = str
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("pageptr is neither string nor number: %s", data)
	}
	s.value = num.String()
	return nil
}

// String returns the underlying value.
func (s flexString) String() string {
	return s.value
}
