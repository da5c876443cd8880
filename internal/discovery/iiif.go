package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// iiifAdapter resolves manuscripts through the IIIF Presentation API.
// It handles both v2 (sequences/canvases) and v3 (items) manifests,
// detecting the version from the document itself.
type iiifAdapter struct {
	cfg      *LibraryConfig
	idRe     *regexp.Regexp
	directRe *regexp.Regexp
}

func newIIIFAdapter(cfg *LibraryConfig) (*iiifAdapter, error) {
	a := &iiifAdapter{cfg: cfg}

	if cfg.IDPattern != "" {
		re, err := regexp.Compile(cfg.IDPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid id_pattern: %w", err)
		}
		a.idRe = re
	}
	if cfg.DirectIDPattern != "" {
		re, err := regexp.Compile(cfg.DirectIDPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid direct_id_pattern: %w", err)
		}
		a.directRe = re
	}
	return a, nil
}

func (a *iiifAdapter) ID() AdapterID {
	return a.cfg.ID
}

// manifestURL derives the manifest location from the viewer URL. Libraries
// without a template expose the manifest URL directly (the generic catch-all
// entry works this way).
func (a *iiifAdapter) manifestURL(viewerURL string) (string, error) {
	if a.cfg.ManifestTemplate == "" {
		return viewerURL, nil
	}
	if a.idRe == nil {
		return "", fmt.Errorf("manifest template configured without id_pattern")
	}
	m := a.idRe.FindStringSubmatch(viewerURL)
	if len(m) < 2 {
		return "", fmt.Errorf("no manuscript identifier in URL")
	}
	return expand(a.cfg.ManifestTemplate, map[string]string{"id": m[1]}), nil
}

func (a *iiifAdapter) Resolve(ctx context.Context, url string, f fetch.Fetcher) (*RawResult, error) {
	murl, err := a.manifestURL(url)
	if err != nil {
		return nil, &Error{
			Kind:    KindLibraryNotSupported,
			Library: a.cfg.ID,
			URL:     url,
			Err:     err,
			Hint:    "open a single manuscript in the viewer and copy that URL",
		}
	}

	resp, err := f.Fetch(ctx, libRequest(a.cfg, "", murl))
	if err != nil {
		return nil, errUnavailable(a.cfg.ID, murl, err)
	}
	if !resp.OK() {
		return nil, errUnavailable(a.cfg.ID, murl, fmt.Errorf("manifest request returned status %d", resp.Status))
	}

	var m iiifManifest
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return nil, errUnavailable(a.cfg.ID, murl, fmt.Errorf("failed to parse manifest: %w", err))
	}

	canvases := m.canvases()
	pages := make([]Page, 0, len(canvases))
	for _, canvas := range canvases {
		imageURL := a.imageURL(canvas.resource())
		if imageURL == "" {
			continue
		}
		pages = append(pages, Page{
			ImageURL: imageURL,
			Label:    labelText(canvas.Label),
		})
	}

	if len(pages) == 0 {
		return nil, errEmpty(a.cfg.ID, murl)
	}

	name := labelText(m.Label)
	if name == "" {
		name = murl
	}
	return &RawResult{DisplayName: name, Pages: pages}, nil
}

// imageURL turns a canvas resource into a directly fetchable image URL.
// Resources carrying a IIIF Image API service get a sized request against
// that service; bare download URLs matching the library's direct pattern
// are rewritten onto the highest-resolution template.
func (a *iiifAdapter) imageURL(res *iiifResource) string {
	if res == nil {
		return ""
	}

	if serviceID := parseServiceID(res.Service); serviceID != "" {
		size := a.cfg.Size
		if size == "" {
			size = "max"
		}
		return strings.TrimSuffix(serviceID, "/") + "/full/" + size + "/0/default.jpg"
	}

	id := res.id()
	if id == "" {
		return ""
	}
	if a.directRe != nil && a.cfg.DirectTemplate != "" {
		if m := a.directRe.FindStringSubmatch(id); len(m) >= 2 {
			return expand(a.cfg.DirectTemplate, map[string]string{"id": m[1]})
		}
	}
	return id
}

// iiifManifest covers both Presentation API versions. The version is
// detected by which of sequences/items is populated.
type iiifManifest struct {
	Label     json.RawMessage `json:"label"`
	Sequences []iiifSequence  `json:"sequences"`
	Items     []iiifCanvas    `json:"items"`
}

func (m *iiifManifest) canvases() []iiifCanvas {
	if len(m.Sequences) > 0 {
		return m.Sequences[0].Canvases
	}
	return m.Items
}

type iiifSequence struct {
	Canvases []iiifCanvas `json:"canvases"`
}

type iiifCanvas struct {
	Label  json.RawMessage  `json:"label"`
	Images []iiifAnnotation `json:"images"` // v2
	Items  []iiifAnnoPage   `json:"items"`  // v3
}

// resource returns the first image resource of the canvas, v2 or v3.
func (c *iiifCanvas) resource() *iiifResource {
	if len(c.Images) > 0 && c.Images[0].Resource != nil {
		return c.Images[0].Resource
	}
	for _, page := range c.Items {
		for _, anno := range page.Items {
			if anno.Body != nil {
				return anno.Body
			}
		}
	}
	return nil
}

type iiifAnnoPage struct {
	Items []iiifAnnotation `json:"items"`
}

type iiifAnnotation struct {
	Resource *iiifResource `json:"resource"` // v2
	Body     *iiifResource `json:"body"`     // v3
}

type iiifResource struct {
	IDv2    string          `json:"@id"`
	IDv3    string          `json:"id"`
	Service json.RawMessage `json:"service"`
}

func (r *iiifResource) id() string {
	if r.IDv3 != "" {
		return r.IDv3
	}
	return r.IDv2
}

// parseServiceID extracts the image service base URL from a service block,
// which may be a single object or a list, keyed @id (v2) or id (v3).
func parseServiceID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	type serviceRef struct {
		IDv2 string `json:"@id"`
		IDv3 string `json:"id"`
	}

	var one serviceRef
	if err := json.Unmarshal(raw, &one); err == nil {
		if one.IDv3 != "" {
			return one.IDv3
		}
		if one.IDv2 != "" {
			return one.IDv2
		}
	}

	var many []serviceRef
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, svc := range many {
			if svc.IDv3 != "" {
				return svc.IDv3
			}
			if svc.IDv2 != "" {
				return svc.IDv2
			}
		}
	}
	return ""
}
