// Package discovery resolves manuscript viewer URLs into ordered lists of
// maximum-resolution page image URLs. It classifies a URL to one of the
// supported library adapters, drives that library's metadata protocol
// (IIIF Presentation v2/v3, CONTENTdm compound objects, paginated HTML
// listings, or arithmetic URL patterns), and normalizes the result.
package discovery

// Page describes one downloadable page image.
//
// ImageURL is always a fully-qualified, directly fetchable URL at the
// negotiated maximum resolution, never a further-indirected viewer link.
type Page struct {
	// Index is the zero-based position within the manuscript.
	Index int `json:"index" yaml:"index"`

	// ImageURL is the direct image URL.
	ImageURL string `json:"image_url" yaml:"image_url"`

	// Label is the page's display label (folio number etc.), if known.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Manifest is the normalized output of a manuscript resolution.
// It is constructed once by Normalize and immutable thereafter.
type Manifest struct {
	// DisplayName is the manuscript title as reported by the library.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Library is the canonical adapter that produced this manifest.
	Library AdapterID `json:"library" yaml:"library"`

	// Pages is ordered by Index ascending, contiguous from 0, with no
	// duplicate image URLs.
	Pages []Page `json:"pages" yaml:"pages"`

	// TotalPages always equals len(Pages).
	TotalPages int `json:"total_pages" yaml:"total_pages"`
}

// RawResult is an adapter's pre-normalization output. Page order is the
// adapter's discovery order; Index values are assigned by Normalize.
type RawResult struct {
	// DisplayName is the title extracted from library metadata.
	DisplayName string

	// Pages in discovery order. May contain duplicates; Normalize
	// deduplicates and rejects anomalies.
	Pages []Page

	// DeclaredCount is the page/folio count the library's metadata
	// declared independently of the discovered pages. Zero when the
	// library declares none.
	DeclaredCount int
}
