package discovery

import (
	_ "embed"
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// AdapterID is the canonical identifier of one supported library platform.
// Every alias is resolved to a canonical ID at the classifier boundary;
// nothing past the classifier ever sees an alias spelling.
type AdapterID string

// Shape selects which adapter implementation drives a library's protocol.
// The set is closed: an unknown shape in the table is a startup error, not
// a runtime dispatch miss.
type Shape string

const (
	// ShapeIIIF fetches a IIIF Presentation v2/v3 manifest.
	ShapeIIIF Shape = "iiif"

	// ShapeContentDM enumerates a CONTENTdm compound object.
	ShapeContentDM Shape = "contentdm"

	// ShapePaginatedHTML walks HTML listing pages following "next" links.
	ShapePaginatedHTML Shape = "paginated-html"

	// ShapeDirect derives image URLs arithmetically from one metadata call.
	ShapeDirect Shape = "direct"
)

// LibraryConfig is the per-platform data that parameterizes an adapter
// shape. Library specifics live here, in the embedded table, not in code.
type LibraryConfig struct {
	ID      AdapterID `yaml:"id"`
	Name    string    `yaml:"name"`
	Shape   Shape     `yaml:"shape"`
	Match   []string  `yaml:"match"`
	Aliases []string  `yaml:"aliases,omitempty"`

	// TimeoutSeconds overrides the default per-request timeout. Known-slow
	// legacy platforms carry larger budgets.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// InsecureTLS disables certificate verification for this library's
	// requests. Only set for hosts with known-broken chains.
	InsecureTLS bool `yaml:"insecure_tls,omitempty"`

	// Headers are sent on every request to this library.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IIIF shape. ManifestTemplate substitutes {id} captured by IDPattern
	// from the viewer URL; when empty the viewer URL is itself the
	// manifest URL. Size is the IIIF size parameter ("max", "full", or a
	// width spec). DirectIDPattern/DirectTemplate handle manifests whose
	// resources point at webcache-style download paths instead of an
	// image service.
	ManifestTemplate string `yaml:"manifest_template,omitempty"`
	IDPattern        string `yaml:"id_pattern,omitempty"`
	Size             string `yaml:"size,omitempty"`
	DirectIDPattern  string `yaml:"direct_id_pattern,omitempty"`
	DirectTemplate   string `yaml:"direct_template,omitempty"`

	// ContentDM shape: descending IIIF width ladder tried until the
	// server stops answering 403.
	SizeLadder []string `yaml:"size_ladder,omitempty"`

	// Paginated-HTML shape. ListTemplate builds the first listing URL
	// from {id}; ItemPattern extracts image identifiers from listing
	// markup; NextPattern recognizes the "next page" link; CountPattern
	// extracts a declared folio count when the listing advertises one;
	// ImageTemplate builds the final image URL from {id}; MaxPages caps
	// pagination steps.
	ListTemplate  string `yaml:"list_template,omitempty"`
	ItemPattern   string `yaml:"item_pattern,omitempty"`
	NextPattern   string `yaml:"next_pattern,omitempty"`
	CountPattern  string `yaml:"count_pattern,omitempty"`
	ImageTemplate string `yaml:"image_template,omitempty"`
	MaxPages      int    `yaml:"max_pages,omitempty"`

	// Direct shape. InfoTemplate is the single metadata call that yields
	// the page count via CountPattern; ImageTemplate substitutes {id} and
	// {page} ({page} zero-padded to PadWidth when set).
	InfoTemplate string `yaml:"info_template,omitempty"`
	PadWidth     int    `yaml:"pad_width,omitempty"`
}

// Timeout returns the per-request timeout for this library.
func (c *LibraryConfig) Timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 0
}

//go:embed libraries.yaml
var librariesYAML []byte

// LoadLibraries parses and validates the embedded per-library table.
func LoadLibraries() ([]LibraryConfig, error) {
	var libs []LibraryConfig
	if err := yaml.Unmarshal(librariesYAML, &libs); err != nil {
		return nil, fmt.Errorf("failed to parse libraries table: %w", err)
	}
	if err := validateLibraries(libs); err != nil {
		return nil, err
	}
	return libs, nil
}

func validateLibraries(libs []LibraryConfig) error {
	seen := make(map[string]AdapterID)

	claim := func(name string, id AdapterID) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("library table: identifier %q claimed by both %q and %q", name, prev, id)
		}
		seen[name] = id
		return nil
	}

	for i := range libs {
		lib := &libs[i]
		if lib.ID == "" {
			return fmt.Errorf("library table: entry %d has no id", i)
		}
		if err := claim(string(lib.ID), lib.ID); err != nil {
			return err
		}
		for _, alias := range lib.Aliases {
			if err := claim(alias, lib.ID); err != nil {
				return err
			}
		}

		switch lib.Shape {
		case ShapeIIIF, ShapeContentDM, ShapePaginatedHTML, ShapeDirect:
		default:
			return fmt.Errorf("library table: %s has unknown shape %q", lib.ID, lib.Shape)
		}

		if len(lib.Match) == 0 {
			return fmt.Errorf("library table: %s has no match patterns", lib.ID)
		}
		for _, pattern := range append(append([]string{}, lib.Match...),
			lib.IDPattern, lib.DirectIDPattern, lib.ItemPattern,
			lib.NextPattern, lib.CountPattern) {
			if pattern == "" {
				continue
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("library table: %s has invalid pattern %q: %w", lib.ID, pattern, err)
			}
		}
	}
	return nil
}
