package discovery

// Normalize builds the final immutable Manifest from an adapter's raw
// output: deduplicates by resolved URL preserving first-seen order, assigns
// contiguous indices, and rejects anomalies instead of returning truncated
// manifests as success.
func Normalize(lib AdapterID, raw *RawResult) (*Manifest, error) {
	if raw == nil || len(raw.Pages) == 0 {
		return nil, errEmpty(lib, "")
	}

	seen := make(map[string]bool, len(raw.Pages))
	unique := make([]Page, 0, len(raw.Pages))
	for _, page := range raw.Pages {
		if page.ImageURL == "" || seen[page.ImageURL] {
			continue
		}
		seen[page.ImageURL] = true
		unique = append(unique, page)
	}

	if len(unique) == 0 {
		return nil, errEmpty(lib, "")
	}

	// A many-to-one collapse means pagination handed back the same leaf
	// over and over. Rejecting beats silently delivering a 1-page PDF of
	// a manuscript known to be longer.
	if len(unique) == 1 && (len(raw.Pages) > 1 || raw.DeclaredCount > 1) {
		expected := raw.DeclaredCount
		if expected < len(raw.Pages) {
			expected = len(raw.Pages)
		}
		return nil, errIncomplete(lib, 1, expected)
	}

	// Fewer than half the declared folios usually indicates a manifest
	// pointing at a partial excerpt rather than the full manuscript.
	if raw.DeclaredCount > 0 && len(unique)*2 < raw.DeclaredCount {
		return nil, errIncomplete(lib, len(unique), raw.DeclaredCount)
	}

	pages := make([]Page, len(unique))
	for i, page := range unique {
		page.Index = i
		pages[i] = page
	}

	return &Manifest{
		DisplayName: raw.DisplayName,
		Library:     lib,
		Pages:       pages,
		TotalPages:  len(pages),
	}, nil
}
