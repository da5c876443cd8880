package discovery

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Run("assigns contiguous indices", func(t *testing.T) {
		raw := &RawResult{
			DisplayName: "MS 1",
			Pages: []Page{
				{ImageURL: "https://lib.test/1.jpg", Label: "1r"},
				{ImageURL: "https://lib.test/2.jpg", Label: "1v"},
				{ImageURL: "https://lib.test/3.jpg"},
			},
		}
		m, err := Normalize("gallica", raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if m.TotalPages != len(m.Pages) {
			t.Errorf("TotalPages = %d, len(Pages) = %d", m.TotalPages, len(m.Pages))
		}
		for i, page := range m.Pages {
			if page.Index != i {
				t.Errorf("page %d has index %d", i, page.Index)
			}
		}
		if m.Library != "gallica" {
			t.Errorf("Library = %s, want gallica", m.Library)
		}
	})

	t.Run("deduplicates preserving first-seen order", func(t *testing.T) {
		raw := &RawResult{
			Pages: []Page{
				{ImageURL: "https://lib.test/a.jpg"},
				{ImageURL: "https://lib.test/b.jpg"},
				{ImageURL: "https://lib.test/a.jpg"},
				{ImageURL: "https://lib.test/c.jpg"},
			},
		}
		m, err := Normalize("gallica", raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		want := []string{"https://lib.test/a.jpg", "https://lib.test/b.jpg", "https://lib.test/c.jpg"}
		if len(m.Pages) != len(want) {
			t.Fatalf("len(Pages) = %d, want %d", len(m.Pages), len(want))
		}
		for i, url := range want {
			if m.Pages[i].ImageURL != url {
				t.Errorf("page %d = %q, want %q", i, m.Pages[i].ImageURL, url)
			}
		}
	})

	t.Run("no duplicate URLs survive", func(t *testing.T) {
		raw := &RawResult{
			Pages: []Page{
				{ImageURL: "https://lib.test/a.jpg"},
				{ImageURL: "https://lib.test/b.jpg"},
				{ImageURL: "https://lib.test/b.jpg"},
			},
		}
		m, err := Normalize("gallica", raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		seen := make(map[string]bool)
		for _, page := range m.Pages {
			if seen[page.ImageURL] {
				t.Errorf("duplicate URL in normalized manifest: %s", page.ImageURL)
			}
			seen[page.ImageURL] = true
		}
	})

	t.Run("collapse to a single page is rejected", func(t *testing.T) {
		// Pagination bug fingerprint: many raw entries, one unique URL.
		raw := &RawResult{
			Pages: []Page{
				{ImageURL: "https://lib.test/same.jpg"},
				{ImageURL: "https://lib.test/same.jpg"},
				{ImageURL: "https://lib.test/same.jpg"},
			},
			DeclaredCount: 148,
		}
		_, err := Normalize("morgan", raw)
		if !IsKind(err, KindManifestIncomplete) {
			t.Fatalf("error kind = %v, want ManifestIncomplete", KindOf(err))
		}
		var de *Error
		if !errors.As(err, &de) {
			t.Fatal("expected *Error")
		}
		if de.Found != 1 || de.Expected != 148 {
			t.Errorf("counts = {found: %d, expected: %d}, want {1, 148}", de.Found, de.Expected)
		}
	})

	t.Run("singleton without declared count still rejected", func(t *testing.T) {
		raw := &RawResult{
			Pages: []Page{
				{ImageURL: "https://lib.test/same.jpg"},
				{ImageURL: "https://lib.test/same.jpg"},
			},
		}
		_, err := Normalize("morgan", raw)
		if !IsKind(err, KindManifestIncomplete) {
			t.Errorf("error kind = %v, want ManifestIncomplete", KindOf(err))
		}
	})

	t.Run("far below declared count is ManifestIncomplete", func(t *testing.T) {
		raw := &RawResult{
			Pages: []Page{
				{ImageURL: "https://lib.test/1.jpg"},
				{ImageURL: "https://lib.test/2.jpg"},
			},
			DeclaredCount: 148,
		}
		_, err := Normalize("gallica", raw)
		if !IsKind(err, KindManifestIncomplete) {
			t.Fatalf("error kind = %v, want ManifestIncomplete", KindOf(err))
		}
		var de *Error
		if !errors.As(err, &de) {
			t.Fatal("expected *Error")
		}
		if de.Found != 2 || de.Expected != 148 {
			t.Errorf("counts = {found: %d, expected: %d}, want {2, 148}", de.Found, de.Expected)
		}
	})

	t.Run("slightly below declared count passes", func(t *testing.T) {
		pages := make([]Page, 0, 100)
		for i := 0; i < 100; i++ {
			pages = append(pages, Page{ImageURL: urlN(i)})
		}
		raw := &RawResult{Pages: pages, DeclaredCount: 148}
		m, err := Normalize("gallica", raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if m.TotalPages != 100 {
			t.Errorf("TotalPages = %d, want 100", m.TotalPages)
		}
	})

	t.Run("genuine single page manuscript passes", func(t *testing.T) {
		raw := &RawResult{
			Pages:         []Page{{ImageURL: "https://lib.test/only.jpg"}},
			DeclaredCount: 1,
		}
		m, err := Normalize("contentdm", raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if m.TotalPages != 1 {
			t.Errorf("TotalPages = %d, want 1", m.TotalPages)
		}
	})

	t.Run("empty raw list is ManifestEmpty", func(t *testing.T) {
		_, err := Normalize("gallica", &RawResult{})
		if !IsKind(err, KindManifestEmpty) {
			t.Errorf("error kind = %v, want ManifestEmpty", KindOf(err))
		}
	})
}

func urlN(i int) string {
	return fmt.Sprintf("https://lib.test/page-%03d.jpg", i)
}
