package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

func newTestPaginatedAdapter(t *testing.T, maxPages int) *paginatedAdapter {
	t.Helper()
	cfg := &LibraryConfig{
		ID:            "morgan",
		Shape:         ShapePaginatedHTML,
		Match:         []string{`lib\.test`},
		ItemPattern:   `data-img="([^"]+)"`,
		NextPattern:   `\?page=\d+`,
		CountPattern:  `data-folios="(\d+)"`,
		ImageTemplate: "https://lib.test/img/{id}.jpg",
		MaxPages:      maxPages,
	}
	adapter, err := newPaginatedAdapter(cfg)
	if err != nil {
		t.Fatalf("newPaginatedAdapter() error = %v", err)
	}
	return adapter
}

func TestPaginatedAdapter(t *testing.T) {
	t.Run("walks listing pages until no next link", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		mock.Respond("https://lib.test/thumbs",
			`<div data-img="a"></div><div data-img="b"></div><a href="/thumbs?page=2">next</a>`)
		mock.Respond("https://lib.test/thumbs?page=2",
			`<div data-img="c"></div>`)

		raw, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs", mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := []string{
			"https://lib.test/img/a.jpg",
			"https://lib.test/img/b.jpg",
			"https://lib.test/img/c.jpg",
		}
		if len(raw.Pages) != len(want) {
			t.Fatalf("len(Pages) = %d, want %d", len(raw.Pages), len(want))
		}
		for i, url := range want {
			if raw.Pages[i].ImageURL != url {
				t.Errorf("page %d = %q, want %q", i, raw.Pages[i].ImageURL, url)
			}
		}
	})

	t.Run("cycle back to the first page terminates", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		// Page 2 points back at page 1: each page must be visited
		// exactly once and discovery must stop.
		mock.Respond("https://lib.test/thumbs?page=1",
			`<div data-img="a"></div><a href="/thumbs?page=2">next</a>`)
		mock.Respond("https://lib.test/thumbs?page=2",
			`<div data-img="b"></div><a href="/thumbs?page=1">next</a>`)

		raw, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs?page=1", mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(raw.Pages) != 2 {
			t.Fatalf("len(Pages) = %d, want union of both pages", len(raw.Pages))
		}
		if mock.CallCount("https://lib.test/thumbs?page=1") != 1 {
			t.Errorf("page 1 fetched %d times, want 1", mock.CallCount("https://lib.test/thumbs?page=1"))
		}
		if mock.CallCount("https://lib.test/thumbs?page=2") != 1 {
			t.Errorf("page 2 fetched %d times, want 1", mock.CallCount("https://lib.test/thumbs?page=2"))
		}
	})

	t.Run("self-referential next link terminates", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		mock.Respond("https://lib.test/thumbs?page=1",
			`<div data-img="a"></div><a href="/thumbs?page=1">next</a>`)

		raw, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs?page=1", mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(raw.Pages) != 1 {
			t.Errorf("len(Pages) = %d, want 1", len(raw.Pages))
		}
		if mock.CallCount("https://lib.test/thumbs?page=1") != 1 {
			t.Errorf("fetched %d times, want 1", mock.CallCount("https://lib.test/thumbs?page=1"))
		}
	})

	t.Run("iteration cap bounds a never-ending stream", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 5)
		mock := fetch.NewMock()
		for i := 1; i <= 20; i++ {
			mock.Respond(fmt.Sprintf("https://lib.test/thumbs?page=%d", i),
				fmt.Sprintf(`<div data-img="p%d"></div><a href="/thumbs?page=%d">next</a>`, i, i+1))
		}

		raw, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs?page=1", mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(raw.Pages) != 5 {
			t.Errorf("len(Pages) = %d, want 5 (cap)", len(raw.Pages))
		}
		if len(mock.Calls()) != 5 {
			t.Errorf("fetches = %d, want 5 (cap)", len(mock.Calls()))
		}
	})

	t.Run("declared folio count extracted from first page", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		mock.Respond("https://lib.test/thumbs",
			`<body data-folios="148"><div data-img="a"></div><div data-img="b"></div></body>`)

		raw, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs", mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if raw.DeclaredCount != 148 {
			t.Errorf("DeclaredCount = %d, want 148", raw.DeclaredCount)
		}
	})

	t.Run("no items is ManifestEmpty", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		mock.Respond("https://lib.test/thumbs", `<html>nothing here</html>`)

		_, err := adapter.Resolve(context.Background(), "https://lib.test/thumbs", mock)
		if !IsKind(err, KindManifestEmpty) {
			t.Errorf("error kind = %v, want ManifestEmpty", KindOf(err))
		}
	})

	t.Run("cancellation between steps", func(t *testing.T) {
		adapter := newTestPaginatedAdapter(t, 50)
		mock := fetch.NewMock()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := adapter.Resolve(ctx, "https://lib.test/thumbs", mock)
		if !IsKind(err, KindCancelled) {
			t.Errorf("error kind = %v, want Cancelled", KindOf(err))
		}
	})
}
