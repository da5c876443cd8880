package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

func newTestDirectAdapter(t *testing.T, padWidth int) *directAdapter {
	t.Helper()
	cfg := &LibraryConfig{
		ID:            "bne",
		Shape:         ShapeDirect,
		Match:         []string{`lib\.test`},
		IDPattern:     `[?&]id=(\d+)`,
		InfoTemplate:  "https://lib.test/pdf.raw?query=id:{id}&info=true",
		CountPattern:  `"totalPages"\s*:\s*(\d+)`,
		ImageTemplate: "https://lib.test/pdf.raw?query=id:{id}&page={page}&jpeg=true",
		PadWidth:      padWidth,
	}
	adapter, err := newDirectAdapter(cfg)
	if err != nil {
		t.Fatalf("newDirectAdapter() error = %v", err)
	}
	return adapter
}

func TestDirectAdapter(t *testing.T) {
	viewer := "https://lib.test/viewer.vm?id=11586&page=1"
	infoURL := "https://lib.test/pdf.raw?query=id:11586&info=true"

	t.Run("generates page URLs from count", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 0)
		mock := fetch.NewMock()
		mock.Respond(infoURL, `{"totalPages": 3, "title": "x"}`)
		mock.RespondStatus("https://lib.test/pdf.raw?query=id:11586&page=1&jpeg=true", 200)
		mock.RespondStatus("https://lib.test/pdf.raw?query=id:11586&page=3&jpeg=true", 200)

		raw, err := adapter.Resolve(context.Background(), viewer, mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(raw.Pages) != 3 {
			t.Fatalf("len(Pages) = %d, want 3", len(raw.Pages))
		}
		want := "https://lib.test/pdf.raw?query=id:11586&page=2&jpeg=true"
		if raw.Pages[1].ImageURL != want {
			t.Errorf("page 1 = %q, want %q", raw.Pages[1].ImageURL, want)
		}
		if raw.DeclaredCount != 3 {
			t.Errorf("DeclaredCount = %d, want 3", raw.DeclaredCount)
		}
		// Exactly one metadata call plus the two sample probes.
		if got := len(mock.Calls()); got != 3 {
			t.Errorf("total fetches = %d, want 3", got)
		}
	})

	t.Run("zero-pads page numbers", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 4)
		mock := fetch.NewMock()
		mock.Respond(infoURL, `{"totalPages": 2}`)
		mock.RespondStatus("https://lib.test/pdf.raw?query=id:11586&page=0001&jpeg=true", 200)
		mock.RespondStatus("https://lib.test/pdf.raw?query=id:11586&page=0002&jpeg=true", 200)

		raw, err := adapter.Resolve(context.Background(), viewer, mock)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := "https://lib.test/pdf.raw?query=id:11586&page=0002&jpeg=true"
		if raw.Pages[1].ImageURL != want {
			t.Errorf("page 1 = %q, want %q", raw.Pages[1].ImageURL, want)
		}
	})

	t.Run("missing count is ManifestEmpty", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 0)
		mock := fetch.NewMock()
		mock.Respond(infoURL, `{"unexpected": true}`)

		_, err := adapter.Resolve(context.Background(), viewer, mock)
		if !IsKind(err, KindManifestEmpty) {
			t.Errorf("error kind = %v, want ManifestEmpty", KindOf(err))
		}
	})

	t.Run("unreachable metadata is SourceUnavailable", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 0)
		mock := fetch.NewMock()
		mock.RespondStatus(infoURL, 500)

		_, err := adapter.Resolve(context.Background(), viewer, mock)
		if !IsKind(err, KindSourceUnavailable) {
			t.Errorf("error kind = %v, want SourceUnavailable", KindOf(err))
		}
	})

	t.Run("sampled 404s are PageCountMismatch", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 0)
		mock := fetch.NewMock()
		mock.Respond(infoURL, `{"totalPages": 50}`)
		// Generated URLs do not exist: template or count is wrong.

		_, err := adapter.Resolve(context.Background(), viewer, mock)
		if !IsKind(err, KindPageCountMismatch) {
			t.Fatalf("error kind = %v, want PageCountMismatch", KindOf(err))
		}
		var de *Error
		if !errors.As(err, &de) {
			t.Fatal("expected *Error")
		}
		if de.Expected != 50 || de.Found != 0 {
			t.Errorf("counts = {found: %d, expected: %d}, want {0, 50}", de.Found, de.Expected)
		}
	})

	t.Run("unparseable viewer URL is LibraryNotSupported", func(t *testing.T) {
		adapter := newTestDirectAdapter(t, 0)
		mock := fetch.NewMock()

		_, err := adapter.Resolve(context.Background(), "https://lib.test/search?q=hours", mock)
		if !IsKind(err, KindLibraryNotSupported) {
			t.Errorf("error kind = %v, want LibraryNotSupported", KindOf(err))
		}
	})
}
