package fetch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestRetryableStatus(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{200, false},
		{301, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tc := range cases {
		if got := RetryableStatus(tc.status); got != tc.want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestRetrying(t *testing.T) {
	t.Run("succeeds after transient network failures", func(t *testing.T) {
		mock := NewMock()
		mock.RespondWith("https://example.org/manifest", &MockResponse{
			Status:    200,
			Body:      []byte("ok"),
			Err:       &net.OpError{Op: "read", Err: errors.New("connection reset")},
			FailFirst: 2,
		})

		r := NewRetrying(mock, 3, time.Millisecond)
		resp, err := r.Fetch(context.Background(), &Request{URL: "https://example.org/manifest"})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.Status != 200 {
			t.Errorf("status = %d, want 200", resp.Status)
		}
		if got := mock.CallCount("https://example.org/manifest"); got != 3 {
			t.Errorf("call count = %d, want 3", got)
		}
	})

	t.Run("gives up after attempts exhausted", func(t *testing.T) {
		mock := NewMock()
		mock.RespondWith("https://example.org/x", &MockResponse{
			Err:       &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			FailFirst: 100,
		})

		r := NewRetrying(mock, 3, time.Millisecond)
		_, err := r.Fetch(context.Background(), &Request{URL: "https://example.org/x"})
		if err == nil {
			t.Fatal("expected error after exhausted retries")
		}
		if got := mock.CallCount("https://example.org/x"); got != 3 {
			t.Errorf("call count = %d, want 3", got)
		}
	})

	t.Run("retries 5xx and returns last response when exhausted", func(t *testing.T) {
		mock := NewMock()
		mock.RespondStatus("https://example.org/flaky", 503)

		r := NewRetrying(mock, 3, time.Millisecond)
		resp, err := r.Fetch(context.Background(), &Request{URL: "https://example.org/flaky"})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.Status != 503 {
			t.Errorf("status = %d, want 503", resp.Status)
		}
		if got := mock.CallCount("https://example.org/flaky"); got != 3 {
			t.Errorf("call count = %d, want 3", got)
		}
	})

	t.Run("does not retry 403", func(t *testing.T) {
		mock := NewMock()
		mock.RespondStatus("https://example.org/forbidden", 403)

		r := NewRetrying(mock, 3, time.Millisecond)
		resp, err := r.Fetch(context.Background(), &Request{URL: "https://example.org/forbidden"})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.Status != 403 {
			t.Errorf("status = %d, want 403", resp.Status)
		}
		if got := mock.CallCount("https://example.org/forbidden"); got != 1 {
			t.Errorf("call count = %d, want 1 (no retry)", got)
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		mock := NewMock()
		mock.RespondStatus("https://example.org/slow", 503)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewRetrying(mock, 3, time.Millisecond)
		_, err := r.Fetch(ctx, &Request{URL: "https://example.org/slow"})
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestMock(t *testing.T) {
	t.Run("unscripted URL returns 404", func(t *testing.T) {
		mock := NewMock()
		resp, err := mock.Fetch(context.Background(), &Request{URL: "https://nowhere.test/"})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.Status != 404 {
			t.Errorf("status = %d, want 404", resp.Status)
		}
	})

	t.Run("records calls", func(t *testing.T) {
		mock := NewMock()
		mock.Respond("https://a.test/", "body")

		_, _ = mock.Fetch(context.Background(), &Request{URL: "https://a.test/", Method: "HEAD"})
		calls := mock.Calls()
		if len(calls) != 1 {
			t.Fatalf("len(calls) = %d, want 1", len(calls))
		}
		if calls[0].Method != "HEAD" {
			t.Errorf("method = %q, want HEAD", calls[0].Method)
		}
	})
}
