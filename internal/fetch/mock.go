package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// MockResponse scripts the mock's behavior for one call.
type MockResponse struct {
	Status int
	Body   []byte
	Err    error

	// FailFirst makes the first N fetches of this URL return Err
	// (or a generic error) before this response applies. Used to
	// exercise retries.
	FailFirst int
}

// Mock is a scripted Fetcher for tests. Responses are keyed by exact URL;
// a URL may carry a sequence of responses consumed one per call, with the
// last response sticking. Unscripted URLs return 404 unless DefaultStatus
// is set.
type Mock struct {
	mu        sync.Mutex
	responses map[string][]*MockResponse
	calls     []Request
	perURL    map[string]int

	// DefaultStatus is returned for unscripted URLs (0 means 404).
	DefaultStatus int
}

// NewMock creates an empty scripted fetcher.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string][]*MockResponse),
		perURL:    make(map[string]int),
	}
}

// Respond scripts a 200 response with the given body.
func (m *Mock) Respond(url string, body string) *Mock {
	return m.RespondWith(url, &MockResponse{Status: http.StatusOK, Body: []byte(body)})
}

// RespondStatus scripts a bodyless response with the given status.
func (m *Mock) RespondStatus(url string, status int) *Mock {
	return m.RespondWith(url, &MockResponse{Status: status})
}

// RespondWith appends a scripted response for the URL. Calling it several
// times for the same URL builds a sequence consumed call by call.
func (m *Mock) RespondWith(url string, resp *MockResponse) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = append(m.responses[url], resp)
	return m
}

// Fetch implements Fetcher.
func (m *Mock) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, *req)
	m.perURL[req.URL]++
	call := m.perURL[req.URL]

	seq, ok := m.responses[req.URL]
	if !ok {
		status := m.DefaultStatus
		if status == 0 {
			status = http.StatusNotFound
		}
		return &Response{Status: status, Headers: http.Header{}}, nil
	}

	scripted := seq[len(seq)-1]
	if call <= len(seq) {
		scripted = seq[call-1]
	}

	if scripted.FailFirst >= call {
		if scripted.Err != nil {
			return nil, scripted.Err
		}
		return nil, fmt.Errorf("scripted failure %d for %s", call, req.URL)
	}
	// With FailFirst set, Err only applies to the failing calls.
	if scripted.FailFirst == 0 && scripted.Err != nil {
		return nil, scripted.Err
	}

	status := scripted.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{Status: status, Headers: http.Header{}, Body: scripted.Body}, nil
}

// Calls returns a copy of all requests seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times url was fetched.
func (m *Mock) CallCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perURL[url]
}
