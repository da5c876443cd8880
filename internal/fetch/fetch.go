// Package fetch defines the HTTP capability injected into every library
// adapter. Adapters never touch a global http.Client; they receive a Fetcher
// so that timeout, header, and TLS policy stay uniform and tests can swap in
// a scripted mock.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Request describes a single metadata or probe request.
type Request struct {
	// Method is the HTTP method. Defaults to GET when empty.
	Method string

	// URL is the fully-qualified request URL.
	URL string

	// Headers are added to the request verbatim.
	Headers map[string]string

	// Timeout bounds the whole request including body read.
	// Zero means the client default.
	Timeout time.Duration

	// InsecureTLS disables certificate verification for this request only.
	// Reserved for the short list of legacy hosts with broken chains;
	// never enabled globally.
	InsecureTLS bool
}

// Response is a fully-buffered HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher performs HTTP requests on behalf of an adapter.
// Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
