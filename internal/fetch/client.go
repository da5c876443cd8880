package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	// DefaultTimeout applies when a request carries no explicit timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the downloader to library servers.
	DefaultUserAgent = "mss-downloader/1.0 (+https://github.com/evb0110/mss-downloader-sub014)"

	// maxBodyBytes caps buffered response bodies. Manifests are small;
	// anything larger is a misdirected image download.
	maxBodyBytes = 64 << 20
)

// Client is the production Fetcher backed by net/http.
//
// One Client is created per manuscript resolution. Its cookie jar is shared
// between the verified and insecure transports so a session cookie obtained
// during one resolution is visible to later requests of the same resolution,
// and never leaks across manuscripts.
type Client struct {
	secure    *http.Client
	insecure  *http.Client
	userAgent string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a Client with a fresh, resolution-scoped cookie jar.
func NewClient(opts ...ClientOption) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	c := &Client{
		secure:    &http.Client{Jar: jar},
		insecure:  &http.Client{Jar: jar, Transport: insecureTransport},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch performs the request and buffers the full response body.
// Non-2xx statuses are returned as responses, not errors; callers decide
// what a 403 or 404 means for their protocol.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := c.secure
	if req.InsecureTLS {
		client = c.insecure
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    body,
	}, nil
}
