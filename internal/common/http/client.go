// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"
)

// Client is the outbound HTTP client shared by the chat-completion transport.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client with the given overall timeout that stamps
// userAgent on every request. An empty userAgent leaves the header alone.
func NewClient(timeout time.Duration, userAgent string) *Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = 4
	base.IdleConnTimeout = 90 * time.Second

	var rt http.RoundTripper = base
	if userAgent != "" {
		rt = &userAgentTransport{next: base, userAgent: userAgent}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
	}
}

// HTTPClient exposes the underlying *http.Client for SDKs that accept one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
