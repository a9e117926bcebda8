package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/network"
)

// Request is a request an adapter wants to make upstream.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Response is the upstream response as seen through the proxy.
type Response struct {
	Status  int
	Body    string
	Header  http.Header
	Cookies string
}

// StatusError is returned for upstream responses outside the 2xx range.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d", e.URL, e.Status)
}

// Client issues requests through the proxy.
type Client struct {
	base    string
	http    *http.Client
	handler http.Handler
}

// NewClient returns a Client talking to the proxy served at base, e.g. https://example.com.
func NewClient(base string, client *http.Client) *Client {
	return &Client{base: strings.TrimRight(base, "/"), http: client}
}

// NewLocalClient returns a Client that serves every request with h in-process.
func NewLocalClient(h http.Handler) *Client {
	return &Client{handler: h}
}

// Get fetches target and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, target string, headers map[string]string) (string, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, URL: target, Headers: headers})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// Do sends req through the proxy. Non-2xx responses are returned together with a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	proxied := Add(req.URL, req.Headers)
	if proxied == "" {
		return nil, fmt.Errorf("proxy: empty url")
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	base := c.base
	if c.handler != nil {
		base = "http://proxy.local"
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, base+proxied, body)
	if err != nil {
		return nil, fmt.Errorf("proxy: build request: %w", err)
	}

	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	var hresp *http.Response
	if c.handler != nil {
		rec := httptest.NewRecorder()
		c.handler.ServeHTTP(rec, hreq)
		hresp = rec.Result()
	} else {
		hresp, err = c.http.Do(hreq)
		if err != nil {
			return nil, fmt.Errorf("proxy: %s %s: %w", req.Method, req.URL, err)
		}
	}
	defer hresp.Body.Close()

	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("proxy: read %s: %w", req.URL, err)
	}

	resp := &Response{
		Status:  hresp.StatusCode,
		Body:    string(b),
		Header:  hresp.Header,
		Cookies: hresp.Header.Get(CookieHeader),
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		return resp, &StatusError{URL: req.URL, Status: hresp.StatusCode}
	}

	return resp, nil
}

// FromConfig returns a Client for the configured remote proxy, or an in-process one when none is set.
func FromConfig() *Client {
	if base := viper.GetString(key.ProxyBaseURL); base != "" {
		return NewClient(base, network.Client)
	}

	return NewLocalClient(NewHandler(config.Seconds(key.ProxyTimeout), viper.GetBool(key.ProxyTLSFingerprint)))
}
