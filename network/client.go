// Package network provides the pre-configured HTTP clients and transports shared across the application.
package network

import (
	"net/http"
	"time"

	"github.com/vodkit-cli/vodkit/constant"
)

// Client is the singleton HTTP client used for host-side requests such as the settings endpoint.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: &userAgent{base: Transport()},
}

// Transport returns a tuned http.Transport with raised pool limits.
func Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}

// userAgent sets the default User-Agent on requests that carry none.
type userAgent struct {
	base http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", constant.UserAgent)
	return u.base.RoundTrip(clone)
}
