package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const dialTimeout = 30 * time.Second

// FingerprintTransport returns a RoundTripper whose TLS handshakes mimic Chrome 120.
//
// Some CDNs reject the Go TLS client hello outright. HTTPS requests are first tried over HTTP/2
// with the full Chrome ALPN list; when that fails they are retried over HTTP/1.1 with http/1.1 forced.
// Plain HTTP requests go through the regular transport.
func FingerprintTransport() http.RoundTripper {
	return &fingerprint{
		plain: Transport(),
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialChrome(ctx, network, addr, []string{"http/1.1"})
			},
		},
	}
}

type fingerprint struct {
	plain *http.Transport
	h1    *http.Transport

	h2     *http2.Transport
	h2Once sync.Once
}

func (f *fingerprint) http2() *http2.Transport {
	f.h2Once.Do(func() {
		f.h2 = &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChrome(ctx, network, addr, nil)
			},
		}
	})
	return f.h2
}

func (f *fingerprint) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return f.plain.RoundTrip(req)
	}

	resp, err := f.http2().RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	// Body must be re-readable for the HTTP/1.1 attempt.
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, gerr := req.GetBody()
		if gerr != nil {
			return nil, err
		}
		retry.Body = body
	}

	resp, h1err := f.h1.RoundTrip(retry)
	if h1err != nil {
		return nil, fmt.Errorf("h2: %v; h1: %w", err, h1err)
	}
	return resp, nil
}

// dialChrome opens a TCP connection and performs a uTLS handshake with the Chrome 120 hello.
// nextProtos overrides the advertised ALPN list when set.
func dialChrome(ctx context.Context, network, addr string, nextProtos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: nextProtos,
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
