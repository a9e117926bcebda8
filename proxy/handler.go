package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/network"
)

// CookieHeader exposes the cookies set by the upstream response as "name=value; name2=value2".
const CookieHeader = "X-Proxy-Cookies"

var (
	skipRequest  = []string{"Host", "Connection", "Content-Length"}
	skipResponse = []string{"Connection", "Transfer-Encoding"}
)

// Handler forwards proxy requests upstream, keeping the method, body and headers of the inbound request.
type Handler struct {
	client *http.Client
}

// NewHandler returns a Handler whose upstream requests time out after timeout.
// With fingerprint set, upstream TLS handshakes mimic a browser.
func NewHandler(timeout time.Duration, fingerprint bool) *Handler {
	var transport http.RoundTripper = network.Transport()
	if fingerprint {
		transport = network.FingerprintTransport()
	}

	return &Handler{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, custom, err := Target(r.URL.Query())
	if err != nil {
		log.Warnf("proxy: ignoring malformed headers parameter: %s", err)
	}

	if target == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	var body io.Reader
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upstream request")
		return
	}

	for k, values := range r.Header {
		if lo.Contains(skipRequest, k) {
			continue
		}
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Headers carried in the proxy URL override the inbound ones.
	for k, v := range custom {
		if k != "" && v != "" {
			req.Header.Set(k, v)
		}
	}

	setDefault(req.Header, "User-Agent", constant.UserAgent)
	setDefault(req.Header, "Accept", "*/*")
	setDefault(req.Header, "Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		log.Errorf("proxy: %s %s: %s", r.Method, target, err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	for k, values := range resp.Header {
		if lo.Contains(skipResponse, k) {
			continue
		}
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}

	if cookies := resp.Cookies(); len(cookies) > 0 {
		w.Header().Set(CookieHeader, strings.Join(lo.Map(cookies, func(c *http.Cookie, _ int) string {
			return c.Name + "=" + c.Value
		}), "; "))
	}

	setCORS(w.Header())
	w.WriteHeader(resp.StatusCode)

	log.Debugf("proxy: %s %s -> %d", r.Method, target, resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warnf("proxy: copy response of %s: %s", target, err)
	}
}

func setDefault(h http.Header, k, v string) {
	if h.Get(k) == "" {
		h.Set(k, v)
	}
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
	h.Set("Access-Control-Expose-Headers", CookieHeader)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	setCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": status, "msg": msg})
}
