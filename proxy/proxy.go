// Package proxy routes every adapter network request through a fetch proxy.
//
// Add rewrites a target URL into a proxy URL, Handler serves the proxy endpoint,
// and Client issues proxied requests either to a remote proxy or to an in-process Handler.
package proxy

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/vodkit-cli/vodkit/constant"
)

// Path is the proxy endpoint path.
const Path = "/api/proxy"

// legacyMarker is the proxy path older web clients emitted.
const legacyMarker = "/app/proxy?"

var absoluteURL = regexp.MustCompile(`^https?://`)

// forwarded lists the only headers that travel inside the proxy URL, in encoding order.
type forwarded struct {
	Referer   string `json:"Referer,omitempty"`
	UserAgent string `json:"User-Agent,omitempty"`
	Cookie    string `json:"Cookie,omitempty"`
}

// Add rewrites target into a proxy URL of the form /api/proxy?[headers=<json>&]url=<target>.
// Only the Referer, User-Agent and Cookie headers are carried.
// An empty target yields "" and a URL that is already proxied is returned unchanged, so Add is idempotent.
func Add(target string, headers map[string]string) string {
	if target == "" {
		return ""
	}

	if strings.Contains(target, constant.ProxyMarker) {
		return target
	}
	if strings.Contains(target, legacyMarker) {
		return strings.Replace(target, legacyMarker, constant.ProxyMarker, 1)
	}

	var b strings.Builder
	b.WriteString(Path)
	b.WriteByte('?')

	if h, ok := pickHeaders(headers); ok {
		b.WriteString("headers=")
		b.WriteString(encodeComponent(h))
		b.WriteByte('&')
	}

	if !absoluteURL.MatchString(target) {
		if strings.HasPrefix(target, "//") {
			target = "http:" + target
		} else {
			target = "http://" + target
		}
	}

	b.WriteString("url=")
	b.WriteString(encodeComponent(target))
	return b.String()
}

func pickHeaders(headers map[string]string) (string, bool) {
	var f forwarded
	for k, v := range headers {
		switch strings.ToLower(k) {
		case "referer":
			f.Referer = v
		case "user-agent":
			f.UserAgent = v
		case "cookie":
			f.Cookie = v
		}
	}

	if f == (forwarded{}) {
		return "", false
	}

	b, err := json.Marshal(f)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// encodeComponent escapes s the way browsers' encodeURIComponent does, so proxy URLs
// produced here match the ones produced by web clients of the same proxy.
func encodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return componentUnescaper.Replace(escaped)
}

var componentUnescaper = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Target extracts the upstream URL and forwarded headers from a proxy query.
func Target(query url.Values) (target string, headers map[string]string, err error) {
	target = query.Get("url")
	if raw := query.Get("headers"); raw != "" {
		if err = json.Unmarshal([]byte(raw), &headers); err != nil {
			return target, nil, err
		}
	}
	return target, headers, nil
}
