package sandbox

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vodkit-cli/vodkit/internal/cache"
	"github.com/vodkit-cli/vodkit/libs"
	"github.com/vodkit-cli/vodkit/proxy"
	lua "github.com/yuin/gopher-lua"
)

// cachedResponse is what a cacheable proxied request leaves on disk.
type cachedResponse struct {
	Status  int    `json:"status"`
	Body    string `json:"body"`
	Cookies string `json:"cookies,omitempty"`
}

// bindProxy returns the proxy global.
//
//	proxy.url(target, headers)           -> proxied path
//	proxy.get(target, {headers, cache})  -> body | nil, err
//	proxy.request{method, url, headers, body, cache} -> {status, body, cookies, headers} | nil, err
func (s *Script) bindProxy() *lua.LTable {
	L := s.L
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"url": func(L *lua.LState) int {
			L.Push(lua.LString(proxy.Add(L.CheckString(1), stringMap(L.OptTable(2, nil)))))
			return 1
		},
		"get": func(L *lua.LState) int {
			opts := L.OptTable(2, L.NewTable())
			resp, err := s.fetch(s.context(), proxy.Request{
				Method:  http.MethodGet,
				URL:     L.CheckString(1),
				Headers: stringMap(tableField(opts, "headers")),
			}, lua.LVAsBool(opts.RawGetString("cache")))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(resp.Body))
			return 1
		},
		"request": func(L *lua.LState) int {
			opts := L.CheckTable(1)
			resp, err := s.fetch(s.context(), proxy.Request{
				Method:  strings.ToUpper(lua.LVAsString(opts.RawGetString("method"))),
				URL:     lua.LVAsString(opts.RawGetString("url")),
				Headers: stringMap(tableField(opts, "headers")),
				Body:    lua.LVAsString(opts.RawGetString("body")),
			}, lua.LVAsBool(opts.RawGetString("cache")))

			var status *proxy.StatusError
			if err != nil && !errors.As(err, &status) {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}

			t := L.NewTable()
			t.RawSetString("status", lua.LNumber(resp.Status))
			t.RawSetString("body", lua.LString(resp.Body))
			t.RawSetString("cookies", lua.LString(resp.Cookies))
			headers := L.NewTable()
			for k := range resp.Header {
				headers.RawSetString(strings.ToLower(k), lua.LString(resp.Header.Get(k)))
			}
			t.RawSetString("headers", headers)
			L.Push(t)
			return 1
		},
	})
}

// fetch sends req through the proxy. Successful GET responses are served from and saved to
// the response cache when cacheable is set.
func (s *Script) fetch(ctx context.Context, req proxy.Request, cacheable bool) (*proxy.Response, error) {
	if req.URL == "" {
		return nil, errors.New("proxy: url is required")
	}

	cacheable = cacheable && s.cacheTTL > 0 && (req.Method == "" || req.Method == http.MethodGet)
	key := cache.GenerateKey(s.id(), req.Method, req.URL, req.Headers["Cookie"])

	if cacheable {
		var hit cachedResponse
		if cache.Read(key, s.cacheTTL, &hit) {
			return &proxy.Response{Status: hit.Status, Body: hit.Body, Cookies: hit.Cookies, Header: http.Header{}}, nil
		}
	}

	resp, err := s.proxy.Do(ctx, req)
	if err != nil {
		return resp, err
	}

	if cacheable {
		if err := cache.Write(key, cachedResponse{Status: resp.Status, Body: resp.Body, Cookies: resp.Cookies}); err != nil {
			s.log.Warnf("cache %s: %s", req.URL, err)
		}
	}

	return resp, nil
}

// bindLog returns the log global. Entries carry the adapter id.
func (s *Script) bindLog() *lua.LTable {
	L := s.L
	emit := func(f func(string, ...any)) lua.LGFunction {
		return func(L *lua.LState) int {
			f("%s", joinArgs(L))
			return 0
		}
	}

	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": emit(func(format string, args ...any) { s.log.Debugf(format, args...) }),
		"info":  emit(func(format string, args ...any) { s.log.Infof(format, args...) }),
		"warn":  emit(func(format string, args ...any) { s.log.Warnf(format, args...) }),
		"error": emit(func(format string, args ...any) { s.log.Errorf(format, args...) }),
	})
}

func joinArgs(L *lua.LState) string {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, " ")
}

func tableField(t *lua.LTable, name string) *lua.LTable {
	if t == nil {
		return nil
	}
	field, _ := t.RawGetString(name).(*lua.LTable)
	return field
}

func stringMap(t *lua.LTable) map[string]string {
	if t == nil {
		return nil
	}

	m := make(map[string]string)
	t.ForEach(func(k, v lua.LValue) {
		if v != lua.LNil {
			m[k.String()] = v.String()
		}
	})
	return m
}

// hostModules are the modules lib.load resolves from the host.
func (s *Script) hostModules() []libs.Option {
	return []libs.Option{
		libs.WithModule(libs.StorageBridgeModule, libs.BridgeModule(s.connect)),
		libs.WithModule(libs.CredentialCacheModule, libs.CredentialModule(s.persister)),
	}
}
