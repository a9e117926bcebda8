// Package sandbox loads adapter scripts from a URL and runs them in a restricted Lua state.
//
// A script sees only the globals injected here: lib, proxy, storage, log, print and
// module/exports, on top of the base, table, string, math and coroutine libraries.
// This scopes capabilities inside an interpreter. It is not a security boundary:
// a hostile script can still spin the CPU until its call context is cancelled.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/internal/scraper"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/libs"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/store"
	lua "github.com/yuin/gopher-lua"
)

// Loader creates Scripts.
type Loader struct {
	proxy *proxy.Client
	host  *bridge.Host
	ids   map[string]string
	kv    store.KV

	loadTimeout time.Duration
	callTimeout time.Duration
	libTimeout  time.Duration
	cacheTTL    time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithIDs sets the configured source URL to id mapping.
func WithIDs(ids map[string]string) Option {
	return func(l *Loader) { l.ids = ids }
}

// WithTimeouts bounds loading a script and each call into it. Zero disables the bound.
func WithTimeouts(load, call time.Duration) Option {
	return func(l *Loader) {
		l.loadTimeout = load
		l.callTimeout = call
	}
}

// WithLibTimeout bounds fetching a remote helper library.
func WithLibTimeout(d time.Duration) Option {
	return func(l *Loader) { l.libTimeout = d }
}

// WithCacheTTL enables the response cache for requests scripts mark as cacheable.
func WithCacheTTL(d time.Duration) Option {
	return func(l *Loader) { l.cacheTTL = d }
}

// NewLoader returns a Loader fetching through p. Storage goes through host;
// without one every script gets a private in-memory store.
func NewLoader(p *proxy.Client, host *bridge.Host, opts ...Option) *Loader {
	l := &Loader{
		proxy:       p,
		host:        host,
		kv:          store.NewMemory(),
		loadTimeout: 30 * time.Second,
		callTimeout: 30 * time.Second,
		libTimeout:  10 * time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// FromConfig returns a Loader tuned by the runtime and proxy configuration keys.
func FromConfig(p *proxy.Client, host *bridge.Host) *Loader {
	return NewLoader(p, host,
		WithIDs(config.AdapterIDs()),
		WithTimeouts(config.Seconds(key.RuntimeLoadTimeout), config.Seconds(key.RuntimeCallTimeout)),
		WithLibTimeout(config.Millis(key.RuntimeLibPoll)),
		WithCacheTTL(lo.Ternary(viper.GetInt(key.ProxyCacheTTL) > 0, config.Seconds(key.ProxyCacheTTL), 0)),
	)
}

// Load fetches the script at url through the proxy and loads it.
func (l *Loader) Load(ctx context.Context, url string) (*Script, error) {
	fetchCtx, cancel := l.withLoadTimeout(ctx)
	defer cancel()

	src, err := l.proxy.Get(fetchCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch adapter %s: %w", url, err)
	}

	return l.LoadSource(ctx, url, src)
}

// LoadAdapter loads an adapter from an http(s) URL, a file:// URL or a local path.
func (l *Loader) LoadAdapter(ctx context.Context, location string) (adapter.Adapter, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return l.Load(ctx, location)
	}

	path := strings.TrimPrefix(location, "file://")
	src, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adapter %s: %w", path, err)
	}

	return l.LoadSource(ctx, location, string(src))
}

// LoadSource runs already fetched script text as if it came from url.
func (l *Loader) LoadSource(ctx context.Context, url, src string) (*Script, error) {
	L, preload := newState()

	s := &Script{
		L:             L,
		proxy:         l.proxy,
		host:          l.host,
		fallback:      l.kv,
		provisionalID: adapter.ResolveID(l.ids, "", url),
		callTimeout:   l.callTimeout,
		cacheTTL:      l.cacheTTL,
	}
	s.log = log.With("adapter", s.provisionalID)

	opts := append(s.hostModules(), libs.WithFetchTimeout(l.libTimeout), libs.WithLogger(s.log))
	s.libs = libs.New(L, preload, l.proxy, opts...)

	mod := L.NewTable()
	mod.RawSetString("exports", L.NewTable())
	L.SetGlobal("module", mod)
	L.SetGlobal("exports", mod.RawGetString("exports"))
	L.SetGlobal("lib", s.libs.Bind())
	L.SetGlobal("proxy", s.bindProxy())
	L.SetGlobal("storage", libs.StorageTable(L, s.storageClient()))
	L.SetGlobal("log", s.bindLog())
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		s.log.Infof("%s", joinArgs(L))
		return 0
	}))

	runCtx, cancel := l.withLoadTimeout(ctx)
	defer cancel()

	L.SetContext(runCtx)
	ret, err := scraper.Exec(L, url, src)
	L.RemoveContext()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("run adapter %s: %w", url, err)
	}

	s.exports = exportsOf(L, ret)

	report := adapter.Validate(surfaceOf(s.exports), url, l.ids)
	for _, w := range report.Warnings {
		s.log.Warnf("%s: %s", url, w)
	}
	if err := report.Err(url); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.report = report
	s.caps = report.Caps
	s.methods = report.Methods
	s.desc = adapter.Descriptor{
		ID:              report.ID,
		Name:            report.Name,
		SourceURL:       url,
		IsExternal:      true,
		SupportsPlayURL: report.Caps.PlayURL,
		LoadedAt:        time.Now(),
	}
	s.log = log.With("adapter", report.ID)

	if report.Methods.Init != "" {
		if _, err := s.call(runCtx, report.Methods.Init); err != nil {
			s.log.Warnf("init failed, continuing without it: %s", err)
		}
	}

	return s, nil
}

func (l *Loader) withLoadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.loadTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.loadTimeout)
}

// exportsOf picks the adapter table: module.exports, then the chunk's return value, then exports.
func exportsOf(L *lua.LState, ret lua.LValue) *lua.LTable {
	candidates := []lua.LValue{
		L.GetField(L.GetGlobal("module"), "exports"),
		ret,
		L.GetGlobal("exports"),
	}

	for _, c := range candidates {
		if t, ok := c.(*lua.LTable); ok && !empty(t) {
			return t
		}
	}

	return nil
}

func empty(t *lua.LTable) bool {
	k, _ := t.Next(lua.LNil)
	return k == lua.LNil
}

func surfaceOf(t *lua.LTable) *adapter.Surface {
	if t == nil {
		return nil
	}

	s := &adapter.Surface{
		ID:         scalar(t.RawGetString(constant.AdapterID)),
		Name:       scalar(t.RawGetString(constant.AdapterName)),
		MinVersion: scalar(t.RawGetString(constant.AdapterMinVersion)),
	}

	t.ForEach(func(k, v lua.LValue) {
		if v.Type() == lua.LTFunction {
			s.Methods = append(s.Methods, k.String())
		}
	})

	return s
}
