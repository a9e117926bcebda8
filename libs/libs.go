// Package libs resolves helper libraries for adapter scripts.
//
// A library is looked up by a symbolic name from Table, or by a literal URL.
// Resolution tries, in order, the per-state cache, a binding already present
// in the state (a global or a preloaded module), and finally a remote fetch
// through the proxy. Total failure yields nil, never an error, so adapters can
// degrade on their own terms.
package libs

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/internal/scraper"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/util"
	lua "github.com/yuin/gopher-lua"
)

// Entry describes a known library.
type Entry struct {
	// Name is shown in logs.
	Name string

	// Global is the binding the library is expected to define.
	Global string

	// Module is the name of a module preloaded into the state, if any.
	Module string

	// URL is fetched when nothing in the state provides the library.
	URL string

	// Validator accepts a candidate value. A nil Validator accepts any non-nil value.
	Validator func(lua.LValue) bool
}

func (e Entry) valid(v lua.LValue) bool {
	if v == lua.LNil {
		return false
	}
	if e.Validator == nil {
		return true
	}
	return e.Validator(v)
}

// HasFunctions returns a validator accepting tables that define every named function.
func HasFunctions(names ...string) func(lua.LValue) bool {
	return func(v lua.LValue) bool {
		t, ok := v.(*lua.LTable)
		if !ok {
			return false
		}
		return lo.EveryBy(names, func(name string) bool {
			return t.RawGetString(name).Type() == lua.LTFunction
		})
	}
}

// Table is the closed set of symbolic library names.
var Table = map[string]Entry{
	"crypto-js": {Name: "crypto-js", Global: "CryptoJS", Module: "crypto", Validator: HasFunctions("md5")},
	"dayjs":     {Name: "dayjs", Global: "dayjs", Module: "time", Validator: HasFunctions("format")},
	"markup":    {Name: "markup", Global: "markup", Module: "html", Validator: HasFunctions("parse")},
	"json":      {Name: "json", Global: "json", Module: "json", Validator: HasFunctions("encode", "decode")},
	"strings":   {Name: "strings", Global: "strings", Module: "strings", Validator: HasFunctions("split")},
	"regexp":    {Name: "regexp", Global: "regexp", Module: "regexp", Validator: HasFunctions("match")},
}

// Loader resolves libraries for a single Lua state. It must only be used from the goroutine driving that state.
type Loader struct {
	L       *lua.LState
	preload *lua.LTable
	fetch   scraper.Fetcher
	table   map[string]Entry
	timeout time.Duration
	log     log.Scoped

	cache   map[string]lua.LValue
	modules map[string]lua.LGFunction
}

// Option configures a Loader.
type Option func(*Loader)

// WithTable replaces the table of known libraries.
func WithTable(table map[string]Entry) Option {
	return func(l *Loader) { l.table = table }
}

// WithFetchTimeout bounds a remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithModule registers a host module resolved by name before any other step.
func WithModule(name string, open lua.LGFunction) Option {
	return func(l *Loader) { l.modules[name] = open }
}

// WithLogger scopes the loader's log entries.
func WithLogger(s log.Scoped) Option {
	return func(l *Loader) { l.log = s }
}

// New returns a Loader for L. preload is the state's package.preload table, captured before
// the package library was hidden from scripts. It may be nil.
func New(L *lua.LState, preload *lua.LTable, fetch scraper.Fetcher, opts ...Option) *Loader {
	l := &Loader{
		L:       L,
		preload: preload,
		fetch:   fetch,
		table:   Table,
		timeout: 10 * time.Second,
		log:     log.With("component", "libs"),
		cache:   make(map[string]lua.LValue),
		modules: make(map[string]lua.LGFunction),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load resolves key, which is either a name from the table, a host module or an http(s) URL.
// It returns lua.LNil when every step fails.
func (l *Loader) Load(ctx context.Context, key string) lua.LValue {
	if v, ok := l.cache[key]; ok {
		return v
	}

	if open, ok := l.modules[key]; ok {
		v := l.call(l.L.NewFunction(open), key)
		if v != lua.LNil {
			l.cache[key] = v
		}
		return v
	}

	entry, ok := l.table[key]
	switch {
	case ok:
	case isURL(key):
		name := NameFromURL(key)
		entry = Entry{Name: name, Global: globalName(name), URL: key}
	default:
		l.log.Warnf("unknown library %q", key)
		return lua.LNil
	}

	v := l.resolve(ctx, entry)
	if v == lua.LNil {
		l.log.Warnf("library %s is unavailable", entry.Name)
		return lua.LNil
	}

	l.cache[key] = v
	return v
}

// Preload loads every key and returns how many resolved.
func (l *Loader) Preload(ctx context.Context, keys ...string) int {
	return lo.CountBy(keys, func(k string) bool {
		return l.Load(ctx, k) != lua.LNil
	})
}

func (l *Loader) resolve(ctx context.Context, e Entry) lua.LValue {
	if e.Global != "" {
		if v := l.L.GetGlobal(e.Global); e.valid(v) {
			return v
		}
	}

	if e.Module != "" && l.preload != nil {
		if fn, ok := l.preload.RawGetString(e.Module).(*lua.LFunction); ok {
			if v := l.call(fn, e.Module); e.valid(v) {
				return v
			} else if v != lua.LNil {
				l.log.Warnf("preloaded module %s failed validation", e.Module)
			}
		}
	}

	if e.URL == "" || l.fetch == nil {
		return lua.LNil
	}

	return l.fetchRemote(ctx, e)
}

func (l *Loader) fetchRemote(ctx context.Context, e Entry) lua.LValue {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	src, err := l.fetch.Get(ctx, e.URL, nil)
	if err != nil {
		l.log.Warnf("fetch %s: %s", e.URL, err)
		return lua.LNil
	}

	ret, err := scraper.Exec(l.L, e.URL, src)
	if err != nil {
		l.log.Warnf("run %s: %s", e.URL, err)
		return lua.LNil
	}

	// A library either returns itself or defines its global.
	if e.valid(ret) {
		return ret
	}
	if e.Global != "" {
		if v := l.L.GetGlobal(e.Global); e.valid(v) {
			return v
		}
	}

	l.log.Warnf("%s did not provide a valid %s", e.URL, e.Name)
	return lua.LNil
}

func (l *Loader) call(fn *lua.LFunction, name string) lua.LValue {
	err := l.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(name))
	if err != nil {
		l.log.Warnf("open %s: %s", name, err)
		return lua.LNil
	}

	v := l.L.Get(-1)
	l.L.Pop(1)
	return v
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

var versionSuffix = regexp.MustCompile(`[-_.@]v?\d+(\.\d+)*$`)

// NameFromURL derives a library name from the file name of its URL, without extensions or version suffix.
func NameFromURL(url string) string {
	url, _, _ = strings.Cut(url, "?")
	url, _, _ = strings.Cut(url, "#")

	name := url[strings.LastIndex(url, "/")+1:]
	for _, ext := range []string{".min.js", ".js", ".lua"} {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	name = strings.TrimSuffix(name, ".min")

	if stripped := versionSuffix.ReplaceAllString(name, ""); stripped != "" {
		name = stripped
	}

	return util.SanitizeFilename(name)
}

// globalName turns a library name such as crypto-js into an identifier such as cryptoJs.
func globalName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})

	for i := 1; i < len(parts); i++ {
		parts[i] = util.Capitalize(parts[i])
	}

	return strings.Join(parts, "")
}
