package libs

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// Bind returns the table exposed to scripts as the lib global.
//
//	lib.load(key)          -> library or nil
//	lib.preload(key, ...)  -> number of libraries resolved
func (l *Loader) Bind() *lua.LTable {
	return l.L.SetFuncs(l.L.NewTable(), map[string]lua.LGFunction{
		"load": func(L *lua.LState) int {
			L.Push(l.Load(l.context(), L.CheckString(1)))
			return 1
		},
		"preload": func(L *lua.LState) int {
			keys := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				keys = append(keys, L.CheckString(i))
			}
			L.Push(lua.LNumber(l.Preload(l.context(), keys...)))
			return 1
		},
	})
}

func (l *Loader) context() context.Context {
	if ctx := l.L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
