package libs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/credcache"
	lua "github.com/yuin/gopher-lua"
)

// Host module names.
const (
	StorageBridgeModule   = "storage-bridge-client"
	CredentialCacheModule = "credential-cache"
)

// BridgeModule opens the storage-bridge-client module.
//
//	local s = lib.load("storage-bridge-client").createStorageBridge("bili")
//	s:set("k", "v"); s:get("k"); s:remove("k")
//
// connect returns the bridge client for a source id.
func BridgeModule(connect func(sourceID string) *bridge.Client) lua.LGFunction {
	return func(L *lua.LState) int {
		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"createStorageBridge": func(L *lua.LState) int {
				L.Push(StorageTable(L, connect(L.CheckString(1))))
				return 1
			},
		})
		L.Push(mod)
		return 1
	}
}

// StorageTable wraps a bridge client into a table with get, set and remove methods.
// get returns nil when the key is unset or the host did not answer in time.
// set with nil removes the key; values other than strings and numbers are stored as JSON.
func StorageTable(L *lua.LState, c *bridge.Client) *lua.LTable {
	ctx := func(L *lua.LState) context.Context {
		if ctx := L.Context(); ctx != nil {
			return ctx
		}
		return context.Background()
	}

	t := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, presence := c.Get(ctx(L), L.CheckString(2))
			if presence != bridge.Present {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(v))
			return 1
		},
		"set": func(L *lua.LState) int {
			key := L.CheckString(2)
			switch v := L.Get(3); v.Type() {
			case lua.LTNil:
				c.Remove(key)
			case lua.LTString, lua.LTNumber:
				c.Set(key, lua.LVAsString(v))
			default:
				b, err := json.Marshal(ToGo(v))
				if err != nil {
					L.ArgError(3, err.Error())
					return 0
				}
				c.Set(key, string(b))
			}
			return 0
		},
		"remove": func(L *lua.LState) int {
			c.Remove(L.CheckString(2))
			return 0
		},
	})
	t.RawSetString("sourceId", lua.LString(c.SourceID()))
	return t
}

// CredentialModule opens the credential-cache module.
//
//	local cache = lib.load("credential-cache").new("bili")
//	local value, err = cache:getOrRefresh("cookie", 1800, function() return fetch() end)
//
// persister returns where a namespace's entries survive restarts and may return nil.
func CredentialModule(persister func(namespace string) credcache.Persister) lua.LGFunction {
	return func(L *lua.LState) int {
		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"new": func(L *lua.LState) int {
				namespace := L.CheckString(1)

				var opts []credcache.Option[any]
				if p := persister(namespace); p != nil {
					opts = append(opts, credcache.WithPersister[any](p))
				}

				L.Push(cacheTable(L, credcache.New[any](namespace, opts...)))
				return 1
			},
		})
		L.Push(mod)
		return 1
	}
}

func cacheTable(L *lua.LState, cache *credcache.Cache[any]) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"getOrRefresh": func(L *lua.LState) int {
			k := L.CheckString(2)
			ttl := time.Duration(float64(L.CheckNumber(3)) * float64(time.Second))
			refresh := L.CheckFunction(4)

			ctx := L.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			v, err := cache.GetOrRefresh(ctx, k, ttl, func(context.Context) (any, error) {
				if err := L.CallByParam(lua.P{Fn: refresh, NRet: 1, Protect: true}); err != nil {
					return nil, err
				}
				ret := L.Get(-1)
				L.Pop(1)
				return ToGo(ret), nil
			})
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}

			L.Push(ToLua(L, v))
			return 1
		},
		"invalidate": func(L *lua.LState) int {
			cache.Invalidate(L.CheckString(2))
			return 0
		},
	})
}
