package libs

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/exp/slices"
)

// ToGo converts a Lua value into plain Go values.
// Tables with only consecutive integer keys starting at 1 become []any, other tables map[string]any.
// Functions, userdata and threads become nil.
func ToGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable) any {
	n := t.MaxN()

	var count int
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && count == n {
		list := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			list = append(list, ToGo(t.RawGetInt(i)))
		}
		return list
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		if gv := ToGo(v); gv != nil {
			m[k.String()] = gv
		}
	})
	return m
}

// ToLua converts plain Go values, as produced by ToGo or encoding/json, into Lua values.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []string:
		t := L.CreateTable(len(v), 0)
		for _, s := range v {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(v), 0)
		for _, e := range v {
			t.Append(ToLua(L, e))
		}
		return t
	case map[string]string:
		t := L.CreateTable(0, len(v))
		for _, k := range sortedKeys(v) {
			t.RawSetString(k, lua.LString(v[k]))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(v))
		for _, k := range sortedKeys(v) {
			t.RawSetString(k, ToLua(L, v[k]))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
