package sandbox

import (
	lualibs "github.com/metafates/mangal-lua-libs"
	lua "github.com/yuin/gopher-lua"
)

// opened are the standard libraries adapters may use. os, io, debug and channel are left out.
var opened = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

// hidden globals give access to code loading, the module system or interpreter internals.
var hidden = []string{
	"require",
	"module",
	"package",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"collectgarbage",
	"_printregs",
}

// newState returns a restricted state and its package.preload table.
// Helper modules are preloaded but only reachable through the returned table, i.e. through lib.load.
func newState() (*lua.LState, *lua.LTable) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range opened {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	lualibs.Preload(L)
	preload, _ := L.GetField(L.GetGlobal("package"), "preload").(*lua.LTable)

	for _, name := range hidden {
		L.SetGlobal(name, lua.LNil)
	}

	return L, preload
}
