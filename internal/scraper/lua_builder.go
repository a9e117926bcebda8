// Package scraper compiles and installs adapter scripts.
package scraper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

var bytecodeCache sync.Map

// protoKey identifies a prototype by chunk name and content, so an updated script is recompiled.
func protoKey(name, src string) string {
	sum := sha256.Sum256([]byte(src))
	return name + "@" + hex.EncodeToString(sum[:8])
}

// Compile returns the bytecode prototype of src, compiling it at most once per process.
func Compile(name, src string) (*lua.FunctionProto, error) {
	k := protoKey(name, src)
	if cached, ok := bytecodeCache.Load(k); ok {
		return cached.(*lua.FunctionProto), nil
	}

	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	bytecodeCache.Store(k, proto)
	return proto, nil
}

// Exec runs src in L and returns the chunk's first return value, or lua.LNil.
func Exec(L *lua.LState, name, src string) (lua.LValue, error) {
	proto, err := Compile(name, src)
	if err != nil {
		return lua.LNil, err
	}

	top := L.GetTop()
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return lua.LNil, err
	}

	ret := lua.LValue(lua.LNil)
	if L.GetTop() > top {
		ret = L.Get(top + 1)
	}
	L.SetTop(top)

	return ret, nil
}
