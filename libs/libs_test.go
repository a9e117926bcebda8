package libs

import (
	"context"
	"errors"
	"testing"

	lualibs "github.com/metafates/mangal-lua-libs"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/credcache"
	"github.com/vodkit-cli/vodkit/store"
	lua "github.com/yuin/gopher-lua"
)

type countingFetcher struct {
	bodies map[string]string
	calls  int
}

func (f *countingFetcher) Get(_ context.Context, url string, _ map[string]string) (string, error) {
	f.calls++
	if body, ok := f.bodies[url]; ok {
		return body, nil
	}
	return "", errors.New("404")
}

func newState() (*lua.LState, *lua.LTable) {
	L := lua.NewState()
	lualibs.Preload(L)
	preload := L.GetField(L.GetGlobal("package"), "preload").(*lua.LTable)
	return L, preload
}

func TestLoad(t *testing.T) {
	Convey("Given a loader over a state with preloaded modules", t, func() {
		L, preload := newState()
		defer L.Close()

		fetcher := &countingFetcher{bodies: map[string]string{
			"https://cdn.example.com/helper-1.2.0.lua": `return { greet = function(n) return "hi " .. n end }`,
			"https://cdn.example.com/sign.min.js":      `sign = { hash = function(s) return "#" .. s end }`,
			"https://cdn.example.com/broken.lua":       `return 42`,
		}}
		ctx := context.Background()
		loader := New(L, preload, fetcher)

		Convey("A preloaded module satisfies a table entry", func() {
			v := loader.Load(ctx, "json")
			So(v.Type(), ShouldEqual, lua.LTTable)
			So(v.(*lua.LTable).RawGetString("encode").Type(), ShouldEqual, lua.LTFunction)
		})

		Convey("An existing global wins over the preloaded module", func() {
			markup := L.NewTable()
			markup.RawSetString("parse", L.NewFunction(func(*lua.LState) int { return 0 }))
			L.SetGlobal("markup", markup)

			So(loader.Load(ctx, "markup"), ShouldEqual, markup)
		})

		Convey("A global failing validation is skipped", func() {
			L.SetGlobal("json", lua.LString("not a library"))
			So(loader.Load(ctx, "json").Type(), ShouldEqual, lua.LTTable)
		})

		Convey("A URL is fetched once and cached", func() {
			url := "https://cdn.example.com/helper-1.2.0.lua"
			v := loader.Load(ctx, url)
			So(v.Type(), ShouldEqual, lua.LTTable)
			So(loader.Load(ctx, url), ShouldEqual, v)
			So(fetcher.calls, ShouldEqual, 1)
		})

		Convey("A library defining its global is found after running", func() {
			v := loader.Load(ctx, "https://cdn.example.com/sign.min.js")
			So(v.Type(), ShouldEqual, lua.LTTable)
			So(v.(*lua.LTable).RawGetString("hash").Type(), ShouldEqual, lua.LTFunction)
		})

		Convey("Failures resolve to nil", func() {
			So(loader.Load(ctx, "no-such-library"), ShouldEqual, lua.LNil)
			So(loader.Load(ctx, "https://cdn.example.com/missing.lua"), ShouldEqual, lua.LNil)
			So(loader.Load(ctx, "https://cdn.example.com/broken.lua"), ShouldEqual, lua.LNil)
		})

		Convey("A table entry with only a URL is fetched", func() {
			loader = New(L, preload, fetcher, WithTable(map[string]Entry{
				"helper": {
					Name:      "helper",
					Global:    "helper",
					URL:       "https://cdn.example.com/helper-1.2.0.lua",
					Validator: HasFunctions("greet"),
				},
			}))
			So(loader.Load(ctx, "helper").Type(), ShouldEqual, lua.LTTable)
		})

		Convey("Preload counts resolved libraries", func() {
			So(loader.Preload(ctx, "json", "nope", "https://cdn.example.com/sign.min.js"), ShouldEqual, 2)
		})

		Convey("Scripts reach the loader through the lib table", func() {
			L.SetGlobal("lib", loader.Bind())
			So(L.DoString(`
				local helper = lib.load("https://cdn.example.com/helper-1.2.0.lua")
				greeting = helper.greet("there")
				missing = lib.load("nope")
				count = lib.preload("json", "regexp-nope")
			`), ShouldBeNil)
			So(L.GetGlobal("greeting").String(), ShouldEqual, "hi there")
			So(L.GetGlobal("missing"), ShouldEqual, lua.LNil)
			So(L.GetGlobal("count"), ShouldEqual, lua.LNumber(1))
		})
	})
}

func TestHostModules(t *testing.T) {
	Convey("Given a loader with the host modules", t, func() {
		L, preload := newState()
		defer L.Close()

		kv := store.NewMemory()
		loader := New(L, preload, nil,
			WithModule(StorageBridgeModule, BridgeModule(func(id string) *bridge.Client {
				return bridge.NewDirect(id, kv)
			})),
			WithModule(CredentialCacheModule, CredentialModule(func(string) credcache.Persister {
				return nil
			})),
		)
		L.SetGlobal("lib", loader.Bind())

		Convey("The storage bridge client reads and writes the host store", func() {
			So(L.DoString(`
				local s = lib.load("storage-bridge-client").createStorageBridge("bili")
				s:set("bili_cookie", "buvid3=1")
				got = s:get("bili_cookie")
				s:remove("gone")
				missing = s:get("gone")
				id = s.sourceId
			`), ShouldBeNil)
			So(L.GetGlobal("got").String(), ShouldEqual, "buvid3=1")
			So(L.GetGlobal("missing"), ShouldEqual, lua.LNil)
			So(L.GetGlobal("id").String(), ShouldEqual, "bili")
			So(kv.Get("bili_cookie").MustGet(), ShouldEqual, "buvid3=1")
		})

		Convey("Setting nil removes the key and other values are stored as JSON", func() {
			So(L.DoString(`
				local s = lib.load("storage-bridge-client").createStorageBridge("bili")
				s:set("tbl", {a = 1})
				s:set("flag", true)
				s:set("count", 3)
				s:set("gone", "x")
				s:set("gone", nil)
			`), ShouldBeNil)
			So(kv.Get("tbl").MustGet(), ShouldEqual, `{"a":1}`)
			So(kv.Get("flag").MustGet(), ShouldEqual, "true")
			So(kv.Get("count").MustGet(), ShouldEqual, "3")
			So(kv.Get("gone").IsPresent(), ShouldBeFalse)
		})

		Convey("The credential cache refreshes once while fresh", func() {
			So(L.DoString(`
				local cache = lib.load("credential-cache").new("bili")
				calls = 0
				local function refresh()
					calls = calls + 1
					return { img = "a", sub = "b" }
				end
				first = cache:getOrRefresh("wbi", 600, refresh)
				second = cache:getOrRefresh("wbi", 600, refresh)
			`), ShouldBeNil)
			So(L.GetGlobal("calls"), ShouldEqual, lua.LNumber(1))
			So(L.GetField(L.GetGlobal("second"), "img").String(), ShouldEqual, "a")
		})

		Convey("A failing refresh without a cached value returns nil and the error", func() {
			So(L.DoString(`
				local cache = lib.load("credential-cache").new("bili")
				value, err = cache:getOrRefresh("cookie", 60, function() error("handshake") end)
			`), ShouldBeNil)
			So(L.GetGlobal("value"), ShouldEqual, lua.LNil)
			So(L.GetGlobal("err").String(), ShouldContainSubstring, "handshake")
		})
	})
}

func TestNameFromURL(t *testing.T) {
	Convey("NameFromURL strips extensions and versions", t, func() {
		So(NameFromURL("https://cdn.example.com/npm/crypto-js@4.2.0/crypto-js.min.js"), ShouldEqual, "crypto-js")
		So(NameFromURL("https://cdn.example.com/dayjs.min.js?v=3"), ShouldEqual, "dayjs")
		So(NameFromURL("https://cdn.example.com/helper-1.2.0.lua"), ShouldEqual, "helper")
		So(globalName("crypto-js"), ShouldEqual, "cryptoJs")
	})
}

func TestConvert(t *testing.T) {
	Convey("Lua values convert to plain Go values", t, func() {
		L := lua.NewState()
		defer L.Close()

		So(L.DoString(`v = { list = { 1, 2.5, "x" }, map = { a = true }, fn = function() end }`), ShouldBeNil)

		got := ToGo(L.GetGlobal("v")).(map[string]any)
		So(got["list"], ShouldResemble, []any{int64(1), 2.5, "x"})
		So(got["map"], ShouldResemble, map[string]any{"a": true})
		So(got, ShouldNotContainKey, "fn")

		Convey("and back", func() {
			back := ToLua(L, got).(*lua.LTable)
			So(back.RawGetString("list").(*lua.LTable).RawGetInt(3).String(), ShouldEqual, "x")
		})
	})
}
