package store

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestKV(t *testing.T) {
	for name, kv := range map[string]KV{
		"file":   NewFile("/vodkit/storage.json"),
		"memory": NewMemory(),
	} {
		Convey("Given a "+name+" store", t, func() {
			Convey("A missing key is absent", func() {
				So(kv.Get("nope").IsPresent(), ShouldBeFalse)
			})

			Convey("Set then Get returns the value", func() {
				So(kv.Set("bili_cookie", "buvid3=1"), ShouldBeNil)
				So(kv.Get("bili_cookie").MustGet(), ShouldEqual, "buvid3=1")
			})

			Convey("Delete removes the key and tolerates missing keys", func() {
				So(kv.Set("k", "v"), ShouldBeNil)
				So(kv.Delete("k"), ShouldBeNil)
				So(kv.Get("k").IsPresent(), ShouldBeFalse)
				So(kv.Delete("k"), ShouldBeNil)
			})
		})
	}

	Convey("A file store survives reopening", t, func() {
		So(NewFile("/vodkit/reopen.json").Set("a", "1"), ShouldBeNil)
		So(NewFile("/vodkit/reopen.json").Get("a").OrEmpty(), ShouldEqual, "1")
	})
}
