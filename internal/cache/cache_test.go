package cache

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/filesystem"
)

func TestCache(t *testing.T) {
	Convey("Given an in-memory cache directory", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()

		prev := Dir
		Dir = func() string { return "/responses" }
		defer func() { Dir = prev }()

		type body struct {
			Status int    `json:"status"`
			Text   string `json:"text"`
		}

		k := GenerateKey("GET", "https://host/search?wd=x", "heimuer")

		Convey("Keys are deterministic and case-insensitive", func() {
			So(k, ShouldEqual, GenerateKey("get", "https://HOST/search?wd=x", "heimuer"))
			So(k, ShouldNotEqual, GenerateKey("POST", "https://host/search?wd=x", "heimuer"))
		})

		Convey("A written entry can be read back within the ttl", func() {
			So(Write(k, body{Status: 200, Text: "ok"}), ShouldBeNil)

			var got body
			So(Read(k, time.Hour, &got), ShouldBeTrue)
			So(got.Text, ShouldEqual, "ok")

			Convey("A zero ttl treats it as expired", func() {
				time.Sleep(time.Millisecond)
				So(Read(k, 0, &got), ShouldBeFalse)
				So(Prune(0), ShouldEqual, 1)
			})
		})

		Convey("A missing entry is a miss", func() {
			var got body
			So(Read("nope", time.Hour, &got), ShouldBeFalse)
		})
	})
}
