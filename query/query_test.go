package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/key"
)

func TestQuery(t *testing.T) {
	Convey("Given remembered keywords", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		viper.Set(key.SearchShowQuerySuggestions, true)

		So(Remember("heimuer", "Naruto", 1), ShouldBeNil)
		So(Remember("heimuer", "bleach", 10), ShouldBeNil)
		So(Remember("mock", "blue lock", 3), ShouldBeNil)
		So(Remember("mock", "   ", 3), ShouldBeNil)

		Convey("Suggestions are sorted by rank", func() {
			So(SuggestMany("", "bl"), ShouldResemble, []string{"bleach", "blue lock"})
		})

		Convey("Suggestions are scoped to an adapter", func() {
			So(SuggestMany("mock", "bl"), ShouldResemble, []string{"blue lock"})
			So(Suggest("heimuer", "NAR").MustGet(), ShouldEqual, "naruto")
		})

		Convey("Repeated keywords add up", func() {
			So(Remember("mock", "naruto", 20), ShouldBeNil)
			So(Suggest("", "naru").MustGet(), ShouldEqual, "naruto")
		})

		Convey("Disabled suggestions return nothing", func() {
			viper.Set(key.SearchShowQuerySuggestions, false)
			defer viper.Set(key.SearchShowQuerySuggestions, true)
			So(SuggestMany("", "bl"), ShouldBeEmpty)
		})
	})
}

func TestClosest(t *testing.T) {
	Convey("Closest", t, func() {
		ids := []string{"heimuer", "wolong", "mock"}
		So(Closest("heimuar", ids).MustGet(), ShouldEqual, "heimuer")
		So(Closest("zzzzzzzz", ids).IsPresent(), ShouldBeFalse)
		So(Closest("x", nil).IsPresent(), ShouldBeFalse)
	})
}
