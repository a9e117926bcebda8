package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/internal/cache"
	"github.com/vodkit-cli/vodkit/proxy"
)

const searchJSON = `{
	"code": 1,
	"msg": "ok",
	"page": 1,
	"pagecount": "3",
	"limit": "20",
	"total": 41,
	"list": [
		{"vod_id": 77, "vod_name": "Naruto", "type_name": "Anime", "vod_year": 2002, "vod_remarks": "HD"}
	]
}`

const detailJSON = `{
	"code": 1,
	"list": [{
		"vod_id": "77",
		"vod_name": "Naruto",
		"vod_content": "<p>A young <b>ninja</b>.</p>",
		"vod_play_from": "m3u8$$$mp4",
		"vod_play_url": "1$https://cdn/1.m3u8#2$https://cdn/2.m3u8$$$1$https://cdn/1.mp4",
		"vod_remarks": "HD",
		"vod_time": "2024-01-02 03:04:05"
	}]
}`

const searchXML = `<?xml version="1.0" encoding="utf-8"?>
<rss version="5.1">
<list page="2" pagecount="5" pagesize="10" recordcount="48">
<video>
	<last>2024-01-02</last>
	<id>12</id>
	<name><![CDATA[One Piece]]></name>
	<type>Anime</type>
	<year>1999</year>
	<note>ongoing</note>
	<des><![CDATA[Pirates.]]></des>
	<dl><dd flag="m3u8"><![CDATA[1$https://cdn/op1.m3u8]]></dd></dl>
</video>
</list>
</rss>`

func newSite(hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()

		switch {
		case r.URL.Path == "/xml":
			_, _ = w.Write([]byte(searchXML))
		case r.URL.Path == "/broken":
			_, _ = w.Write([]byte(`{"code": -2, "msg": "banned"}`))
		case q.Get("ids") == "77":
			_, _ = w.Write([]byte(detailJSON))
		case q.Get("ids") != "":
			_, _ = w.Write([]byte(`{"code": 1, "list": []}`))
		default:
			_, _ = w.Write([]byte(searchJSON))
		}
	}))
}

func TestVOD(t *testing.T) {
	Convey("Given a collection site behind the in-process proxy", t, func() {
		var hits atomic.Int32
		site := newSite(&hits)
		defer site.Close()

		fetch := proxy.NewLocalClient(proxy.NewHandler(5*time.Second, false))
		ctx := context.Background()

		Convey("Search maps the JSON list onto a page", func() {
			v := NewVOD("site", "Site", site.URL+"/api.php/provide/vod", false, fetch, 0)
			p, err := v.Search(ctx, "naruto", 1, 20)
			So(err, ShouldBeNil)
			So(p.Total, ShouldEqual, 41)
			So(p.PageCount, ShouldEqual, 3)
			So(p.PageSize, ShouldEqual, 20)
			So(p.Items, ShouldHaveLength, 1)
			So(p.Items[0], ShouldResemble, adapter.Item{ID: "77", Title: "Naruto", Type: "Anime", Year: "2002", Remarks: "HD"})
		})

		Convey("Detail parses every playlist", func() {
			v := NewVOD("site", "", site.URL, false, fetch, 0)
			So(v.Descriptor().Name, ShouldEqual, "Site")

			d, err := v.Detail(ctx, "77")
			So(err, ShouldBeNil)
			So(d.Description, ShouldEqual, "A young ninja.")
			So(d.Episodes, ShouldHaveLength, 3)
			So(d.Episodes[2], ShouldResemble, adapter.Episode{Name: "1", URL: "https://cdn/1.mp4", Group: "mp4"})
			So(d.Extra["updated_at"], ShouldEqual, "2024-01-02 03:04:05")

			Convey("An empty list is not found", func() {
				_, err := v.Detail(ctx, "1")
				So(errors.Is(err, adapter.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("The XML feed is mapped the same way", func() {
			v := NewVOD("xml", "XML", site.URL+"/xml", true, fetch, 0)
			p, err := v.Search(ctx, "one", 2, 10)
			So(err, ShouldBeNil)
			So(p.Page, ShouldEqual, 2)
			So(p.Total, ShouldEqual, 48)
			So(p.Items[0].Title, ShouldEqual, "One Piece")
			So(p.Items[0].Remarks, ShouldEqual, "ongoing")
		})

		Convey("A failure code is an error", func() {
			v := NewVOD("broken", "Broken", site.URL+"/broken", false, fetch, 0)
			_, err := v.Search(ctx, "x", 1, 20)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "banned")
		})

		Convey("PlayURL is unsupported", func() {
			v := NewVOD("site", "Site", site.URL, false, fetch, 0)
			_, err := v.PlayURL(ctx, "77", nil)
			So(errors.Is(err, adapter.ErrUnsupported), ShouldBeTrue)
		})

		Convey("Responses are cached when a ttl is set", func() {
			filesystem.SetMemMapFs()
			defer filesystem.SetOsFs()

			prev := cache.Dir
			cache.Dir = func() string { return "/responses" }
			defer func() { cache.Dir = prev }()

			v := NewVOD("site", "Site", site.URL, false, fetch, time.Hour)
			_, err := v.Search(ctx, "naruto", 1, 20)
			So(err, ShouldBeNil)
			again, err := v.Search(ctx, "naruto", 1, 20)
			So(err, ShouldBeNil)
			So(again.Total, ShouldEqual, 41)
			So(hits.Load(), ShouldEqual, 1)
		})
	})
}

func TestStripTags(t *testing.T) {
	Convey("stripTags keeps only the text of descriptions", t, func() {
		So(stripTags("<p>A young <b>ninja</b>.</p>"), ShouldEqual, "A young ninja.")
		So(stripTags(`<img alt="a > b" src="x.jpg">Tom &amp; Jerry&nbsp;&lt;3`), ShouldEqual, "Tom & Jerry\u00a0<3")
		So(stripTags("  plain text "), ShouldEqual, "plain text")
		So(stripTags(""), ShouldEqual, "")
	})
}

func TestFlexString(t *testing.T) {
	Convey("flexString accepts strings, numbers and null", t, func() {
		var v struct {
			A flexString `json:"a"`
			B flexString `json:"b"`
			C flexString `json:"c"`
		}
		So(json.Unmarshal([]byte(`{"a": "12", "b": 34, "c": null}`), &v), ShouldBeNil)
		So(v.A.Int(), ShouldEqual, 12)
		So(v.B.Int(), ShouldEqual, 34)
		So(string(v.C), ShouldBeEmpty)
		So(json.Unmarshal([]byte(`{"a": true}`), &v), ShouldNotBeNil)
	})
}

func TestMock(t *testing.T) {
	Convey("Given the mock adapter", t, func() {
		ctx := context.Background()
		m := Mock{}

		Convey("Search matches titles and descriptions case-insensitively", func() {
			p, err := m.Search(ctx, "PIRATES", 1, 10)
			So(err, ShouldBeNil)
			So(p.Total, ShouldEqual, 1)
			So(p.Items[0].Title, ShouldEqual, "One Piece")
		})

		Convey("Search pages through matches", func() {
			p, _ := m.Search(ctx, "", 2, 3)
			So(p.Total, ShouldEqual, 4)
			So(p.Items, ShouldHaveLength, 1)

			p, _ = m.Search(ctx, "", 5, 3)
			So(p.Items, ShouldBeEmpty)
		})

		Convey("Detail returns a copy", func() {
			d, err := m.Detail(ctx, "1001")
			So(err, ShouldBeNil)
			So(d.Episodes, ShouldHaveLength, 3)
			d.Episodes[0].Name = "changed"

			again, _ := m.Detail(ctx, "1001")
			So(again.Episodes[0].Name, ShouldEqual, "1")
		})

		Convey("Records without episodes are not found", func() {
			_, err := m.Detail(ctx, "1003")
			So(errors.Is(err, adapter.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestFromSources(t *testing.T) {
	Convey("FromSources skips entries without a base url", t, func() {
		adapters := FromSources([]config.VODSource{
			{Name: "Hei Muer", BaseURL: "https://a.example/api.php/provide/vod"},
			{Name: "empty", BaseURL: " "},
		}, nil, 0)

		So(adapters, ShouldHaveLength, 1)
		So(adapters[0].Descriptor().ID, ShouldEqual, "hei_muer")
		So(adapters[0].Descriptor().Name, ShouldEqual, "Hei Muer")
	})

	Convey("IDFromName lowercases and sanitizes", t, func() {
		So(IDFromName("Big/Site?"), ShouldEqual, "big_site")
	})
}
