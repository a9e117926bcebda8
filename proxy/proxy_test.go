package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAdd(t *testing.T) {
	Convey("Add", t, func() {
		Convey("Empty input yields empty output", func() {
			So(Add("", nil), ShouldEqual, "")
		})

		Convey("Encodes the target as a query component", func() {
			So(Add("https://a.com/x?y=1 2", nil), ShouldEqual, "/api/proxy?url=https%3A%2F%2Fa.com%2Fx%3Fy%3D1%202")
		})

		Convey("Is idempotent", func() {
			once := Add("https://a.com/x?y=1", map[string]string{"Referer": "https://a.com"})
			So(Add(once, nil), ShouldEqual, once)
			So(Add(once, map[string]string{"Cookie": "a=b"}), ShouldEqual, once)
		})

		Convey("Rewrites the legacy proxy path", func() {
			So(Add("/app/proxy?url=https%3A%2F%2Fa.com", nil), ShouldEqual, "/api/proxy?url=https%3A%2F%2Fa.com")
		})

		Convey("Keeps only the forwarded headers, in a fixed order", func() {
			got := Add("https://a.com/", map[string]string{
				"cookie":       "sid=1",
				"X-Ignored":    "yes",
				"referer":      "https://a.com/",
				"User-Agent":   "ua",
				"Content-Type": "text/plain",
			})

			u, err := url.Parse(got)
			So(err, ShouldBeNil)
			So(u.Path, ShouldEqual, Path)
			So(u.Query().Get("headers"), ShouldEqual, `{"Referer":"https://a.com/","User-Agent":"ua","Cookie":"sid=1"}`)
			So(u.Query().Get("url"), ShouldEqual, "https://a.com/")
			So(strings.Index(got, "headers="), ShouldBeLessThan, strings.Index(got, "url="))
		})

		Convey("Omits the headers parameter when nothing is forwarded", func() {
			So(Add("https://a.com/", map[string]string{"Accept": "*/*"}), ShouldNotContainSubstring, "headers=")
		})

		Convey("Completes URLs without a scheme", func() {
			u, _ := url.Parse(Add("//cdn.a.com/lib.js", nil))
			So(u.Query().Get("url"), ShouldEqual, "http://cdn.a.com/lib.js")

			u, _ = url.Parse(Add("a.com/x", nil))
			So(u.Query().Get("url"), ShouldEqual, "http://a.com/x")
		})

		Convey("Leaves component-safe characters alone", func() {
			So(encodeComponent("a!b'c(d)e*f"), ShouldEqual, "a!b'c(d)e*f")
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given an upstream server", t, func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			http.SetCookie(w, &http.Cookie{Name: "buvid3", Value: "abc"})
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1"})
			w.Header().Set("X-Method", r.Method)
			w.Header().Set("X-Referer", r.Header.Get("Referer"))
			w.Header().Set("X-UA", r.Header.Get("User-Agent"))
			w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
			if r.URL.Path == "/missing" {
				w.WriteHeader(http.StatusNotFound)
			}
			_, _ = w.Write(body)
		}))
		defer upstream.Close()

		client := NewLocalClient(NewHandler(5*time.Second, false))
		ctx := context.Background()

		Convey("A GET is forwarded with default headers", func() {
			resp, err := client.Do(ctx, Request{URL: upstream.URL + "/x"})
			So(err, ShouldBeNil)
			So(resp.Status, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("X-Method"), ShouldEqual, http.MethodGet)
			So(resp.Header.Get("X-UA"), ShouldNotBeEmpty)
			So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})

		Convey("The method, body and headers are kept", func() {
			resp, err := client.Do(ctx, Request{
				Method:  http.MethodPost,
				URL:     upstream.URL + "/x",
				Headers: map[string]string{"Referer": "https://ref.example/", "X-Custom": "1"},
				Body:    `{"a":1}`,
			})
			So(err, ShouldBeNil)
			So(resp.Header.Get("X-Method"), ShouldEqual, http.MethodPost)
			So(resp.Header.Get("X-Referer"), ShouldEqual, "https://ref.example/")
			So(resp.Header.Get("X-Custom"), ShouldEqual, "1")
			So(resp.Body, ShouldEqual, `{"a":1}`)
		})

		Convey("Upstream cookies are exposed", func() {
			resp, err := client.Do(ctx, Request{URL: upstream.URL})
			So(err, ShouldBeNil)
			So(resp.Cookies, ShouldEqual, "buvid3=abc; sid=1")
		})

		Convey("Non-2xx responses are errors", func() {
			resp, err := client.Do(ctx, Request{URL: upstream.URL + "/missing"})
			var serr *StatusError
			So(errors.As(err, &serr), ShouldBeTrue)
			So(serr.Status, ShouldEqual, http.StatusNotFound)
			So(resp, ShouldNotBeNil)
		})

		Convey("A remote proxy serves the same way", func() {
			srv := httptest.NewServer(NewHandler(5*time.Second, false))
			defer srv.Close()

			remote := NewClient(srv.URL+"/", srv.Client())
			body, err := remote.Get(ctx, upstream.URL, map[string]string{"User-Agent": "vodkit-test"})
			So(err, ShouldBeNil)
			So(body, ShouldEqual, "")
		})

		Convey("A request without url is rejected", func() {
			rec := httptest.NewRecorder()
			NewHandler(time.Second, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
