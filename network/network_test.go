package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/constant"
)

func TestClient(t *testing.T) {
	Convey("Given an upstream echoing the User-Agent", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
		}))
		defer srv.Close()

		Convey("The shared client sets a default User-Agent", func() {
			resp, err := Client.Get(srv.URL)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, constant.UserAgent)
		})

		Convey("The fingerprint transport routes plain HTTP through the regular transport", func() {
			client := &http.Client{Transport: FingerprintTransport()}
			resp, err := client.Get(srv.URL)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			_ = resp.Body.Close()
		})
	})
}
