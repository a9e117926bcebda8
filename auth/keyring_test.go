package auth

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestToken(t *testing.T) {
	Convey("Given a mock keyring", t, func() {
		keyring.MockInit()

		Convey("A missing token is ErrNoToken", func() {
			_, err := GetToken()
			So(errors.Is(err, ErrNoToken), ShouldBeTrue)
			So(DeleteToken(), ShouldBeNil)
		})

		Convey("A stored token can be read and deleted", func() {
			So(SetToken("abc"), ShouldBeNil)
			token, err := GetToken()
			So(err, ShouldBeNil)
			So(token, ShouldEqual, "abc")

			So(DeleteToken(), ShouldBeNil)
			_, err = GetToken()
			So(errors.Is(err, ErrNoToken), ShouldBeTrue)
		})
	})
}
