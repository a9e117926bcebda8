package config

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/key"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.IsSet(name), ShouldBeTrue)
			}
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("proxy.tls.fingerprint")
			So(result, ShouldEqual, "proxy_tls_fingerprint")
		})

		Convey("Structured keys are not bound to the environment", func() {
			So(EnvExposed, ShouldNotContain, key.SourcesIDs)
			So(EnvExposed, ShouldNotContain, key.SourcesVOD)
			So(EnvExposed, ShouldContain, key.ProxyBaseURL)
		})
	})
}

func TestVODSources(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		_ = Setup()

		Convey("The built-in collection endpoints decode", func() {
			sources, err := VODSources()
			So(err, ShouldBeNil)
			So(len(sources), ShouldBeGreaterThanOrEqualTo, 2)
			So(sources[0].Name, ShouldEqual, "heimuer")
			So(sources[0].BaseURL, ShouldStartWith, "https://")
			So(sources[0].UseXML, ShouldBeFalse)
		})

		Convey("Durations are derived from integer keys", func() {
			So(Seconds(key.ProxyTimeout), ShouldEqual, 15*time.Second)
			So(Millis(key.BridgeGetTimeout), ShouldEqual, 3*time.Second)
		})
	})
}

func TestFieldEnv(t *testing.T) {
	Convey("Field.Env", t, func() {
		f := Default[key.ProxyBaseURL]
		So(f.Env(), ShouldEqual, "VODKIT_PROXY_BASE_URL")
	})
}
