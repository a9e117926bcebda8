package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/store"
)

func TestMessage(t *testing.T) {
	Convey("Decode", t, func() {
		Convey("Recognizes both namespaces", func() {
			m, err := Decode([]byte(`{"type":"BILIBILI_STORAGE_BRIDGE_GET","source":"bili","key":"k","requestId":7}`))
			So(err, ShouldBeNil)
			So(m.Kind, ShouldEqual, KindGet)
			So(m.Namespace, ShouldEqual, Legacy)
			So(m.RequestID, ShouldEqual, 7)

			m, err = Decode([]byte(`{"type":"STORAGE_BRIDGE_GET_RESPONSE","sourceId":"bili","value":null}`))
			So(err, ShouldBeNil)
			So(m.Kind, ShouldEqual, KindGetResponse)
			So(m.Namespace, ShouldEqual, Default)
			So(m.Value, ShouldBeNil)
		})

		Convey("Rejects foreign frames", func() {
			_, err := Decode([]byte(`{"type":"SOMETHING_ELSE"}`))
			So(errors.Is(err, ErrForeign), ShouldBeTrue)
		})

		Convey("Keeps unknown verbs in the namespace", func() {
			m, err := Decode([]byte(`{"type":"STORAGE_BRIDGE_PURGE"}`))
			So(err, ShouldBeNil)
			So(m.Kind, ShouldEqual, KindUnknown)
		})

		Convey("Encode qualifies the type and keeps a null value", func() {
			b, err := Encode(&Message{Kind: KindSave, Source: "bili", Key: "k"})
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"type":"STORAGE_BRIDGE_SAVE"`)
			So(string(b), ShouldContainSubstring, `"value":null`)
		})
	})
}

func TestHostAndClient(t *testing.T) {
	Convey("Given a host with a store", t, func() {
		kv := store.NewMemory()
		host := NewHost(kv, time.Second)
		defer host.Close()

		client := host.Attach("bili")
		defer client.Close()

		ctx := context.Background()

		Convey("A missing key resolves as unknown", func() {
			_, p := client.Get(ctx, "missing")
			So(p, ShouldEqual, Unknown)
			So(client.Pending(), ShouldEqual, 0)
		})

		Convey("Set is visible to a later Get", func() {
			client.Set("bili_cookie", "buvid3=1")

			So(waitFor(func() bool { return kv.Get("bili_cookie").IsPresent() }), ShouldBeTrue)

			v, p := client.Get(ctx, "bili_cookie")
			So(p, ShouldEqual, Present)
			So(v, ShouldEqual, "buvid3=1")
		})

		Convey("Remove deletes the key", func() {
			So(kv.Set("k", "v"), ShouldBeNil)
			client.Remove("k")
			So(waitFor(func() bool { return !kv.Get("k").IsPresent() }), ShouldBeTrue)
		})

		Convey("The host acknowledges INIT", func() {
			So(waitFor(client.Ready), ShouldBeTrue)
		})

		Convey("Concurrent GETs are matched by request id", func() {
			So(kv.Set("a", "1"), ShouldBeNil)
			So(kv.Set("b", "2"), ShouldBeNil)

			var wg sync.WaitGroup
			results := make([]string, 20)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					k := "a"
					if i%2 == 1 {
						k = "b"
					}
					results[i], _ = client.Get(ctx, k)
				}(i)
			}
			wg.Wait()

			for i, r := range results {
				if i%2 == 1 {
					So(r, ShouldEqual, "2")
				} else {
					So(r, ShouldEqual, "1")
				}
			}
			So(client.Pending(), ShouldEqual, 0)
		})
	})
}

func TestLegacyNamespace(t *testing.T) {
	Convey("Given a host serving a raw connection", t, func() {
		kv := store.NewMemory()
		So(kv.Set("k", "v"), ShouldBeNil)

		clientEnd, hostEnd := Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = NewHost(kv, time.Second).Serve(ctx, hostEnd) }()

		Convey("A legacy GET is answered in the legacy namespace", func() {
			So(clientEnd.Send(ctx, []byte(`{"type":"BILIBILI_STORAGE_BRIDGE_GET","source":"bili","key":"k","requestId":1}`)), ShouldBeNil)

			frame, err := clientEnd.Recv(ctx)
			So(err, ShouldBeNil)

			m, err := Decode(frame)
			So(err, ShouldBeNil)
			So(m.Namespace, ShouldEqual, Legacy)
			So(m.Kind, ShouldEqual, KindGetResponse)
			So(m.SourceID, ShouldEqual, "bili")
			So(m.Source, ShouldEqual, HostSource)
			So(*m.Value, ShouldEqual, "v")
		})

		Convey("Foreign frames are ignored", func() {
			So(clientEnd.Send(ctx, []byte(`{"type":"HELLO"}`)), ShouldBeNil)
			So(clientEnd.Send(ctx, []byte(`{"type":"STORAGE_BRIDGE_INIT","source":"x"}`)), ShouldBeNil)

			frame, err := clientEnd.Recv(ctx)
			So(err, ShouldBeNil)
			m, _ := Decode(frame)
			So(m.Kind, ShouldEqual, KindInitAck)
		})
	})
}

func TestTimeout(t *testing.T) {
	Convey("Given a client whose host never answers", t, func() {
		clientEnd, silent := Pipe()
		client := NewClient("bili", clientEnd, 50*time.Millisecond)
		defer client.Close()

		Convey("GET resolves as unknown after the timeout and forgets the request", func() {
			start := time.Now()
			v, p := client.Get(context.Background(), "k")
			So(p, ShouldEqual, Unknown)
			So(v, ShouldBeEmpty)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
			So(client.Pending(), ShouldEqual, 0)

			Convey("A late response is discarded", func() {
				late, _ := Encode(&Message{Kind: KindGetResponse, SourceID: "bili", RequestID: 1, Value: new(string)})
				So(silent.Send(context.Background(), late), ShouldBeNil)
				time.Sleep(20 * time.Millisecond)
				So(client.Pending(), ShouldEqual, 0)
			})
		})

		Convey("Responses addressed to another source are ignored", func() {
			go func() {
				ctx := context.Background()
				for {
					frame, err := silent.Recv(ctx)
					if err != nil {
						return
					}
					m, _ := Decode(frame)
					if m.Kind != KindGet {
						continue
					}
					v := "other"
					other, _ := Encode(&Message{Kind: KindGetResponse, SourceID: "someone_else", RequestID: m.RequestID, Value: &v})
					_ = silent.Send(ctx, other)
				}
			}()

			_, p := client.Get(context.Background(), "k")
			So(p, ShouldEqual, Unknown)
		})
	})
}

func TestDirect(t *testing.T) {
	Convey("A direct client uses the store without the protocol", t, func() {
		kv := store.NewMemory()
		c := NewDirect("bili", kv)
		So(c.Bridged(), ShouldBeFalse)
		So(c.Ready(), ShouldBeTrue)

		c.Set("k", "v")
		v, p := c.Get(context.Background(), "k")
		So(p, ShouldEqual, Present)
		So(v, ShouldEqual, "v")

		c.Remove("k")
		_, p = c.Get(context.Background(), "k")
		So(p, ShouldEqual, Unknown)
		So(c.Close(), ShouldBeNil)
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
