package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/settings"
)

type fakeAdapter struct {
	desc   adapter.Descriptor
	caps   adapter.Capabilities
	fail   error
	play   string
	closed atomic.Bool
}

func (f *fakeAdapter) Descriptor() adapter.Descriptor     { return f.desc }
func (f *fakeAdapter) Capabilities() adapter.Capabilities { return f.caps }

func (f *fakeAdapter) Search(_ context.Context, keyword string, page, pageSize int) (*adapter.Page, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &adapter.Page{Items: []adapter.Item{{ID: "1", Title: keyword}}}, nil
}

func (f *fakeAdapter) Detail(_ context.Context, id string) (*adapter.Detail, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if id == "missing" {
		return nil, adapter.ErrNotFound
	}
	return &adapter.Detail{ID: id, Title: "T"}, nil
}

func (f *fakeAdapter) PlayURL(context.Context, string, adapter.PlayOptions) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return f.play, nil
}

func (f *fakeAdapter) Close() error {
	f.closed.Store(true)
	return nil
}

func builtin(id string) *fakeAdapter {
	return &fakeAdapter{
		desc: adapter.Descriptor{ID: id, Name: id},
		caps: adapter.Capabilities{Detail: true},
	}
}

type fakeLoader struct {
	calls atomic.Int32
	delay time.Duration
	ids   map[string]string
}

func (l *fakeLoader) Load(_ context.Context, url string) (adapter.Adapter, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)

	if url == "https://host/bad.lua" {
		return nil, adapter.ErrInvalidAdapter
	}

	id, ok := l.ids[url]
	if !ok {
		id = adapter.DeriveID(url)
	}
	return &fakeAdapter{
		desc: adapter.Descriptor{ID: id, Name: adapter.NameFromID(id), SourceURL: url, IsExternal: true},
		caps: adapter.Capabilities{PlayURL: true},
		play: "https://cdn/1.m3u8",
	}, nil
}

func newManager(loader Loader, opts ...Option) (*Manager, *settings.LocalStore) {
	local := settings.NewLocalStore("/config/external.json")
	opts = append([]Option{
		WithLoader(loader),
		WithSources(settings.NewMirror(local)),
		WithSelection(NewFileSelection("/config/selection.json")),
	}, opts...)
	return New(opts...), local
}

func TestRegister(t *testing.T) {
	Convey("Given an empty manager", t, func() {
		m := New()

		var events []Event
		m.Subscribe(func(e Event) { events = append(events, e) })

		Convey("Registering twice with the same name is a silent no-op", func() {
			a := builtin("a")
			So(m.Register(a.desc, a), ShouldBeTrue)

			again := builtin("a")
			So(m.Register(again.desc, again), ShouldBeFalse)
			So(events, ShouldHaveLength, 1)
			So(m.List(), ShouldHaveLength, 1)
			So(again.closed.Load(), ShouldBeTrue)
			So(a.closed.Load(), ShouldBeFalse)
		})

		Convey("Registering the same id with a new name replaces the adapter", func() {
			a := builtin("a")
			m.Register(a.desc, a)

			renamed := builtin("a")
			renamed.desc.Name = "A2"
			So(m.Register(renamed.desc, renamed), ShouldBeTrue)
			So(events, ShouldHaveLength, 2)
			So(m.List()[0].Name, ShouldEqual, "A2")
			So(a.closed.Load(), ShouldBeTrue)
		})

		Convey("Unsubscribed listeners are not called", func() {
			var calls int
			stop := m.Subscribe(func(Event) { calls++ })
			stop()
			a := builtin("a")
			m.Register(a.desc, a)
			So(calls, ShouldEqual, 0)
		})
	})
}

func TestInitialize(t *testing.T) {
	Convey("Given built-in adapters", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		ctx := context.Background()

		Convey("The allow-list filters them and the first becomes active", func() {
			m, _ := newManager(&fakeLoader{}, WithBuiltinAllowList([]string{"b", "c"}))
			So(m.Initialize(ctx, builtin("a"), builtin("b"), builtin("c")), ShouldBeNil)

			So(m.List(), ShouldHaveLength, 2)
			So(m.Active().MustGet().ID, ShouldEqual, "b")
		})

		Convey("The configured default wins over the first", func() {
			m, _ := newManager(&fakeLoader{}, WithDefault("c"))
			So(m.Initialize(ctx, builtin("a"), builtin("c")), ShouldBeNil)
			So(m.Active().MustGet().ID, ShouldEqual, "c")
		})

		Convey("A remembered external selection is loaded lazily", func() {
			loader := &fakeLoader{}
			m, _ := newManager(loader)
			So(m.Initialize(ctx, builtin("a")), ShouldBeNil)

			desc, err := m.LoadExternal(ctx, "https://host/plug.lua")
			So(err, ShouldBeNil)
			So(m.SetActive(ctx, desc.ID), ShouldBeNil)

			next, _ := newManager(loader, WithDefault("a"))
			So(next.Initialize(ctx, builtin("a")), ShouldBeNil)
			So(next.Active().MustGet().ID, ShouldEqual, desc.ID)
			So(loader.calls.Load(), ShouldEqual, 2)
		})

		Convey("No adapters means no active adapter", func() {
			m := New()
			So(m.Initialize(ctx), ShouldBeNil)
			So(m.Active().IsPresent(), ShouldBeFalse)

			_, err := m.Search(ctx, "x", 1, 10, "")
			So(errors.Is(err, ErrNoActive), ShouldBeTrue)
		})
	})
}

func TestLoadExternal(t *testing.T) {
	Convey("Given a manager with a loader", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		ctx := context.Background()

		loader := &fakeLoader{delay: 20 * time.Millisecond}
		m, local := newManager(loader)

		Convey("Concurrent loads of one url share a single load", func() {
			var wg sync.WaitGroup
			ids := make([]string, 10)
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					desc, err := m.LoadExternal(ctx, "https://host/plug.lua")
					if err == nil {
						ids[i] = desc.ID
					}
				}(i)
			}
			wg.Wait()

			So(loader.calls.Load(), ShouldEqual, 1)
			for _, id := range ids {
				So(id, ShouldEqual, "ext_plug_2bbe89b0")
			}
			So(m.List(), ShouldHaveLength, 1)

			Convey("and the source is persisted", func() {
				list, _ := local.Load(ctx)
				So(list, ShouldResemble, []settings.ExternalSource{{ID: "ext_plug_2bbe89b0", Name: "Ext plug 2bbe89b0", URL: "https://host/plug.lua"}})
			})

			Convey("A later load of the same url is served from the registry", func() {
				_, err := m.LoadExternal(ctx, "https://host/plug.lua")
				So(err, ShouldBeNil)
				So(loader.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("A second url declaring a held id is rejected", func() {
			loader.ids = map[string]string{"https://mirror/plug.lua": "ext_plug_2bbe89b0"}
			first, err := m.LoadExternal(ctx, "https://host/plug.lua")
			So(err, ShouldBeNil)

			_, err = m.LoadExternal(ctx, "https://mirror/plug.lua")
			So(errors.Is(err, ErrDuplicateID), ShouldBeTrue)
			So(m.List(), ShouldResemble, []adapter.Descriptor{first})

			list, _ := local.Load(ctx)
			So(list, ShouldHaveLength, 1)
			So(list[0].URL, ShouldEqual, "https://host/plug.lua")
		})

		Convey("A failing load registers nothing", func() {
			_, err := m.LoadExternal(ctx, "https://host/bad.lua")
			So(errors.Is(err, adapter.ErrInvalidAdapter), ShouldBeTrue)
			So(m.List(), ShouldBeEmpty)
			So(m.Known(ctx), ShouldBeEmpty)
		})
	})
}

func TestRemove(t *testing.T) {
	Convey("Given built-in and external adapters", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		ctx := context.Background()

		m, _ := newManager(&fakeLoader{})
		So(m.Initialize(ctx, builtin("zeta"), builtin("alpha")), ShouldBeNil)

		desc, err := m.LoadExternal(ctx, "https://host/plug.lua")
		So(err, ShouldBeNil)
		So(m.SetActive(ctx, desc.ID), ShouldBeNil)

		Convey("Built-ins cannot be removed", func() {
			So(errors.Is(m.Remove(ctx, "alpha"), ErrNotExternal), ShouldBeTrue)
		})

		Convey("Unknown ids are reported", func() {
			So(errors.Is(m.Remove(ctx, "nope"), ErrUnknownAdapter), ShouldBeTrue)
		})

		Convey("A persisted adapter that was never loaded is forgotten", func() {
			next, _ := newManager(&fakeLoader{}, WithSelection(&memorySelection{}))
			So(next.Initialize(ctx, builtin("alpha")), ShouldBeNil)
			So(next.List(), ShouldHaveLength, 1)
			So(next.Remove(ctx, "ext_plug_2bbe89b0"), ShouldBeNil)
			So(next.Known(ctx), ShouldBeEmpty)
		})

		Convey("Removing the active adapter activates the first remaining id", func() {
			var events []Event
			m.Subscribe(func(e Event) { events = append(events, e) })

			So(m.Remove(ctx, desc.ID), ShouldBeNil)
			So(m.Active().MustGet().ID, ShouldEqual, "alpha")
			So(m.Known(ctx), ShouldBeEmpty)
			So(events, ShouldResemble, []Event{{Kind: EventRemoved, ID: desc.ID}, {Kind: EventActivated, ID: "alpha"}})
		})
	})
}

func TestDispatch(t *testing.T) {
	Convey("Given a manager with adapters of different capabilities", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		ctx := context.Background()

		broken := builtin("broken")
		broken.fail = errors.New("upstream down")
		broken.caps.PlayURL = true

		m, _ := newManager(&fakeLoader{})
		So(m.Initialize(ctx, builtin("a"), broken), ShouldBeNil)
		ext, _ := m.LoadExternal(ctx, "https://host/plug.lua")

		Convey("Search returns a normalized page", func() {
			p, err := m.Search(ctx, "naruto", 2, 10, "")
			So(err, ShouldBeNil)
			So(p.Items[0].Title, ShouldEqual, "naruto")
			So(p.Page, ShouldEqual, 2)
			So(p.PageSize, ShouldEqual, 10)
		})

		Convey("A failing search returns an empty page and the error", func() {
			p, err := m.Search(ctx, "x", 3, 10, "broken")
			So(err, ShouldNotBeNil)
			So(p.Items, ShouldBeEmpty)
			So(p.Page, ShouldEqual, 3)
		})

		Convey("Detail without the capability is a placeholder", func() {
			d, err := m.Detail(ctx, "42", ext.ID)
			So(err, ShouldBeNil)
			So(d.Placeholder, ShouldBeTrue)

			_, err = m.Detail(ctx, "missing", "a")
			So(errors.Is(err, adapter.ErrNotFound), ShouldBeTrue)
		})

		Convey("PlayURL follows capabilities", func() {
			_, err := m.PlayURL(ctx, "c", nil, "a")
			So(errors.Is(err, adapter.ErrUnsupported), ShouldBeTrue)

			u, err := m.PlayURL(ctx, "c", nil, ext.ID)
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "https://cdn/1.m3u8")

			_, err = m.PlayURL(ctx, "c", nil, "broken")
			So(errors.Is(err, adapter.ErrResolutionFailed), ShouldBeTrue)
		})

		Convey("Unknown adapters are reported", func() {
			_, err := m.Detail(ctx, "1", "nope")
			So(errors.Is(err, ErrUnknownAdapter), ShouldBeTrue)
		})

		Convey("Adapters only known from the persisted list are loaded on first use", func() {
			loader := &fakeLoader{}
			next, local := newManager(loader, WithSelection(&memorySelection{}))
			So(local.Save(ctx, []settings.ExternalSource{{ID: "ext_plug_2bbe89b0", URL: "https://host/plug.lua"}}), ShouldBeNil)
			So(next.Initialize(ctx, builtin("a")), ShouldBeNil)
			So(loader.calls.Load(), ShouldEqual, 0)

			p, err := next.Search(ctx, "term", 1, 20, "ext_plug_2bbe89b0")
			So(err, ShouldBeNil)
			So(p.Items[0].Title, ShouldEqual, "term")

			d, err := next.Detail(ctx, "42", "ext_plug_2bbe89b0")
			So(err, ShouldBeNil)
			So(d.Placeholder, ShouldBeTrue)

			u, err := next.PlayURL(ctx, "c", nil, "ext_plug_2bbe89b0")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "https://cdn/1.m3u8")

			So(loader.calls.Load(), ShouldEqual, 1)
			So(next.Active().MustGet().ID, ShouldEqual, "a")
		})

		Convey("Shutdown closes every instance", func() {
			m.Shutdown()
			So(broken.closed.Load(), ShouldBeTrue)
			So(m.List(), ShouldBeEmpty)
		})
	})
}
