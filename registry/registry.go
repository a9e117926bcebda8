// Package registry multiplexes built-in and external adapters behind one query API.
//
// An adapter is unregistered, registered or active; at most one is active.
// External adapters are loaded from a URL, remembered in the persisted source list
// and can be removed again. Built-in adapters cannot.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/settings"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownAdapter is returned for ids that are neither registered nor persisted.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrNotExternal is returned when removing a built-in adapter.
	ErrNotExternal = errors.New("only external adapters can be removed")

	// ErrDuplicateID is returned when a loaded adapter declares an id held by another source.
	ErrDuplicateID = errors.New("adapter id already registered")

	// ErrNoActive is returned when an operation needs the active adapter and there is none.
	ErrNoActive = errors.New("no active adapter")
)

// Loader turns a URL into a validated adapter.
type Loader interface {
	Load(ctx context.Context, url string) (adapter.Adapter, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (adapter.Adapter, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (adapter.Adapter, error) {
	return f(ctx, url)
}

type entry struct {
	desc adapter.Descriptor
	caps adapter.Capabilities
	inst adapter.Adapter
}

// Manager owns every registered adapter instance.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	active  string

	loader    Loader
	sources   *settings.Mirror
	selection Selection
	allow     []string
	fallback  string

	group singleflight.Group

	subsMu sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLoader sets how external adapters are loaded.
func WithLoader(l Loader) Option {
	return func(m *Manager) { m.loader = l }
}

// WithSources sets where the list of external adapters is persisted.
func WithSources(s *settings.Mirror) Option {
	return func(m *Manager) { m.sources = s }
}

// WithSelection sets where the active adapter is remembered.
func WithSelection(s Selection) Option {
	return func(m *Manager) { m.selection = s }
}

// WithBuiltinAllowList restricts which built-in adapters Initialize registers. Empty allows all.
func WithBuiltinAllowList(ids []string) Option {
	return func(m *Manager) { m.allow = ids }
}

// WithDefault sets the adapter activated when no selection was remembered.
func WithDefault(id string) Option {
	return func(m *Manager) { m.fallback = id }
}

// New returns an empty Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		entries:   make(map[string]*entry),
		selection: &memorySelection{},
		subs:      make(map[int]func(Event)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Initialize registers the allowed built-in adapters and picks the active adapter:
// the remembered selection, else the configured default, else the first registered adapter.
// A remembered external adapter is loaded on the way.
func (m *Manager) Initialize(ctx context.Context, builtins ...adapter.Adapter) error {
	for _, b := range builtins {
		desc := b.Descriptor()
		if len(m.allow) > 0 && !lo.Contains(m.allow, desc.ID) {
			log.Debugf("registry: built-in %s is not allowed", desc.ID)
			continue
		}
		desc.IsExternal = false
		m.Register(desc, b)
	}

	candidates := []string{m.selection.Load(), m.fallback}
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if err := m.SetActive(ctx, id); err != nil {
			log.Warnf("registry: cannot activate %s: %s", id, err)
			continue
		}
		return nil
	}

	m.mu.RLock()
	first, ok := lo.First(m.order)
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	return m.SetActive(ctx, first)
}

// Register adds or replaces an adapter. Registering the same id and name again is a no-op
// and emits no event. Reports whether the registry changed.
func (m *Manager) Register(desc adapter.Descriptor, inst adapter.Adapter) bool {
	m.mu.Lock()
	old, exists := m.entries[desc.ID]
	if exists && old.desc.Name == desc.Name {
		m.mu.Unlock()
		if old.inst != inst {
			closeAdapter(inst)
		}
		return false
	}

	if exists {
		log.Warnf("registry: replacing adapter %s (%q -> %q)", desc.ID, old.desc.Name, desc.Name)
		closeAdapter(old.inst)
	} else {
		m.order = append(m.order, desc.ID)
	}

	m.entries[desc.ID] = &entry{desc: desc, caps: inst.Capabilities(), inst: inst}
	m.mu.Unlock()

	m.emit(Event{Kind: EventRegistered, ID: desc.ID})
	return true
}

// SetActive activates id, loading it first when it is only known from the persisted list.
func (m *Manager) SetActive(ctx context.Context, id string) error {
	if _, ok := m.lookup(id); !ok {
		src, known := lo.Find(m.Known(ctx), func(s settings.ExternalSource) bool {
			return s.ID == id
		})
		if !known {
			return fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
		}

		desc, err := m.LoadExternal(ctx, src.URL)
		if err != nil {
			return err
		}
		if desc.ID != id {
			log.Warnf("registry: %s now loads as %s", id, desc.ID)
			id = desc.ID
		}
	}

	m.mu.Lock()
	m.active = id
	m.mu.Unlock()

	if err := m.selection.Save(id); err != nil {
		log.Warnf("registry: remember selection %s: %s", id, err)
	}

	m.emit(Event{Kind: EventActivated, ID: id})
	return nil
}

// LoadExternal loads the adapter at url, registers it and persists it to the source list.
// A url already registered is not loaded again, and concurrent loads of one url share a single load.
func (m *Manager) LoadExternal(ctx context.Context, url string) (adapter.Descriptor, error) {
	if desc, ok := m.registeredURL(ctx, url); ok {
		return desc, nil
	}

	if m.loader == nil {
		return adapter.Descriptor{}, errors.New("registry: no loader configured")
	}

	v, err, _ := m.group.Do(url, func() (any, error) {
		if desc, ok := m.registeredURL(ctx, url); ok {
			return desc, nil
		}

		inst, err := m.loader.Load(ctx, url)
		if err != nil {
			return adapter.Descriptor{}, fmt.Errorf("load %s: %w", url, err)
		}

		desc := inst.Descriptor()
		desc.IsExternal = true
		desc.SourceURL = url
		if !m.Register(desc, inst) {
			held, ok := m.lookup(desc.ID)
			if !ok {
				return adapter.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownAdapter, desc.ID)
			}
			if held.desc.SourceURL != url {
				return adapter.Descriptor{}, fmt.Errorf("%w: %s is already loaded from %s", ErrDuplicateID, desc.ID, held.desc.SourceURL)
			}
			return held.desc, nil
		}

		if m.sources != nil {
			src := settings.ExternalSource{ID: desc.ID, Name: desc.Name, URL: url}
			if err := m.sources.Add(ctx, src); err != nil {
				log.Warnf("registry: persist %s: %s", desc.ID, err)
			}
		}

		return desc, nil
	})

	if err != nil {
		return adapter.Descriptor{}, err
	}

	return v.(adapter.Descriptor), nil
}

// registeredURL finds an external adapter already registered for url, directly or through the persisted list.
func (m *Manager) registeredURL(ctx context.Context, url string) (adapter.Descriptor, bool) {
	m.mu.RLock()
	for _, e := range m.entries {
		if e.desc.IsExternal && e.desc.SourceURL == url {
			m.mu.RUnlock()
			return e.desc, true
		}
	}
	m.mu.RUnlock()

	if m.sources == nil {
		return adapter.Descriptor{}, false
	}

	src, ok := lo.Find(m.Known(ctx), func(s settings.ExternalSource) bool { return s.URL == url })
	if !ok {
		return adapter.Descriptor{}, false
	}

	if e, ok := m.lookup(src.ID); ok {
		return e.desc, true
	}
	return adapter.Descriptor{}, false
}

// Remove unregisters an external adapter and drops it from the persisted list.
// Adapters only known from the persisted list are dropped from it without loading them.
// When it was active, the first remaining adapter by id becomes active.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	switch {
	case !ok:
		m.mu.Unlock()
		return m.forget(ctx, id)
	case !e.desc.IsExternal:
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is built in", ErrNotExternal, id)
	}

	delete(m.entries, id)
	m.order = lo.Without(m.order, id)

	var next string
	reassigned := m.active == id
	if reassigned {
		remaining := lo.Keys(m.entries)
		slices.Sort(remaining)
		next, _ = lo.First(remaining)
		m.active = next
	}
	m.mu.Unlock()

	closeAdapter(e.inst)

	if m.sources != nil {
		if err := m.sources.Remove(ctx, id); err != nil {
			log.Warnf("registry: forget %s: %s", id, err)
		}
	}

	m.emit(Event{Kind: EventRemoved, ID: id})

	if reassigned {
		if err := m.selection.Save(next); err != nil {
			log.Warnf("registry: remember selection %s: %s", next, err)
		}
		if next != "" {
			m.emit(Event{Kind: EventActivated, ID: next})
		}
	}

	return nil
}

// forget drops an external adapter that is persisted but was never loaded in this process.
func (m *Manager) forget(ctx context.Context, id string) error {
	known := lo.ContainsBy(m.Known(ctx), func(s settings.ExternalSource) bool { return s.ID == id })
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}

	if err := m.sources.Remove(ctx, id); err != nil {
		return fmt.Errorf("forget %s: %w", id, err)
	}

	m.emit(Event{Kind: EventRemoved, ID: id})
	return nil
}

// Search queries adapter id, or the active adapter when id is empty.
// On failure it returns an empty page of the requested shape together with the error.
func (m *Manager) Search(ctx context.Context, keyword string, page, pageSize int, id string) (*adapter.Page, error) {
	e, err := m.resolve(ctx, id)
	if err != nil {
		return adapter.EmptyPage(page, pageSize), err
	}

	p, err := e.inst.Search(ctx, keyword, page, pageSize)
	if err != nil {
		return adapter.EmptyPage(page, pageSize), fmt.Errorf("search %s: %w", e.desc.ID, err)
	}
	if p == nil {
		return adapter.EmptyPage(page, pageSize), nil
	}

	return p.Normalize(page, pageSize), nil
}

// Detail returns the record itemID from adapter id, or the active adapter when id is empty.
// Adapters without details yield a placeholder record.
func (m *Manager) Detail(ctx context.Context, itemID, id string) (*adapter.Detail, error) {
	e, err := m.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if !e.caps.Detail {
		return adapter.Placeholder(itemID), nil
	}

	d, err := e.inst.Detail(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("detail %s/%s: %w", e.desc.ID, itemID, err)
	}
	if d == nil {
		return nil, fmt.Errorf("detail %s/%s: %w", e.desc.ID, itemID, adapter.ErrNotFound)
	}

	return d, nil
}

// PlayURL resolves cid with adapter id, or the active adapter when id is empty.
func (m *Manager) PlayURL(ctx context.Context, cid string, opts adapter.PlayOptions, id string) (string, error) {
	e, err := m.resolve(ctx, id)
	if err != nil {
		return "", err
	}

	if !e.caps.PlayURL {
		return "", fmt.Errorf("play url %s: %w", e.desc.ID, adapter.ErrUnsupported)
	}

	u, err := e.inst.PlayURL(ctx, cid, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %w", adapter.ErrResolutionFailed, e.desc.ID, cid, err)
	}
	if u == "" {
		return "", fmt.Errorf("%w: %s/%s: empty url", adapter.ErrResolutionFailed, e.desc.ID, cid)
	}

	return u, nil
}

// List returns every registered adapter in registration order.
func (m *Manager) List() []adapter.Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Map(m.order, func(id string, _ int) adapter.Descriptor {
		return m.entries[id].desc
	})
}

// Active returns the active adapter, if any.
func (m *Manager) Active() mo.Option[adapter.Descriptor] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.entries[m.active]; ok {
		return mo.Some(e.desc)
	}
	return mo.None[adapter.Descriptor]()
}

// Capabilities returns what adapter id supports.
func (m *Manager) Capabilities(id string) mo.Option[adapter.Capabilities] {
	if e, ok := m.lookup(id); ok {
		return mo.Some(e.caps)
	}
	return mo.None[adapter.Capabilities]()
}

// Known returns the persisted list of external adapters.
func (m *Manager) Known(ctx context.Context) []settings.ExternalSource {
	if m.sources == nil {
		return nil
	}
	return m.sources.Load(ctx)
}

// Shutdown closes every adapter instance. The Manager must not be used afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	entries := lo.Values(m.entries)
	m.entries = make(map[string]*entry)
	m.order = nil
	m.active = ""
	m.mu.Unlock()

	for _, e := range entries {
		closeAdapter(e.inst)
	}
}

func (m *Manager) lookup(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	return e, ok
}

// resolve finds the entry for id, or the active one when id is empty.
// Ids only known from the persisted list are loaded first.
func (m *Manager) resolve(ctx context.Context, id string) (*entry, error) {
	if id == "" {
		m.mu.RLock()
		id = m.active
		m.mu.RUnlock()
		if id == "" {
			return nil, ErrNoActive
		}
	}

	if e, ok := m.lookup(id); ok {
		return e, nil
	}

	src, known := lo.Find(m.Known(ctx), func(s settings.ExternalSource) bool {
		return s.ID == id
	})
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}

	desc, err := m.LoadExternal(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	e, ok := m.lookup(desc.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}
	return e, nil
}

func closeAdapter(a adapter.Adapter) {
	if c, ok := a.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warnf("registry: close %s: %s", a.Descriptor().ID, err)
		}
	}
}
