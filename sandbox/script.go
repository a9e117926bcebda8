package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/credcache"
	"github.com/vodkit-cli/vodkit/libs"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/store"
	lua "github.com/yuin/gopher-lua"
)

// Script is an adapter executed in a restricted Lua state.
// Calls are serialized because a Lua state is not safe for concurrent use.
type Script struct {
	mu sync.Mutex

	L       *lua.LState
	exports *lua.LTable
	libs    *libs.Loader
	proxy   *proxy.Client
	host    *bridge.Host

	desc    adapter.Descriptor
	caps    adapter.Capabilities
	methods adapter.Methods
	report  *adapter.Report

	provisionalID string
	callTimeout   time.Duration
	cacheTTL      time.Duration
	log           log.Scoped

	fallback store.KV
	storage  *bridge.Client
	clients  []*bridge.Client
	closed   bool
}

func (s *Script) Descriptor() adapter.Descriptor {
	return s.desc
}

func (s *Script) Capabilities() adapter.Capabilities {
	return s.caps
}

// Report returns the validation report the script was admitted with.
func (s *Script) Report() *adapter.Report {
	return s.report
}

func (s *Script) Search(ctx context.Context, keyword string, page, pageSize int) (*adapter.Page, error) {
	ret, err := s.call(ctx, s.methods.Search, lua.LString(keyword), lua.LNumber(page), lua.LNumber(pageSize))
	if err != nil {
		return nil, err
	}

	p, err := pageFromLua(ret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.methods.Search, err)
	}

	return p.Normalize(page, pageSize), nil
}

func (s *Script) Detail(ctx context.Context, id string) (*adapter.Detail, error) {
	if !s.caps.Detail {
		return adapter.Placeholder(id), nil
	}

	ret, err := s.call(ctx, s.methods.Detail, lua.LString(id))
	if err != nil {
		return nil, err
	}

	if ret == lua.LNil || ret == lua.LFalse {
		return nil, adapter.ErrNotFound
	}

	d, err := detailFromLua(ret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.methods.Detail, err)
	}

	if d.ID == "" {
		d.ID = id
	}

	return d, nil
}

func (s *Script) PlayURL(ctx context.Context, cid string, opts adapter.PlayOptions) (string, error) {
	if !s.caps.PlayURL {
		return "", adapter.ErrUnsupported
	}

	ret, err := s.call(ctx, s.methods.PlayURL, lua.LString(cid), libs.ToLua(s.L, map[string]any(opts)))
	if err != nil {
		return "", err
	}

	if t, ok := ret.(*lua.LTable); ok {
		ret = t.RawGetString("url")
	}

	if ret.Type() != lua.LTString {
		return "", nil
	}

	return ret.String(), nil
}

// Close releases the Lua state and the script's bridge connections.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, c := range s.clients {
		if err := c.Close(); err != nil {
			s.log.Warnf("close bridge client: %s", err)
		}
	}

	s.L.Close()
	return nil
}

// call invokes an exported method with the export table as self.
func (s *Script) call(ctx context.Context, method string, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, fmt.Errorf("adapter %s is closed", s.id())
	}

	fn, ok := s.exports.RawGetString(method).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("%s is not a function", method)
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := s.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, append([]lua.LValue{s.exports}, args...)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lua.LNil, fmt.Errorf("%s: %w", method, ctxErr)
		}
		return lua.LNil, fmt.Errorf("%s: %w", method, err)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

func (s *Script) context() context.Context {
	if ctx := s.L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// id is the validated id, or the provisional one while the script is still loading.
func (s *Script) id() string {
	if s.desc.ID != "" {
		return s.desc.ID
	}
	return s.provisionalID
}

// connect opens a bridge client speaking for sourceID. Clients are closed with the script.
func (s *Script) connect(sourceID string) *bridge.Client {
	var c *bridge.Client
	if s.host != nil {
		c = s.host.Attach(sourceID)
	} else {
		c = bridge.NewDirect(sourceID, s.fallback)
	}

	s.clients = append(s.clients, c)
	return c
}

func (s *Script) storageClient() *bridge.Client {
	if s.storage == nil {
		s.storage = s.connect(s.id())
	}
	return s.storage
}

func (s *Script) persister(string) credcache.Persister {
	return credcache.BridgePersister{Client: s.storageClient()}
}
