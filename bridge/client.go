package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/store"
)

// DefaultGetTimeout is how long a GET waits for its response.
const DefaultGetTimeout = 3 * time.Second

// Presence tells whether a GET found a value.
type Presence int

const (
	// Unknown means the key is not set or the host did not answer in time. The two are not distinguishable.
	Unknown Presence = iota

	// Present means the host returned a value.
	Present
)

func (p Presence) String() string {
	if p == Present {
		return "present"
	}
	return "unknown"
}

// Client is the adapter side of the bridge, bound to one source id.
type Client struct {
	sourceID string
	timeout  time.Duration
	log      log.Scoped

	conn Conn
	kv   store.KV

	nextID  atomic.Int64
	ready   atomic.Bool
	mu      sync.Mutex
	pending map[int64]chan *string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient starts a client over conn and announces it to the host with INIT.
// It does not wait for the acknowledgement.
func NewClient(sourceID string, conn Conn, getTimeout time.Duration) *Client {
	if getTimeout <= 0 {
		getTimeout = DefaultGetTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sourceID: sourceID,
		timeout:  getTimeout,
		log:      log.With("source", sourceID),
		conn:     conn,
		pending:  make(map[int64]chan *string),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go c.dispatch(ctx)
	c.send(ctx, &Message{Kind: KindInit})
	return c
}

// NewDirect returns a client that bypasses the protocol and uses kv directly.
// It is used outside the sandbox, where the store is reachable without the bridge.
func NewDirect(sourceID string, kv store.KV) *Client {
	c := &Client{
		sourceID: sourceID,
		log:      log.With("source", sourceID),
		kv:       kv,
		done:     make(chan struct{}),
	}
	c.ready.Store(true)
	close(c.done)
	return c
}

// SourceID returns the id the client speaks for.
func (c *Client) SourceID() string {
	return c.sourceID
}

// Bridged reports whether the client goes through the message protocol.
func (c *Client) Bridged() bool {
	return c.conn != nil
}

// Ready reports whether the host acknowledged INIT.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Get asks the host for key. It resolves with Unknown when the key is not set,
// when the host does not answer within the timeout, or when ctx is done.
// The pending request is removed in every case.
func (c *Client) Get(ctx context.Context, key string) (string, Presence) {
	if !c.Bridged() {
		if v, ok := c.kv.Get(key).Get(); ok {
			return v, Present
		}
		return "", Unknown
	}

	id := c.nextID.Add(1)
	ch := make(chan *string, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if !c.send(ctx, &Message{Kind: KindGet, Key: key, RequestID: id}) {
		return "", Unknown
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		if v == nil {
			return "", Unknown
		}
		return *v, Present
	case <-timer.C:
		c.log.Warnf("bridge: get %s (request %d) timed out", key, id)
		return "", Unknown
	case <-ctx.Done():
		return "", Unknown
	case <-c.done:
		return "", Unknown
	}
}

// Set stores value under key. It does not wait for the host.
func (c *Client) Set(key, value string) {
	if !c.Bridged() {
		if err := c.kv.Set(key, value); err != nil {
			c.log.Errorf("bridge: set %s: %s", key, err)
		}
		return
	}

	c.send(context.Background(), &Message{Kind: KindSave, Key: key, Value: &value})
}

// Remove deletes key. It does not wait for the host.
func (c *Client) Remove(key string) {
	if !c.Bridged() {
		if err := c.kv.Delete(key); err != nil {
			c.log.Errorf("bridge: remove %s: %s", key, err)
		}
		return
	}

	c.send(context.Background(), &Message{Kind: KindSave, Key: key})
}

// Pending returns the number of GET requests awaiting a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops the client and its connection.
func (c *Client) Close() error {
	if !c.Bridged() {
		return nil
	}

	c.cancel()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) send(ctx context.Context, m *Message) bool {
	m.Source = c.sourceID

	frame, err := Encode(m)
	if err != nil {
		c.log.Errorf("bridge: encode %s: %s", m.Type(), err)
		return false
	}

	if err := c.conn.Send(ctx, frame); err != nil {
		c.log.Warnf("bridge: send %s: %s", m.Type(), err)
		return false
	}
	return true
}

// dispatch routes responses to their pending requests until the connection closes.
func (c *Client) dispatch(ctx context.Context) {
	defer close(c.done)

	for {
		frame, err := c.conn.Recv(ctx)
		if err != nil {
			if !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
				c.log.Warnf("bridge: receive: %s", err)
			}
			return
		}

		msg, err := Decode(frame)
		if err != nil {
			continue
		}

		if msg.SourceID != "" && msg.SourceID != c.sourceID {
			continue
		}

		switch msg.Kind {
		case KindInitAck:
			c.ready.Store(true)
		case KindGetResponse:
			c.resolve(msg)
		}
	}
}

func (c *Client) resolve(msg *Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warnf("bridge: response for unknown request %d", msg.RequestID)
		return
	}

	ch <- msg.Value
}
