package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/store"
)

// Host owns the key-value store and answers bridge clients.
type Host struct {
	kv         store.KV
	getTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHost returns a Host backed by kv. getTimeout bounds how long clients it attaches wait for GET responses.
func NewHost(kv store.KV, getTimeout time.Duration) *Host {
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{kv: kv, getTimeout: getTimeout, ctx: ctx, cancel: cancel}
}

// Attach connects a new client for sourceID to the host over an in-process pipe.
func (h *Host) Attach(sourceID string) *Client {
	clientEnd, hostEnd := Pipe()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.Serve(h.ctx, hostEnd); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
			log.Warnf("bridge: host stopped serving %s: %s", sourceID, err)
		}
	}()

	return NewClient(sourceID, clientEnd, h.getTimeout)
}

// Local returns a client that reads and writes the host store directly.
func (h *Host) Local(sourceID string) *Client {
	return NewDirect(sourceID, h.kv)
}

// Close stops every connection served by Attach.
func (h *Host) Close() {
	h.cancel()
	h.wg.Wait()
}

// Serve answers frames received on conn until it is closed or ctx is done.
func (h *Host) Serve(ctx context.Context, conn Conn) error {
	defer conn.Close()

	for {
		frame, err := conn.Recv(ctx)
		if err != nil {
			return err
		}

		msg, err := Decode(frame)
		if err != nil {
			if !errors.Is(err, ErrForeign) {
				log.Warnf("bridge: dropping malformed frame: %s", err)
			}
			continue
		}

		reply := h.handle(msg)
		if reply == nil {
			continue
		}

		out, err := Encode(reply)
		if err != nil {
			log.Errorf("bridge: encode %s: %s", reply.Type(), err)
			continue
		}

		if err := conn.Send(ctx, out); err != nil {
			return err
		}
	}
}

// handle applies msg to the store and returns the reply, if any.
// Replies are sent in the namespace the request was addressed in.
func (h *Host) handle(msg *Message) *Message {
	source := msg.Source
	if source == "" {
		source = "unknown_source"
	}

	switch msg.Kind {
	case KindInit:
		log.Debugf("bridge: init from %s", source)
		return &Message{
			Kind:      KindInitAck,
			Namespace: msg.Namespace,
			Source:    HostSource,
			SourceID:  source,
		}

	case KindSave:
		if msg.Key == "" {
			log.Errorf("bridge: save from %s without key", source)
			return nil
		}

		var err error
		if msg.Value == nil {
			err = h.kv.Delete(msg.Key)
		} else {
			err = h.kv.Set(msg.Key, *msg.Value)
		}

		if err != nil {
			log.Errorf("bridge: save %s from %s: %s", msg.Key, source, err)
		}
		return nil

	case KindGet:
		if msg.Key == "" {
			log.Errorf("bridge: get from %s without key", source)
			return nil
		}

		reply := &Message{
			Kind:      KindGetResponse,
			Namespace: msg.Namespace,
			Source:    HostSource,
			SourceID:  source,
			Key:       msg.Key,
			RequestID: msg.RequestID,
		}

		if v, ok := h.kv.Get(msg.Key).Get(); ok {
			reply.Value = &v
		}
		return reply

	case KindInitAck, KindGetResponse:
		return nil

	case KindUnknown:
		log.Warnf("bridge: unknown message type %s from %s", msg.raw, source)
		return nil
	}

	return nil
}
