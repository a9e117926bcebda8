// Package bridge implements the storage bridge: a request/response message protocol through which
// sandboxed adapters reach the host's persistent key-value store.
//
// Clients send INIT, GET and SAVE; the host answers INIT_ACK and GET_RESPONSE.
// GET responses are correlated by request id, never by arrival order.
package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the verb of a bridge message.
type Kind int

const (
	KindUnknown Kind = iota
	KindInit
	KindInitAck
	KindGet
	KindGetResponse
	KindSave
)

var verbs = map[Kind]string{
	KindInit:        "INIT",
	KindInitAck:     "INIT_ACK",
	KindGet:         "GET",
	KindGetResponse: "GET_RESPONSE",
	KindSave:        "SAVE",
}

func (k Kind) String() string {
	if v, ok := verbs[k]; ok {
		return v
	}
	return "UNKNOWN"
}

// Namespace is the prefix message types are qualified with.
type Namespace string

const (
	// Default is the namespace of current clients.
	Default Namespace = "STORAGE_BRIDGE_"

	// Legacy is the namespace of early clients; the host still answers in it.
	Legacy Namespace = "BILIBILI_STORAGE_BRIDGE_"
)

// HostSource is the source field of messages sent by the host.
const HostSource = "storage_bridge"

// Message is a single bridge frame. Value is nil when absent, which in a SAVE means delete.
type Message struct {
	Kind      Kind
	Namespace Namespace

	// Source is the sender: the adapter id for client messages, HostSource for host messages.
	Source    string
	SourceID  string
	Key       string
	Value     *string
	RequestID int64

	raw string
}

type wire struct {
	Type      string  `json:"type"`
	Source    string  `json:"source,omitempty"`
	SourceID  string  `json:"sourceId,omitempty"`
	Key       string  `json:"key,omitempty"`
	Value     *string `json:"value"`
	RequestID int64   `json:"requestId,omitempty"`
}

// Type returns the qualified message type, e.g. STORAGE_BRIDGE_GET.
func (m *Message) Type() string {
	ns := m.Namespace
	if ns == "" {
		ns = Default
	}
	return string(ns) + m.Kind.String()
}

// Encode serializes m into a JSON frame.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(wire{
		Type:      m.Type(),
		Source:    m.Source,
		SourceID:  m.SourceID,
		Key:       m.Key,
		Value:     m.Value,
		RequestID: m.RequestID,
	})
}

// ErrForeign is returned by Decode for frames that do not belong to the bridge.
var ErrForeign = fmt.Errorf("not a storage bridge message")

// Decode parses a JSON frame. Frames without a bridge prefix yield ErrForeign;
// frames with a bridge prefix but an unknown verb decode with KindUnknown.
func Decode(b []byte) (*Message, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}

	m := &Message{
		Source:    w.Source,
		SourceID:  w.SourceID,
		Key:       w.Key,
		Value:     w.Value,
		RequestID: w.RequestID,
		raw:       w.Type,
	}

	var verb string
	switch {
	case strings.HasPrefix(w.Type, string(Legacy)):
		m.Namespace, verb = Legacy, strings.TrimPrefix(w.Type, string(Legacy))
	case strings.HasPrefix(w.Type, string(Default)):
		m.Namespace, verb = Default, strings.TrimPrefix(w.Type, string(Default))
	default:
		return nil, ErrForeign
	}

	for k, v := range verbs {
		if v == verb {
			m.Kind = k
			break
		}
	}

	return m, nil
}
