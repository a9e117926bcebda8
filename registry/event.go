package registry

// EventKind tells what changed in the registry.
type EventKind int

const (
	EventRegistered EventKind = iota
	EventRemoved
	EventActivated
)

func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventRemoved:
		return "removed"
	case EventActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the change was applied.
type Event struct {
	Kind EventKind
	ID   string
}

// Subscribe calls fn for every later event and returns a function that stops it.
// fn runs synchronously on the goroutine that caused the event and must not block.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

func (m *Manager) emit(e Event) {
	m.subsMu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
