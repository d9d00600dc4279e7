package resource

import (
	"sync"

	"github.com/wippyai/pdf-runtime/native"
)

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDisposed
	// EventOrphaned is emitted when an owner is disposed while children are
	// still registered. The children are disposed normally; the event only
	// flags that the caller left them open.
	EventOrphaned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDisposed:
		return "disposed"
	case EventOrphaned:
		return "orphaned"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Resource *Resource
	Handle   native.Handle
	Kind     native.Kind
	Type     EventType
	Children int
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// observers is shared by a whole resource tree; children inherit the set of
// the root they were created under.
type observers struct {
	list   []observerEntry
	nextID uint64
	mu     sync.RWMutex
}

type observerEntry struct {
	obs Observer
	id  uint64
}

func (o *observers) add(obs Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.list = append(o.list, observerEntry{obs: obs, id: id})
	return func() { o.remove(id) }
}

func (o *observers) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := make([]observerEntry, 0, len(o.list))
	for _, e := range o.list {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	o.list = kept
}

func (o *observers) notify(e Event) {
	o.mu.RLock()
	list := o.list
	o.mu.RUnlock()
	for _, entry := range list {
		entry.obs.OnResourceEvent(e)
	}
}
