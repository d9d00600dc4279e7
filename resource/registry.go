package resource

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/native"
)

// Registry tracks the live children of one owner.
//
// Children are referenced strongly: a child the caller forgot stays
// reachable through its owner until it is disposed, unregistered, or the
// owner is disposed.
type Registry struct {
	entries   map[*Resource]struct{}
	obs       *observers
	mu        sync.Mutex
	ownerKind native.Kind
}

func (g *Registry) init(kind native.Kind, obs *observers) {
	g.ownerKind = kind
	g.obs = obs
}

func (g *Registry) add(child *Resource) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.entries == nil {
		g.entries = make(map[*Resource]struct{})
	}
	g.entries[child] = struct{}{}
}

func (g *Registry) remove(child *Resource) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entries[child]; !ok {
		return false
	}
	delete(g.entries, child)
	return true
}

// live returns the children that are not disposed.
func (g *Registry) live() []*Resource {
	g.mu.Lock()
	defer g.mu.Unlock()

	children := make([]*Resource, 0, len(g.entries))
	for c := range g.entries {
		if c.state.Load() == stateLive {
			children = append(children, c)
		}
	}
	return children
}

// Len returns the number of live children.
func (g *Registry) Len() int {
	return len(g.live())
}

// Children returns a snapshot of the live children in unspecified order.
func (g *Registry) Children() []*Resource {
	return g.live()
}

// Find returns a live child of the given kind, or nil.
func (g *Registry) Find(kind native.Kind) *Resource {
	for _, c := range g.live() {
		if c.kind == kind {
			return c
		}
	}
	return nil
}

// DisposeAll disposes every live child, then clears the registry. Sibling
// order is unspecified. Leaving children open is tolerated: it is reported
// at debug level and as EventOrphaned, never as an error.
func (g *Registry) DisposeAll() int {
	children := g.live()
	if len(children) == 0 {
		return 0
	}

	Logger().Debug("disposing owner with live children",
		zap.Stringer("owner", g.ownerKind),
		zap.Int("children", len(children)))
	if g.obs != nil {
		g.obs.notify(Event{Type: EventOrphaned, Kind: g.ownerKind, Children: len(children)})
	}

	disposed := 0
	for _, c := range children {
		if c.Dispose() {
			disposed++
		}
	}

	g.mu.Lock()
	clear(g.entries)
	g.mu.Unlock()

	return disposed
}
