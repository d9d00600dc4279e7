package resource

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/native"
)

// node is the release side of a Resource. It mirrors the ownership tree but
// holds no pointer back to any Resource, so a runtime cleanup can run it
// without keeping the resource reachable.
type node struct {
	release  func(native.Handle)
	children map[*node]struct{}
	once     sync.Once
	mu       sync.Mutex
	handle   native.Handle
	kind     native.Kind
}

func (n *node) attach(child *node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.children == nil {
		n.children = make(map[*node]struct{})
	}
	n.children[child] = struct{}{}
}

func (n *node) detach(child *node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.children, child)
}

// releaseTree releases every attached child tree, then n's own handle. Only
// the first call does anything; concurrent callers block until it returns,
// so an owner never releases its handle while a child release is running.
func (n *node) releaseTree() bool {
	released := false
	n.once.Do(func() {
		n.mu.Lock()
		children := make([]*node, 0, len(n.children))
		for c := range n.children {
			children = append(children, c)
		}
		n.children = nil
		n.mu.Unlock()

		for _, c := range children {
			c.releaseTree()
		}
		if n.release != nil && n.handle.Valid() {
			n.release(n.handle)
		}
		released = true
	})
	return released
}

// releaseLeaked is the cleanup for a collected resource. Resources still
// registered under an owner are collected with it, and whichever cleanup
// runs first releases the children before the owner.
func releaseLeaked(n *node) {
	if n.releaseTree() {
		Logger().Debug("resource released by cleanup",
			zap.Stringer("kind", n.kind),
			zap.Uint32("handle", uint32(n.handle)))
	}
}
