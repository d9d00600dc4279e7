package resource

import (
	"runtime"
	"sync/atomic"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
)

const (
	stateLive int32 = iota
	stateDisposing
	stateDisposed
)

// Option configures a Resource at construction.
type Option func(*config)

type config struct {
	owner     *Resource
	value     any
	lastError func() native.ErrorCode
	noCleanup bool
}

// Owner registers the new resource as a child of owner.
func Owner(owner *Resource) Option {
	return func(c *config) { c.owner = owner }
}

// Value attaches wrapper state retrievable with Resource.Value.
func Value(v any) Option {
	return func(c *config) { c.value = v }
}

// NoCleanup skips the garbage-collection safety net for this resource. It is
// still released before its owner when the owner's cleanup runs. Use it for
// kinds whose native state is released together with another handle.
func NoCleanup() Option {
	return func(c *config) { c.noCleanup = true }
}

// LastError supplies the engine error code reported when the handle is the
// sentinel. It is only called on failure.
func LastError(fn func() native.ErrorCode) Option {
	return func(c *config) { c.lastError = fn }
}

// Resource wraps one native handle with a kind-specific release function.
//
// Invariant: once Disposed reports true the stored handle is native.Invalid,
// and Handle never returns it.
type Resource struct {
	value     any
	obs       *observers
	node      *node
	owner     atomic.Pointer[Resource]
	registry  Registry
	cleanup   runtime.Cleanup
	handle    atomic.Uint32
	state     atomic.Int32
	kind      native.Kind
	cleanupOn bool
}

// New wraps h, returned by a native factory call. A sentinel handle yields a
// ConstructionFailed error and no resource. If registration with the owner
// fails, h is released before the error is returned.
func New(kind native.Kind, h native.Handle, release func(native.Handle), opts ...Option) (*Resource, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if !h.Valid() {
		code := native.ErrUnknown
		if cfg.lastError != nil {
			code = cfg.lastError()
		}
		return nil, errors.ConstructionFailed(kind, code)
	}

	r := &Resource{
		value: cfg.value,
		kind:  kind,
		node:  &node{release: release, handle: h, kind: kind},
	}
	r.handle.Store(uint32(h))

	if cfg.owner != nil {
		r.obs = cfg.owner.obs
		if err := cfg.owner.Register(r); err != nil {
			if release != nil {
				release(h)
			}
			r.handle.Store(uint32(native.Invalid))
			r.state.Store(stateDisposed)
			return nil, err
		}
	} else {
		r.obs = &observers{}
	}
	r.registry.init(kind, r.obs)

	if release != nil && !cfg.noCleanup {
		r.cleanup = runtime.AddCleanup(r, releaseLeaked, r.node)
		r.cleanupOn = true
	}

	r.obs.notify(Event{Type: EventCreated, Resource: r, Handle: h, Kind: kind})
	return r, nil
}

// Kind returns the resource kind. It never changes.
func (r *Resource) Kind() native.Kind {
	return r.kind
}

// Value returns the state attached with the Value option.
func (r *Resource) Value() any {
	return r.value
}

// Owner returns the current owner, or nil for a root resource.
func (r *Resource) Owner() *Resource {
	return r.owner.Load()
}

// Registry returns the registry of this resource's children.
func (r *Resource) Registry() *Registry {
	return &r.registry
}

// Disposed reports whether Dispose has completed.
func (r *Resource) Disposed() bool {
	return r.state.Load() == stateDisposed
}

// Alive reports whether the resource and all of its owners are usable.
func (r *Resource) Alive() bool {
	return r.Check() == nil
}

// Check returns ResourceDisposed if the resource or any owner began disposal.
func (r *Resource) Check() error {
	if r == nil {
		return errors.Disposed(native.KindUnknown)
	}
	if r.state.Load() != stateLive {
		return errors.Disposed(r.kind)
	}
	for o := r.owner.Load(); o != nil; o = o.owner.Load() {
		if o.state.Load() != stateLive {
			return errors.OwnerDisposed(r.kind, o.kind)
		}
	}
	return nil
}

// Handle returns the native handle for a call into the engine. It fails with
// ResourceDisposed instead of ever returning the sentinel.
func (r *Resource) Handle() (native.Handle, error) {
	if err := r.Check(); err != nil {
		return native.Invalid, err
	}
	return native.Handle(r.handle.Load()), nil
}

// Dispose releases registered children, then this resource's handle, and
// detaches it from its owner. Only the first call has any effect; it
// returns true.
func (r *Resource) Dispose() bool {
	if r == nil || !r.state.CompareAndSwap(stateLive, stateDisposing) {
		return false
	}

	r.registry.DisposeAll()

	h := native.Handle(r.handle.Swap(uint32(native.Invalid)))
	if r.cleanupOn {
		r.cleanup.Stop()
	}
	r.node.releaseTree()
	r.state.Store(stateDisposed)

	if owner := r.owner.Swap(nil); owner != nil {
		owner.registry.remove(r)
		owner.node.detach(r.node)
	}

	r.obs.notify(Event{Type: EventDisposed, Resource: r, Handle: h, Kind: r.kind})
	return true
}

// Register adds child to this resource's registry. A child has exactly one
// owner; registering an owned child, registering with a disposed owner, or
// creating a cycle is an OwnershipViolation.
func (r *Resource) Register(child *Resource) error {
	if child == nil {
		return errors.InvalidInput(errors.PhaseOwnership, "nil child")
	}
	if err := r.Check(); err != nil {
		return errors.New(errors.PhaseOwnership, errors.KindOwnershipViolation).
			Resource(child.kind).
			Detail("owner %s is disposed", r.kind).
			Cause(err).
			Build()
	}
	if child.state.Load() != stateLive {
		return errors.OwnershipViolation(child.kind, "child is disposed")
	}
	for a := r; a != nil; a = a.owner.Load() {
		if a == child {
			return errors.OwnershipViolation(child.kind, "registration would create a cycle")
		}
	}
	if !child.owner.CompareAndSwap(nil, r) {
		return errors.OwnershipViolation(child.kind, "child already has an owner")
	}

	r.registry.add(child)
	r.node.attach(child.node)
	return nil
}

// Unregister detaches child without disposing it. It returns false when
// child is not registered here.
func (r *Resource) Unregister(child *Resource) bool {
	if child == nil || !child.owner.CompareAndSwap(r, nil) {
		return false
	}
	r.registry.remove(child)
	r.node.detach(child.node)
	return true
}

// Subscribe adds an observer to the resource tree this resource belongs to.
// The returned function removes it.
func (r *Resource) Subscribe(o Observer) func() {
	return r.obs.add(o)
}
