// Package resource provides ownership-tracked wrappers around native handles.
//
// Every native object the library hands out is backed by a Resource: one
// handle, the kind that selects its release function, and a disposed flag.
// Resources form strict trees. A child registers with exactly one owner and
// is disposed before the owner releases its own handle.
//
// # Resource Lifecycle
//
//	New      - wrap a handle returned by a factory call; the sentinel is rejected
//	Handle   - fetch the handle for a native call; fails once disposal began
//	Dispose  - release children, then the handle; idempotent
//
// A resource is released in one of three ways:
//
//	doc.Dispose()             // explicit
//	lib.Dispose()             // transitively, children first
//	(garbage collected)       // cleanup releases the handle only
//
// # Registry
//
// Each resource owns a Registry of live children:
//
//	page, err := resource.New(native.KindPage, h, release, resource.Owner(doc))
//
//	doc.Registry().Len()         // 1
//	doc.Dispose()                // disposes page first
//	page.Disposed()              // true
//
// The registry holds its children strongly. A child the caller forgot stays
// reachable through its owner and is disposed with it.
//
// # Views
//
// Objects obtained by enumeration (page objects, annotations) are owned by
// the engine, not by the caller. They are represented as View values that
// borrow their parent's lifetime and have no release operation.
//
// # Observers
//
// Observers receive lifecycle events and are inherited by children:
//
//	cancel := root.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventOrphaned {
//	        log.Printf("%s disposed with %d live children", e.Kind, e.Children)
//	    }
//	}))
//
// # Finalization
//
// Resources register a runtime cleanup. The cleanup only sees a release tree
// of handles and release functions that mirrors the ownership tree; it never
// touches other resources. An owner and its forgotten children become
// unreachable together and their cleanups run in unspecified order, so
// whichever runs first releases child handles before the owner's. It is a
// safety net, not a substitute for Dispose.
package resource
