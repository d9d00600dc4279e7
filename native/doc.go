// Package native describes the boundary to the wrapped document engine.
//
// The engine is reached only through opaque handles and a flat set of
// functions that create, query and release native objects. Nothing in this
// package enforces ownership; that is the job of package resource. This
// package only names the pieces:
//
//	Handle   - opaque identity of a native object, Invalid is the sentinel
//	Kind     - which release function a handle belongs to
//	Engine   - the capability set {create, release, query} per kind
//	Table    - free-list handle allocator used by engine implementations
//
// # Handles
//
// Handles are compared by identity only. Engines are free to reuse a handle
// value once it has been released:
//
//	page := eng.LoadPage(doc, 0)
//	eng.ClosePage(page)
//	other := eng.LoadPage(doc, 1) // may equal page
//
// A wrapper that forwards a stale handle therefore reaches a different
// object, not a crash. Wrappers must drop their handle on release.
//
// # Callbacks
//
// FileAccess, FileAvail, DownloadHints and PauseFunc are the callback shapes
// the engine calls back into. Hints and pause predicates are passed for the
// duration of a single call and must not be retained by the engine.
package native
