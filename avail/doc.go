// Package avail opens documents whose bytes are still arriving.
//
// The protocol is pull based. The caller asks whether the document, a page
// or the form data is usable; the engine answers from the bytes present and
// may, as a side effect, ask for more through IncrementalSource.RequestSegment.
// The caller's transport honors those requests out of band and the caller
// asks again:
//
//	ctx, err := avail.New(lib, src)
//	err = avail.Poll(stdctx, ctx.IsDocumentAvailable, fetch)
//	doc, err := ctx.TryOpenDocument("")
//
// Queries never block and the protocol has no timeout of its own. Poll
// layers cancellation on top.
package avail
