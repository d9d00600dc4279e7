// Package document wraps the engine's document model in owned resources.
//
// A Library is the root of every ownership tree. Documents, availability
// contexts and bitmaps hang off it; pages hang off documents; the text layer
// of a page hangs off the page:
//
//	lib, err := document.NewLibrary(engine)
//	defer lib.Close()
//
//	doc, err := lib.OpenBytes(data, "")
//	page, err := doc.LoadPage(0)
//	text, err := page.TextLayer()
//	s, err := text.Text()
//
//	doc.Close()   // closes text layer, then page, then document
//
// Closing is idempotent and any wrapper used after it or its owner was closed
// fails with errors.ErrResourceDisposed instead of reaching the engine with a
// handle that may already belong to another object.
package document
