// Package pdfruntime provides a memory-safe Go layer over a native PDF
// document engine that hands out opaque handles.
//
// Every handle the engine returns is wrapped in a resource that knows its
// kind, its owner and whether it was released. Wrappers are disposed
// children first, never forward a released handle, and are cleaned up by the
// garbage collector as a last resort.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pdfruntime/          Root package: engine plus library in one call
//	├── native/          Engine capability interface, handle and status types
//	├── resource/        Managed handles, ownership registry, views, observers
//	├── document/        Library, documents, pages, text layers, fonts
//	├── avail/           Incremental loading over a pull/hint protocol
//	├── source/          Byte transports: simulated, file, HTTP range requests
//	├── render/          Bitmaps and progressive render sessions
//	├── engine/          Wasm build of the engine running under wazero
//	├── sim/             Reference engine used by tests and the CLI
//	└── errors/          Structured error types
//
// # Quick Start
//
// Open a document and render its first page:
//
//	rt, err := pdfruntime.Open(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	doc, err := rt.Library.OpenFile("report.pdf", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	page, err := doc.LoadPage(0)
//	...
//	bmp, err := render.NewBitmap(rt.Library, 612, 792, true)
//	...
//	status, err := render.Run(ctx, bmp, page, render.Options{}, nil, nil)
//
// # Incremental Loading
//
// Documents that arrive over the network are opened through an availability
// context. Availability checks never block; they request the missing ranges
// from the source and the caller polls:
//
//	src, _ := source.NewHTTP(ctx, url)
//	ac, _ := avail.New(rt.Library, src)
//	wait := func(ctx context.Context) error { _, err := src.Fetch(ctx); return err }
//	err := avail.Poll(ctx, ac.IsDocumentAvailable, wait)
//
// # Thread Safety
//
// Distinct documents may be used from different goroutines. A single
// document, its pages and its render sessions belong to one goroutine at a
// time.
package pdfruntime
