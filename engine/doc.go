// Package engine runs a WebAssembly build of the document engine.
//
// This package wraps wazero to expose a PDFium-compatible module as a
// native.Engine. Handles are guest pointers; the safety layer in package
// resource sits on top exactly as it does for any other engine.
//
// # Module Requirements
//
// The module must export malloc, free, a linear memory, the FPDF* functions
// listed in requiredExports, and a small callback shim. The engine's own
// callback structs hold function pointers, which a host cannot place in a
// guest table, so the shim builds them on the guest side and forwards every
// callback to the pdfium_host import module:
//
//	Shim export                                       Forwards to
//	─────────────────────────────────────────────────────────────────────
//	PDFHost_LoadCustomDocument(id, len, pw)           get_block
//	PDFHost_RenderPageBitmapStart(bmp, page, ..., id) need_to_pause
//	PDFHost_RenderPageContinue(page, id)              need_to_pause
//	PDFHost_AvailCreate(availID, accessID, len)       is_data_avail, get_block
//	PDFHost_AvailIsDocAvail(avail, id)                add_segment
//	PDFHost_AvailIsPageAvail(avail, index, id)        add_segment
//	PDFHost_AvailIsFormAvail(avail, id)               add_segment
//	PDFHost_Forget(handle)                            frees shim state
//
// Ids are opaque to the guest. The host maps them back to the FileAccess,
// FileAvail, DownloadHints or PauseFunc registered for the call or for the
// lifetime of the document or availability context.
//
// A missing export fails New with *errors.MissingExportsError before the
// module is instantiated.
//
// # Memory
//
// In-memory documents are copied into guest memory and kept there until
// CloseDocument. Strings and out parameters use short-lived allocations freed
// before the call returns. BitmapBuffer returns a view of guest memory.
//
// # Thread Safety
//
// Engine is safe for concurrent use; calls are serialized. Callbacks run
// while the engine lock is held and must not call back into the engine.
//
// # WASI
//
// Builds that import wasi_snapshot_preview1 get a preview1 host with no
// filesystem and no environment.
package engine
