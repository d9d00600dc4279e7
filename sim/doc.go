// Package sim is a deterministic in-process implementation of native.Engine.
//
// It understands a small PDF-shaped syntax, enough to exercise every path of
// the safety layer without a real document engine:
//
//	%PDF-1.7
//	1 0 obj << /Linearized 1 /N 2 /O 0 >> endobj
//	3 0 obj << /Type /Page /MediaBox [0 0 612 792] /Rotate 90 >>
//	  BT (Hello) Tj ET
//	  72 72 200 100 re f
//	  << /Annot /Subtype /Link /Rect [72 700 200 720] >>
//	endobj
//	trailer << /AcroForm << >> /Encrypt (secret) >>
//	%%EOF
//
// Handles come from a free-list table shared by all kinds, so a released
// handle is reused by the next allocation just like a native pointer. The
// engine records every release in a journal and flags release orders a real
// engine would not survive (a page closed after its document, a double free)
// as violations.
//
// Build produces fixtures in this syntax.
package sim
