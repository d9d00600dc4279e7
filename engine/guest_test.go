package engine

import (
	"encoding/binary"
	"math"
)

// This file assembles a stub guest that exports the engine API over a bump
// allocator. It keeps just enough state to check marshalling and guest
// memory ownership:
//
//	document   malloc'd cell holding a pointer to its bytes; the page count
//	           is the first byte as an ASCII digit
//	page       malloc'd cell holding the page index
//	bitmap     width, height, then width*height*4 pixel bytes
//	avail      avail callback id, then access callback id
//	rendering  three steps; need_to_pause is polled between steps
//
// live_allocs returns malloc calls minus free calls of non-NULL pointers.

const (
	valI32 = 0x7f
	valF32 = 0x7d
	valF64 = 0x7c
)

const (
	opBlockEmpty = 0x40
	opLoop       = 0x03
	opIf         = 0x04
	opEnd        = 0x0b
	opBr         = 0x0c
	opReturn     = 0x0f
	opLocalGet   = 0x20
	opLocalSet   = 0x21
	opGlobalGet  = 0x23
	opGlobalSet  = 0x24
	opI32Load    = 0x28
	opI32Load8U  = 0x2d
	opI32Store   = 0x36
	opF32Store   = 0x38
	opF64Store   = 0x39
	opI32Store16 = 0x3b
	opI32Const   = 0x41
	opF32Const   = 0x43
	opF64Const   = 0x44
	opI32Eqz     = 0x45
	opI32GeU     = 0x4f
	opI32Add     = 0x6a
	opI32Sub     = 0x6b
	opI32Mul     = 0x6c
	opI32And     = 0x71
	opCall       = 0x10
)

// Guest globals.
const (
	gHeap uint32 = iota
	gLive
	gLastError
	gProgress
)

type guestFunc struct {
	body     func(c *code)
	name     string
	params   []byte
	results  []byte
	locals   []byte
	internal bool
}

type code struct {
	fns map[string]uint32
	b   []byte
}

func (c *code) op(ops ...byte) *code {
	c.b = append(c.b, ops...)
	return c
}

func (c *code) i32(v int32) *code {
	c.b = appendSLEB(append(c.b, opI32Const), int64(v))
	return c
}

func (c *code) f32(v float32) *code {
	c.b = binary.LittleEndian.AppendUint32(append(c.b, opF32Const), math.Float32bits(v))
	return c
}

func (c *code) f64(v float64) *code {
	c.b = binary.LittleEndian.AppendUint64(append(c.b, opF64Const), math.Float64bits(v))
	return c
}

func (c *code) get(i uint32) *code {
	c.b = appendULEB(append(c.b, opLocalGet), i)
	return c
}

func (c *code) set(i uint32) *code {
	c.b = appendULEB(append(c.b, opLocalSet), i)
	return c
}

func (c *code) gget(i uint32) *code {
	c.b = appendULEB(append(c.b, opGlobalGet), i)
	return c
}

func (c *code) gset(i uint32) *code {
	c.b = appendULEB(append(c.b, opGlobalSet), i)
	return c
}

// mem emits a load or store with its alignment exponent and offset.
func (c *code) mem(op byte, align, offset uint32) *code {
	c.b = appendULEB(appendULEB(append(c.b, op), align), offset)
	return c
}

func (c *code) call(name string) *code {
	idx, ok := c.fns[name]
	if !ok {
		panic("guest: unknown function " + name)
	}
	c.b = appendULEB(append(c.b, opCall), idx)
	return c
}

// then emits an if block with no result.
func (c *code) then(body func()) *code {
	c.op(opIf, opBlockEmpty)
	body()
	return c.op(opEnd)
}

// fail records code as the last error and returns NULL.
func (c *code) fail(errCode int32) {
	c.i32(errCode).gset(gLastError).i32(0).op(opReturn)
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendSLEB(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendName(b []byte, s string) []byte {
	return append(appendULEB(b, uint32(len(s))), s...)
}

func appendSection(b []byte, id byte, count int, entries []byte) []byte {
	content := append(appendULEB(nil, uint32(count)), entries...)
	return append(appendULEB(append(b, id), uint32(len(content))), content...)
}

type guestImport struct {
	name    string
	params  []byte
	results []byte
}

var guestImports = []guestImport{
	{"get_block", []byte{valI32, valI32, valI32, valI32}, []byte{valI32}},
	{"is_data_avail", []byte{valI32, valI32, valI32}, []byte{valI32}},
	{"add_segment", []byte{valI32, valI32, valI32}, nil},
	{"need_to_pause", []byte{valI32}, []byte{valI32}},
}

// assemble encodes a module importing the host callbacks, exporting memory
// and every non-internal function.
func assemble(fns []guestFunc) []byte {
	var types []byte
	ntypes := 0
	sig := func(params, results []byte) uint32 {
		types = append(types, 0x60)
		types = append(appendULEB(types, uint32(len(params))), params...)
		types = append(appendULEB(types, uint32(len(results))), results...)
		ntypes++
		return uint32(ntypes - 1)
	}

	index := make(map[string]uint32, len(guestImports)+len(fns))
	var imports []byte
	for i, im := range guestImports {
		index[im.name] = uint32(i)
		imports = appendName(imports, hostModule)
		imports = appendName(imports, im.name)
		imports = appendULEB(append(imports, 0x00), sig(im.params, im.results))
	}
	for i, f := range fns {
		index[f.name] = uint32(len(guestImports) + i)
	}

	var funcs, exports, bodies []byte
	exports = appendULEB(append(appendName(exports, "memory"), 0x02), 0)
	nexports := 1
	for _, f := range fns {
		funcs = appendULEB(funcs, sig(f.params, f.results))
		if !f.internal {
			exports = appendULEB(append(appendName(exports, f.name), 0x00), index[f.name])
			nexports++
		}

		body := appendULEB(nil, uint32(len(f.locals)))
		for _, l := range f.locals {
			body = append(appendULEB(body, 1), l)
		}
		c := &code{fns: index}
		if f.body != nil {
			f.body(c)
		}
		body = append(append(body, c.b...), opEnd)
		bodies = append(appendULEB(bodies, uint32(len(body))), body...)
	}

	// heap, live, last error, render progress
	var globals []byte
	for _, init := range []int32{1024, 0, 0, 0} {
		globals = append(globals, valI32, 0x01, opI32Const)
		globals = append(appendSLEB(globals, int64(init)), opEnd)
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = appendSection(out, 1, ntypes, types)
	out = appendSection(out, 2, len(guestImports), imports)
	out = appendSection(out, 3, len(fns), funcs)
	out = appendSection(out, 5, 1, []byte{0x00, 0x02})
	out = appendSection(out, 6, 4, globals)
	out = appendSection(out, 7, nexports, exports)
	out = appendSection(out, 10, len(fns), bodies)
	return out
}

func params(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = valI32
	}
	return p
}

var (
	i32Result = []byte{valI32}
	f32Result = []byte{valF32}
)

// constant returns a function of n i32 params returning v.
func constant(name string, n int, v int32) guestFunc {
	return guestFunc{name: name, params: params(n), results: i32Result, body: func(c *code) { c.i32(v) }}
}

// noop returns a function of n i32 params with no effect.
func noop(name string, n int) guestFunc {
	return guestFunc{name: name, params: params(n)}
}

// freeArg returns a release function that frees its only argument.
func freeArg(name string) guestFunc {
	return guestFunc{name: name, params: params(1), body: func(c *code) { c.get(0).call("free") }}
}

// mallocOf returns a factory of n params that allocates size bytes.
func mallocOf(name string, n int, size int32) guestFunc {
	return guestFunc{name: name, params: params(n), results: i32Result, body: func(c *code) { c.i32(size).call("malloc") }}
}

// loadDocument reads one byte through access callback id (local idLocal)
// into a fresh document cell; a failed read frees it and reports ErrFile.
func loadDocument(c *code, idLocal, docLocal uint32) {
	c.i32(8).call("malloc").set(docLocal)
	c.get(idLocal).i32(0).get(docLocal).i32(4).op(opI32Add).i32(1).call("get_block")
	c.op(opI32Eqz).then(func() {
		c.get(docLocal).call("free")
		c.fail(2)
	})
	c.get(docLocal).get(docLocal).i32(4).op(opI32Add).mem(opI32Store, 2, 0)
	c.get(docLocal)
}

// dataQuery asks is_data_avail for [offset, offset+1) and hints the same
// range when it is missing.
func dataQuery(c *code, availLocal uint32, offset func(), hintsLocal uint32) {
	c.get(availLocal).mem(opI32Load, 2, 0)
	offset()
	c.i32(1).call("is_data_avail")
	c.then(func() { c.i32(1).op(opReturn) })
	c.get(hintsLocal)
	offset()
	c.i32(1).call("add_segment")
	c.i32(0)
}

func stubGuest() []byte {
	return assemble([]guestFunc{
		{name: "malloc", params: params(1), results: i32Result, body: func(c *code) {
			c.gget(gHeap)
			c.gget(gHeap).get(0).i32(7).op(opI32Add).i32(-8).op(opI32And).op(opI32Add).gset(gHeap)
			c.gget(gLive).i32(1).op(opI32Add).gset(gLive)
		}},
		{name: "free", params: params(1), body: func(c *code) {
			c.get(0).then(func() {
				c.gget(gLive).i32(1).op(opI32Sub).gset(gLive)
			})
		}},
		{name: "live_allocs", results: i32Result, body: func(c *code) { c.gget(gLive) }},

		noop("FPDF_InitLibrary", 0),
		noop("FPDF_DestroyLibrary", 0),
		{name: "FPDF_GetLastError", results: i32Result, body: func(c *code) { c.gget(gLastError) }},
		{name: "FPDF_LoadMemDocument", params: params(3), results: i32Result, locals: []byte{valI32}, body: func(c *code) {
			c.get(2).then(func() { c.fail(4) })
			c.get(1).op(opI32Eqz).then(func() { c.fail(3) })
			c.i32(4).call("malloc").set(3)
			c.get(3).get(0).mem(opI32Store, 2, 0)
			c.get(3)
		}},
		freeArg("FPDF_CloseDocument"),
		{name: "FPDF_GetPageCount", params: params(1), results: i32Result, body: func(c *code) {
			c.get(0).mem(opI32Load, 2, 0).mem(opI32Load8U, 0, 0).i32('0').op(opI32Sub)
		}},
		{name: "FPDF_GetFileVersion", params: params(2), results: i32Result, body: func(c *code) {
			c.get(1).i32(17).mem(opI32Store, 2, 0)
			c.i32(1)
		}},
		{name: "FPDF_GetPageSizeByIndex", params: params(4), results: i32Result, body: func(c *code) {
			c.get(2).f64(200).mem(opF64Store, 3, 0)
			c.get(3).f64(100).mem(opF64Store, 3, 0)
			c.i32(1)
		}},
		{name: "FPDF_LoadPage", params: params(2), results: i32Result, locals: []byte{valI32}, body: func(c *code) {
			c.get(1).get(0).call("FPDF_GetPageCount").op(opI32GeU).then(func() { c.fail(6) })
			c.i32(4).call("malloc").set(2)
			c.get(2).get(1).mem(opI32Store, 2, 0)
			c.get(2)
		}},
		freeArg("FPDF_ClosePage"),
		{name: "FPDF_GetPageWidthF", params: params(1), results: f32Result, body: func(c *code) { c.f32(200) }},
		{name: "FPDF_GetPageHeightF", params: params(1), results: f32Result, body: func(c *code) { c.f32(100) }},
		constant("FPDFPage_GetRotation", 1, 0),

		mallocOf("FPDFText_LoadPage", 1, 4),
		freeArg("FPDFText_ClosePage"),
		constant("FPDFText_CountChars", 1, 2),
		{name: "FPDFText_GetText", params: params(4), results: i32Result, body: func(c *code) {
			// "Hi" in UTF-16LE plus the terminator.
			c.get(3).i32(0x00690048).mem(opI32Store, 2, 0)
			c.get(3).i32(0).mem(opI32Store16, 1, 4)
			c.i32(3)
		}},
		mallocOf("FPDFText_LoadFont", 5, 8),
		freeArg("FPDFFont_Close"),

		constant("FPDFPage_CountObjects", 1, 1),
		{name: "FPDFPage_GetObject", params: params(2), results: i32Result, body: func(c *code) { c.get(0) }},
		constant("FPDFPageObj_GetType", 1, 2),
		{name: "FPDFPageObj_GetBounds", params: params(5), results: i32Result, body: func(c *code) {
			for i, v := range []float32{10, 20, 30, 40} {
				c.get(uint32(i+1)).f32(v).mem(opF32Store, 2, 0)
			}
			c.i32(1)
		}},
		constant("FPDFPage_GetAnnotCount", 1, 1),
		mallocOf("FPDFPage_GetAnnot", 2, 4),
		freeArg("FPDFPage_CloseAnnot"),
		constant("FPDFAnnot_GetSubtype", 1, 2),
		{name: "FPDFAnnot_GetRect", params: params(2), results: i32Result, body: func(c *code) {
			for i, v := range []float32{1, 4, 3, 2} {
				c.get(1).f32(v).mem(opF32Store, 2, uint32(i*4))
			}
			c.i32(1)
		}},

		{name: "FPDFBitmap_Create", params: params(3), results: i32Result, locals: []byte{valI32}, body: func(c *code) {
			c.get(0).get(1).op(opI32Mul).i32(4).op(opI32Mul).i32(8).op(opI32Add).call("malloc").set(3)
			c.get(3).get(0).mem(opI32Store, 2, 0)
			c.get(3).get(1).mem(opI32Store, 2, 4)
			c.get(3)
		}},
		freeArg("FPDFBitmap_Destroy"),
		{name: "FPDFBitmap_GetWidth", params: params(1), results: i32Result, body: func(c *code) {
			c.get(0).mem(opI32Load, 2, 0)
		}},
		{name: "FPDFBitmap_GetHeight", params: params(1), results: i32Result, body: func(c *code) {
			c.get(0).mem(opI32Load, 2, 4)
		}},
		{name: "FPDFBitmap_GetStride", params: params(1), results: i32Result, body: func(c *code) {
			c.get(0).mem(opI32Load, 2, 0).i32(4).op(opI32Mul)
		}},
		{name: "FPDFBitmap_GetBuffer", params: params(1), results: i32Result, body: func(c *code) {
			c.get(0).i32(8).op(opI32Add)
		}},
		{name: "FPDFBitmap_FillRect", params: params(6), body: func(c *code) {
			// Only the first pixel is written.
			c.get(0).get(5).mem(opI32Store, 2, 8)
		}},
		noop("FPDF_RenderPageBitmap", 8),
		{name: "FPDF_RenderPage_Close", params: params(1), body: func(c *code) { c.i32(0).gset(gProgress) }},
		{name: "render_step", params: params(1), results: i32Result, internal: true, body: func(c *code) {
			c.op(opLoop, opBlockEmpty)
			c.gget(gProgress).i32(1).op(opI32Add).gset(gProgress)
			c.gget(gProgress).i32(3).op(opI32GeU).then(func() { c.i32(2).op(opReturn) })
			c.get(0).call("need_to_pause").then(func() { c.i32(1).op(opReturn) })
			c.op(opBr, 0)
			c.op(opEnd)
			c.i32(3)
		}},
		{name: "PDFHost_RenderPageBitmapStart", params: params(9), results: i32Result, body: func(c *code) {
			c.i32(0).gset(gProgress)
			c.get(8).call("render_step")
		}},
		{name: "PDFHost_RenderPageContinue", params: params(2), results: i32Result, body: func(c *code) {
			c.get(1).call("render_step")
		}},

		{name: "PDFHost_LoadCustomDocument", params: params(3), results: i32Result, locals: []byte{valI32}, body: func(c *code) {
			loadDocument(c, 0, 3)
		}},
		{name: "PDFHost_AvailCreate", params: params(3), results: i32Result, locals: []byte{valI32}, body: func(c *code) {
			c.i32(8).call("malloc").set(3)
			c.get(3).get(0).mem(opI32Store, 2, 0)
			c.get(3).get(1).mem(opI32Store, 2, 4)
			c.get(3)
		}},
		freeArg("FPDFAvail_Destroy"),
		{name: "FPDFAvail_GetDocument", params: params(2), results: i32Result, locals: []byte{valI32, valI32}, body: func(c *code) {
			c.get(0).mem(opI32Load, 2, 4).set(3)
			loadDocument(c, 3, 2)
		}},
		constant("FPDFAvail_GetFirstPageNum", 1, 0),
		constant("FPDFAvail_IsLinearized", 1, 1),
		{name: "PDFHost_AvailIsDocAvail", params: params(2), results: i32Result, body: func(c *code) {
			dataQuery(c, 0, func() { c.i32(0) }, 1)
		}},
		{name: "PDFHost_AvailIsPageAvail", params: params(3), results: i32Result, body: func(c *code) {
			dataQuery(c, 0, func() { c.get(1) }, 2)
		}},
		constant("PDFHost_AvailIsFormAvail", 2, 2),
		noop("PDFHost_Forget", 1),
	})
}
