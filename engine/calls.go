package engine

import (
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/native"
)

var (
	_ native.Engine      = (*Engine)(nil)
	_ native.SizeLimiter = (*Engine)(nil)
)

// MaxDocumentSize is the largest document a 32-bit guest can address.
func (e *Engine) MaxDocumentSize() int64 {
	return math.MaxUint32
}

// guestLen converts a document size to a guest length, recording ErrFile
// when the guest cannot address it.
func (e *Engine) guestLen(n int64) (uint32, bool) {
	if n < 0 || n > math.MaxUint32 {
		Logger().Warn("document size not addressable by the guest", zap.Int64("size", n))
		e.lastErr = native.ErrFile
		return 0, false
	}
	return uint32(n), true
}

func (e *Engine) LastError() native.ErrorCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// InitLibrary initializes the guest once and hands out a distinct handle per
// call. The guest is torn down when the last library handle is destroyed.
func (e *Engine) InitLibrary() native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.libraries == 0 {
		e.call("FPDF_InitLibrary")
	}
	e.libraries++
	e.nextLib++
	if !e.nextLib.Valid() {
		e.nextLib++
	}
	return e.nextLib
}

func (e *Engine) DestroyLibrary(native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.libraries == 0 {
		Logger().Warn("library destroyed more times than initialized")
		return
	}
	e.libraries--
	if e.libraries == 0 {
		e.call("FPDF_DestroyLibrary")
	}
}

// LoadMemDocument copies data into guest memory. The copy stays there until
// CloseDocument, since the engine reads it lazily.
func (e *Engine) LoadMemDocument(data []byte, password string) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	size, ok := e.guestLen(int64(len(data)))
	if !ok {
		return native.Invalid
	}
	buf, err := e.alloc.Alloc(size)
	if err != nil {
		e.failed("malloc", err)
		return native.Invalid
	}
	if err := e.mem.Write(buf, data); err != nil {
		e.alloc.Free(buf)
		e.failed("LoadMemDocument", err)
		return native.Invalid
	}

	s := e.scratch()
	defer s.release()
	pw, err := s.cstring(password, e.mem)
	if err != nil {
		e.alloc.Free(buf)
		e.failed("LoadMemDocument", err)
		return native.Invalid
	}

	doc := handle(e.call("FPDF_LoadMemDocument", uint64(buf), uint64(size), uint64(pw)))
	if e.factory(doc, native.ErrFormat) == native.Invalid {
		e.alloc.Free(buf)
		return native.Invalid
	}
	e.docs[doc] = docState{buf: buf}
	return doc
}

func (e *Engine) LoadCustomDocument(access native.FileAccess, password string) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if access == nil || access.Len() <= 0 {
		e.lastErr = native.ErrFormat
		return native.Invalid
	}
	size, ok := e.guestLen(access.Len())
	if !ok {
		return native.Invalid
	}

	s := e.scratch()
	defer s.release()
	pw, err := s.cstring(password, e.mem)
	if err != nil {
		e.failed("LoadCustomDocument", err)
		return native.Invalid
	}

	id := e.cb.add(access)
	doc := handle(e.call("PDFHost_LoadCustomDocument", uint64(id), uint64(size), uint64(pw)))
	if e.factory(doc, native.ErrFile) == native.Invalid {
		e.cb.remove(id)
		return native.Invalid
	}
	e.docs[doc] = docState{access: []uint32{id}}
	return doc
}

func (e *Engine) CloseDocument(doc native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.call("FPDF_CloseDocument", uint64(doc))
	e.call("PDFHost_Forget", uint64(doc))
	if st, ok := e.docs[doc]; ok {
		e.alloc.Free(st.buf)
		e.cb.remove(st.access...)
		delete(e.docs, doc)
	}
}

func (e *Engine) PageCount(doc native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDF_GetPageCount", uint64(doc))))
}

func (e *Engine) FileVersion(doc native.Handle) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	out, err := s.zeroed(4, e.mem)
	if err != nil {
		e.failed("FPDF_GetFileVersion", err)
		return 0, false
	}
	if i32(e.call("FPDF_GetFileVersion", uint64(doc), uint64(out))) == 0 {
		return 0, false
	}
	v, err := e.mem.ReadI32(out)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func (e *Engine) PageSizeByIndex(doc native.Handle, index int) (float64, float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	out, err := s.zeroed(16, e.mem)
	if err != nil {
		e.failed("FPDF_GetPageSizeByIndex", err)
		return 0, 0, false
	}
	if i32(e.call("FPDF_GetPageSizeByIndex", uint64(doc), arg(index), uint64(out), uint64(out+8))) == 0 {
		return 0, 0, false
	}
	w, err1 := e.mem.ReadF64(out)
	h, err2 := e.mem.ReadF64(out + 8)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return w, h, true
}

func (e *Engine) LoadPage(doc native.Handle, index int) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.factory(handle(e.call("FPDF_LoadPage", uint64(doc), arg(index))), native.ErrPage)
}

func (e *Engine) ClosePage(page native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.annots[page] {
		e.call("FPDFPage_CloseAnnot", uint64(a))
	}
	delete(e.annots, page)
	e.call("FPDF_ClosePage", uint64(page))
}

func (e *Engine) PageWidth(page native.Handle) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(api.DecodeF32(e.call("FPDF_GetPageWidthF", uint64(page))))
}

func (e *Engine) PageHeight(page native.Handle) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(api.DecodeF32(e.call("FPDF_GetPageHeightF", uint64(page))))
}

func (e *Engine) PageRotation(page native.Handle) native.Rotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return native.Rotation(i32(e.call("FPDFPage_GetRotation", uint64(page))) & 3)
}

func (e *Engine) TextLoadPage(page native.Handle) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.factory(handle(e.call("FPDFText_LoadPage", uint64(page))), native.ErrPage)
}

func (e *Engine) TextClosePage(text native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDFText_ClosePage", uint64(text))
}

func (e *Engine) TextCountChars(text native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFText_CountChars", uint64(text))))
}

// TextGetText clips count so the guest never writes past len(buf).
func (e *Engine) TextGetText(text native.Handle, start, count int, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	units := len(buf) / 2
	if units == 0 || count < 0 {
		return 0
	}
	count = min(count, units-1)

	s := e.scratch()
	defer s.release()
	out, err := s.zeroed(uint32(units*2), e.mem)
	if err != nil {
		e.failed("FPDFText_GetText", err)
		return 0
	}
	n := int(i32(e.call("FPDFText_GetText", uint64(text), arg(start), arg(count), uint64(out))))
	if n <= 0 {
		return 0
	}
	n = min(n, units)
	src, err := e.mem.Read(out, uint32(n*2))
	if err != nil {
		return 0
	}
	copy(buf, src)
	return n
}

// LoadFont copies data for the call only; the engine keeps its own copy.
func (e *Engine) LoadFont(doc native.Handle, data []byte, typ native.FontType, cid bool) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	ptr, err := s.bytes(data, e.mem)
	if err != nil {
		e.failed("FPDFText_LoadFont", err)
		return native.Invalid
	}
	h := handle(e.call("FPDFText_LoadFont", uint64(doc), uint64(ptr), arg(len(data)), arg(int(typ)), boolResult(cid)))
	return e.factory(h, native.ErrFormat)
}

func (e *Engine) CloseFont(font native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDFFont_Close", uint64(font))
}

func (e *Engine) CountPageObjects(page native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFPage_CountObjects", uint64(page))))
}

func (e *Engine) GetPageObject(page native.Handle, index int) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return handle(e.call("FPDFPage_GetObject", uint64(page), arg(index)))
}

func (e *Engine) PageObjectType(obj native.Handle) native.ObjectType {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := native.ObjectType(i32(e.call("FPDFPageObj_GetType", uint64(obj))))
	if t < native.ObjectUnknown || t > native.ObjectForm {
		return native.ObjectUnknown
	}
	return t
}

// PageObjectBounds reads left, bottom, right, top floats.
func (e *Engine) PageObjectBounds(obj native.Handle) (native.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	out, err := s.zeroed(16, e.mem)
	if err != nil {
		e.failed("FPDFPageObj_GetBounds", err)
		return native.Rect{}, false
	}
	if i32(e.call("FPDFPageObj_GetBounds", uint64(obj), uint64(out), uint64(out+4), uint64(out+8), uint64(out+12))) == 0 {
		return native.Rect{}, false
	}
	f, ok := e.floats(out, 4)
	if !ok {
		return native.Rect{}, false
	}
	return native.Rect{Left: f[0], Bottom: f[1], Right: f[2], Top: f[3]}, true
}

func (e *Engine) CountAnnots(page native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFPage_GetAnnotCount", uint64(page))))
}

// GetAnnot returns a handle the engine closes together with its page.
func (e *Engine) GetAnnot(page native.Handle, index int) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := handle(e.call("FPDFPage_GetAnnot", uint64(page), arg(index)))
	if a.Valid() {
		e.annots[page] = append(e.annots[page], a)
	}
	return a
}

// annotSubtypes maps engine subtype codes that differ from native's.
var annotSubtypes = map[int32]native.AnnotSubtype{
	1:  native.AnnotText,
	2:  native.AnnotLink,
	3:  native.AnnotFreeText,
	4:  native.AnnotLine,
	5:  native.AnnotSquare,
	6:  native.AnnotCircle,
	9:  native.AnnotHighlight,
	20: native.AnnotWidget,
}

func (e *Engine) AnnotSubtype(annot native.Handle) native.AnnotSubtype {
	e.mu.Lock()
	defer e.mu.Unlock()
	return annotSubtypes[i32(e.call("FPDFAnnot_GetSubtype", uint64(annot)))]
}

// AnnotRect reads an FS_RECTF: left, top, right, bottom.
func (e *Engine) AnnotRect(annot native.Handle) (native.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	out, err := s.zeroed(16, e.mem)
	if err != nil {
		e.failed("FPDFAnnot_GetRect", err)
		return native.Rect{}, false
	}
	if i32(e.call("FPDFAnnot_GetRect", uint64(annot), uint64(out))) == 0 {
		return native.Rect{}, false
	}
	f, ok := e.floats(out, 4)
	if !ok {
		return native.Rect{}, false
	}
	return native.Rect{Left: f[0], Top: f[1], Right: f[2], Bottom: f[3]}, true
}

func (e *Engine) BitmapCreate(width, height int, alpha bool) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.factory(handle(e.call("FPDFBitmap_Create", arg(width), arg(height), boolResult(alpha))), native.ErrUnknown)
}

func (e *Engine) BitmapDestroy(bitmap native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDFBitmap_Destroy", uint64(bitmap))
}

func (e *Engine) BitmapWidth(bitmap native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFBitmap_GetWidth", uint64(bitmap))))
}

func (e *Engine) BitmapHeight(bitmap native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFBitmap_GetHeight", uint64(bitmap))))
}

func (e *Engine) BitmapStride(bitmap native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFBitmap_GetStride", uint64(bitmap))))
}

// BitmapBuffer returns a view of guest memory. Guest memory growth
// invalidates it.
func (e *Engine) BitmapBuffer(bitmap native.Handle) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	ptr := uint32(e.call("FPDFBitmap_GetBuffer", uint64(bitmap)))
	stride := i32(e.call("FPDFBitmap_GetStride", uint64(bitmap)))
	height := i32(e.call("FPDFBitmap_GetHeight", uint64(bitmap)))
	if ptr == 0 || stride <= 0 || height <= 0 {
		return nil
	}
	buf, err := e.mem.Read(ptr, uint32(stride)*uint32(height))
	if err != nil {
		Logger().Warn("bitmap buffer out of bounds",
			zap.Uint32("bitmap", uint32(bitmap)),
			zap.Error(err))
		return nil
	}
	return buf
}

func (e *Engine) BitmapFillRect(bitmap native.Handle, left, top, width, height int, argb uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDFBitmap_FillRect", uint64(bitmap), arg(left), arg(top), arg(width), arg(height), uint64(argb))
}

func (e *Engine) RenderPageBitmap(bitmap, page native.Handle, startX, startY, sizeX, sizeY int, rotate native.Rotation, flags native.RenderFlags) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDF_RenderPageBitmap", uint64(bitmap), uint64(page),
		arg(startX), arg(startY), arg(sizeX), arg(sizeY), arg(int(rotate&3)), uint64(uint32(flags)))
}

func (e *Engine) RenderPageBitmapStart(bitmap, page native.Handle, startX, startY, sizeX, sizeY int, rotate native.Rotation, flags native.RenderFlags, pause native.PauseFunc) native.RenderStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.pauseID(pause)
	defer e.cb.remove(id)
	return renderStatus(e.call("PDFHost_RenderPageBitmapStart", uint64(bitmap), uint64(page),
		arg(startX), arg(startY), arg(sizeX), arg(sizeY), arg(int(rotate&3)), uint64(uint32(flags)), uint64(id)))
}

func (e *Engine) RenderPageContinue(page native.Handle, pause native.PauseFunc) native.RenderStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.pauseID(pause)
	defer e.cb.remove(id)
	return renderStatus(e.call("PDFHost_RenderPageContinue", uint64(page), uint64(id)))
}

func (e *Engine) RenderPageClose(page native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call("FPDF_RenderPage_Close", uint64(page))
}

func (e *Engine) pauseID(pause native.PauseFunc) uint32 {
	if pause == nil {
		return 0
	}
	return e.cb.add(pause)
}

func renderStatus(v uint64) native.RenderStatus {
	s := native.RenderStatus(i32(v))
	if s < native.RenderReady || s > native.RenderFailed {
		return native.RenderFailed
	}
	return s
}

// AvailCreate keeps avail and access registered until AvailDestroy.
func (e *Engine) AvailCreate(avail native.FileAvail, access native.FileAccess) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if avail == nil || access == nil {
		e.lastErr = native.ErrUnknown
		return native.Invalid
	}
	size, ok := e.guestLen(access.Len())
	if !ok {
		return native.Invalid
	}
	availID := e.cb.add(avail)
	accessID := e.cb.add(access)
	h := handle(e.call("PDFHost_AvailCreate", uint64(availID), uint64(accessID), uint64(size)))
	if e.factory(h, native.ErrUnknown) == native.Invalid {
		e.cb.remove(availID, accessID)
		return native.Invalid
	}
	e.avails[h] = []uint32{availID, accessID}
	return h
}

func (e *Engine) AvailDestroy(avail native.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.call("FPDFAvail_Destroy", uint64(avail))
	e.call("PDFHost_Forget", uint64(avail))
	e.cb.remove(e.avails[avail]...)
	delete(e.avails, avail)
}

func (e *Engine) AvailIsDocAvail(avail native.Handle, hints native.DownloadHints) native.DataStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.cb.add(hints)
	defer e.cb.remove(id)
	return native.DataStatus(i32(e.call("PDFHost_AvailIsDocAvail", uint64(avail), uint64(id))))
}

func (e *Engine) AvailGetDocument(avail native.Handle, password string) native.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.scratch()
	defer s.release()
	pw, err := s.cstring(password, e.mem)
	if err != nil {
		e.failed("FPDFAvail_GetDocument", err)
		return native.Invalid
	}
	return e.factory(handle(e.call("FPDFAvail_GetDocument", uint64(avail), uint64(pw))), native.ErrFile)
}

func (e *Engine) AvailGetFirstPageNum(doc native.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(i32(e.call("FPDFAvail_GetFirstPageNum", uint64(doc))))
}

func (e *Engine) AvailIsPageAvail(avail native.Handle, index int, hints native.DownloadHints) native.DataStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.cb.add(hints)
	defer e.cb.remove(id)
	return native.DataStatus(i32(e.call("PDFHost_AvailIsPageAvail", uint64(avail), arg(index), uint64(id))))
}

func (e *Engine) AvailIsFormAvail(avail native.Handle, hints native.DownloadHints) native.FormStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.cb.add(hints)
	defer e.cb.remove(id)
	return native.FormStatus(i32(e.call("PDFHost_AvailIsFormAvail", uint64(avail), uint64(id))))
}

func (e *Engine) AvailIsLinearized(avail native.Handle) native.Linearization {
	e.mu.Lock()
	defer e.mu.Unlock()
	return native.Linearization(i32(e.call("FPDFAvail_IsLinearized", uint64(avail))))
}

func (e *Engine) floats(ptr uint32, n int) ([]float64, bool) {
	out := make([]float64, n)
	for i := range out {
		v, err := e.mem.ReadF32(ptr + uint32(i*4))
		if err != nil {
			return nil, false
		}
		out[i] = float64(v)
	}
	return out, true
}
