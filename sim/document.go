package sim

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/pdf-runtime/native"
)

type document struct {
	layout *layout
	src    *byteSource
	avail  *availObj
	mu     sync.Mutex
	closed atomic.Bool
}

// page returns the layout of page index, parsing more of a partially
// delivered document when needed.
func (d *document) page(index int) (pageSpec, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= d.layout.pageCount {
		return pageSpec{}, false
	}
	if index >= len(d.layout.pages) && d.src != nil {
		data := d.src.prefix()
		d.layout.pages = parsePages(data, int64(len(data)) == d.src.size)
	}
	if index >= len(d.layout.pages) {
		return pageSpec{}, false
	}
	return d.layout.pages[index], true
}

type page struct {
	doc     *document
	render  *renderState
	objects []native.Handle
	annots  []native.Handle
	spec    pageSpec
	index   int
	closed  atomic.Bool
}

// textPage holds the page text as UTF-16LE, two bytes per char.
type textPage struct {
	page *page
	data []byte
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

type font struct {
	doc  *document
	size int
}

type pageObject struct {
	spec objectSpec
}

type annotation struct {
	spec annotSpec
}

func checkPassword(l *layout, password string) native.ErrorCode {
	if l.password != nil && *l.password != password {
		return native.ErrPassword
	}
	return native.ErrSuccess
}

func (e *Engine) openParsed(data []byte, password string) native.Handle {
	l, code := parse(data)
	if code != native.ErrSuccess {
		return e.fail(code)
	}
	if code := checkPassword(l, password); code != native.ErrSuccess {
		return e.fail(code)
	}
	return e.create(native.KindDocument, &document{layout: l})
}

func (e *Engine) LoadMemDocument(data []byte, password string) native.Handle {
	if len(data) == 0 {
		return e.fail(native.ErrFormat)
	}
	return e.openParsed(append([]byte(nil), data...), password)
}

func (e *Engine) LoadCustomDocument(access native.FileAccess, password string) native.Handle {
	if access == nil {
		return e.fail(native.ErrFile)
	}
	size := access.Len()
	if size <= 0 {
		return e.fail(native.ErrFormat)
	}
	buf := make([]byte, size)
	if !access.ReadBlock(0, buf) {
		return e.fail(native.ErrFile)
	}
	return e.openParsed(buf, password)
}

func (e *Engine) CloseDocument(doc native.Handle) {
	v, ok := e.release(doc, native.KindDocument)
	if !ok {
		return
	}
	d := v.(*document)
	d.closed.Store(true)
	if d.avail != nil && d.avail.destroyed.Load() {
		e.violate("document %d closed after its availability object", doc)
	}
}

func (e *Engine) PageCount(doc native.Handle) int {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok {
		return 0
	}
	return d.layout.pageCount
}

func (e *Engine) FileVersion(doc native.Handle) (int, bool) {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok || d.layout.version == 0 {
		return 0, false
	}
	return d.layout.version, true
}

func (e *Engine) PageSizeByIndex(doc native.Handle, index int) (float64, float64, bool) {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok {
		return 0, 0, false
	}
	p, ok := d.page(index)
	if !ok {
		return 0, 0, false
	}
	if p.rotate == native.Rotate90 || p.rotate == native.Rotate270 {
		return p.height, p.width, true
	}
	return p.width, p.height, true
}

func (e *Engine) LoadPage(doc native.Handle, index int) native.Handle {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok {
		return e.fail(native.ErrUnknown)
	}
	spec, ok := d.page(index)
	if !ok {
		return e.fail(native.ErrPage)
	}

	p := &page{doc: d, spec: spec, index: index}
	h := e.create(native.KindPage, p)
	if !h.Valid() {
		return h
	}
	for _, o := range spec.objects {
		oh, err := e.objects.Create(native.KindPageObject, &pageObject{spec: o})
		if err == nil {
			p.objects = append(p.objects, oh)
		}
	}
	for _, a := range spec.annots {
		ah, err := e.objects.Create(native.KindAnnotation, &annotation{spec: a})
		if err == nil {
			p.annots = append(p.annots, ah)
		}
	}
	return h
}

func (e *Engine) ClosePage(pg native.Handle) {
	// Objects and annotations belong to the page and go first, so the page
	// handle is the next one reused.
	if p, ok := lookup[*page](e, pg, native.KindPage); ok {
		for _, h := range p.objects {
			e.objects.Drop(h)
		}
		for _, h := range p.annots {
			e.objects.Drop(h)
		}
	}
	v, ok := e.release(pg, native.KindPage)
	if !ok {
		return
	}
	p := v.(*page)
	p.closed.Store(true)
	p.render = nil
	if p.doc.closed.Load() {
		e.violate("page %d closed after its document", pg)
	}
}

func (e *Engine) PageWidth(pg native.Handle) float64 {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return 0
	}
	if p.spec.rotate == native.Rotate90 || p.spec.rotate == native.Rotate270 {
		return p.spec.height
	}
	return p.spec.width
}

func (e *Engine) PageHeight(pg native.Handle) float64 {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return 0
	}
	if p.spec.rotate == native.Rotate90 || p.spec.rotate == native.Rotate270 {
		return p.spec.width
	}
	return p.spec.height
}

func (e *Engine) PageRotation(pg native.Handle) native.Rotation {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return native.Rotate0
	}
	return p.spec.rotate
}

func (e *Engine) TextLoadPage(pg native.Handle) native.Handle {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return e.fail(native.ErrUnknown)
	}
	var lines []string
	for _, o := range p.spec.objects {
		if o.typ == native.ObjectText {
			lines = append(lines, o.text)
		}
	}
	data, err := utf16le.NewEncoder().Bytes([]byte(strings.Join(lines, "\r\n")))
	if err != nil {
		return e.fail(native.ErrFormat)
	}
	return e.create(native.KindTextPage, &textPage{page: p, data: data})
}

func (e *Engine) TextClosePage(text native.Handle) {
	v, ok := e.release(text, native.KindTextPage)
	if !ok {
		return
	}
	if v.(*textPage).page.closed.Load() {
		e.violate("text page %d closed after its page", text)
	}
}

func (e *Engine) TextCountChars(text native.Handle) int {
	t, ok := lookup[*textPage](e, text, native.KindTextPage)
	if !ok {
		return -1
	}
	return len(t.data) / 2
}

func (e *Engine) TextGetText(text native.Handle, start, count int, buf []byte) int {
	t, ok := lookup[*textPage](e, text, native.KindTextPage)
	chars := len(t.data) / 2
	if !ok || start < 0 || start > chars || count < 0 {
		return 0
	}
	count = min(count, chars-start, len(buf)/2-1)
	if count < 0 {
		return 0
	}
	copy(buf, t.data[2*start:2*(start+count)])
	buf[2*count] = 0
	buf[2*count+1] = 0
	return count + 1
}

func (e *Engine) LoadFont(doc native.Handle, data []byte, typ native.FontType, cid bool) native.Handle {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok {
		return e.fail(native.ErrUnknown)
	}
	if len(data) == 0 || (typ != native.FontType1 && typ != native.FontTrueType) {
		return e.fail(native.ErrFormat)
	}
	return e.create(native.KindFont, &font{doc: d, size: len(data)})
}

func (e *Engine) CloseFont(f native.Handle) {
	v, ok := e.release(f, native.KindFont)
	if !ok {
		return
	}
	if v.(*font).doc.closed.Load() {
		e.violate("font %d closed after its document", f)
	}
}

func (e *Engine) CountPageObjects(pg native.Handle) int {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return -1
	}
	return len(p.objects)
}

func (e *Engine) GetPageObject(pg native.Handle, index int) native.Handle {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok || index < 0 || index >= len(p.objects) {
		return native.Invalid
	}
	return p.objects[index]
}

func (e *Engine) PageObjectType(obj native.Handle) native.ObjectType {
	o, ok := lookup[*pageObject](e, obj, native.KindPageObject)
	if !ok {
		return native.ObjectUnknown
	}
	return o.spec.typ
}

func (e *Engine) PageObjectBounds(obj native.Handle) (native.Rect, bool) {
	o, ok := lookup[*pageObject](e, obj, native.KindPageObject)
	if !ok {
		return native.Rect{}, false
	}
	return o.spec.bounds, true
}

func (e *Engine) CountAnnots(pg native.Handle) int {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return -1
	}
	return len(p.annots)
}

func (e *Engine) GetAnnot(pg native.Handle, index int) native.Handle {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok || index < 0 || index >= len(p.annots) {
		return native.Invalid
	}
	return p.annots[index]
}

func (e *Engine) AnnotSubtype(annot native.Handle) native.AnnotSubtype {
	a, ok := lookup[*annotation](e, annot, native.KindAnnotation)
	if !ok {
		return native.AnnotUnknown
	}
	return a.spec.subtype
}

func (e *Engine) AnnotRect(annot native.Handle) (native.Rect, bool) {
	a, ok := lookup[*annotation](e, annot, native.KindAnnotation)
	if !ok {
		return native.Rect{}, false
	}
	return a.spec.rect, true
}
