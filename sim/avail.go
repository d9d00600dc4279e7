package sim

import (
	"bytes"
	"sync/atomic"

	"github.com/wippyai/pdf-runtime/native"
)

const (
	// blockSize is the size of the header and trailer blocks checked before
	// anything else.
	blockSize = 1024

	// ChunkSize is the granularity of download hints.
	ChunkSize = 4096
)

// byteSource reads a document through engine callbacks.
type byteSource struct {
	access native.FileAccess
	avail  native.FileAvail
	size   int64
}

func (s *byteSource) has(off, n int64) bool {
	if n <= 0 {
		return true
	}
	return s.avail == nil || s.avail.IsDataAvail(off, n)
}

func (s *byteSource) read(off, n int64) ([]byte, bool) {
	buf := make([]byte, n)
	if !s.access.ReadBlock(off, buf) {
		return nil, false
	}
	return buf, true
}

// prefix returns the longest contiguous run of readable bytes from offset 0,
// in hint-sized chunks.
func (s *byteSource) prefix() []byte {
	var out []byte
	for off := int64(0); off < s.size; off += ChunkSize {
		n := min(ChunkSize, s.size-off)
		if !s.has(off, n) {
			break
		}
		b, ok := s.read(off, n)
		if !ok {
			break
		}
		out = append(out, b...)
	}
	return out
}

// hintMissing adds a hint for every chunk in [off, end) not yet present and
// reports whether any was missing.
func (s *byteSource) hintMissing(off, end int64, hints native.DownloadHints) bool {
	missing := false
	for c := off / ChunkSize * ChunkSize; c < end; c += ChunkSize {
		n := min(ChunkSize, s.size-c)
		if s.has(c, n) {
			continue
		}
		missing = true
		if hints != nil {
			hints.AddSegment(c, n)
		}
	}
	return missing
}

type availObj struct {
	src       byteSource
	layout    *layout
	destroyed atomic.Bool
}

func (a *availObj) headerLen() int64  { return min(blockSize, a.src.size) }
func (a *availObj) trailerOff() int64 { return a.src.size - min(blockSize, a.src.size) }

// header reads the header block, hinting it when absent.
func (a *availObj) header(hints native.DownloadHints) ([]byte, native.DataStatus) {
	n := a.headerLen()
	if !a.src.has(0, n) {
		if hints != nil {
			hints.AddSegment(0, n)
		}
		return nil, native.DataNotAvail
	}
	b, ok := a.src.read(0, n)
	if !ok {
		return nil, native.DataNotAvail
	}
	if !validHeader(b) {
		return nil, native.DataError
	}
	return b, native.DataAvail
}

// docStatus decides whether enough of the document is present to open it.
// A plain document needs every byte; a linearized one needs the header, the
// trailer and its first page.
func (a *availObj) docStatus(hints native.DownloadHints) native.DataStatus {
	if a.src.size <= 0 {
		return native.DataError
	}
	head, st := a.header(hints)
	if st != native.DataAvail {
		return st
	}
	l := &layout{}
	parseHeader(head, l)

	if !l.linearized || l.pageCount == 0 {
		if a.src.hintMissing(0, a.src.size, hints) {
			return native.DataNotAvail
		}
		data, ok := a.src.read(0, a.src.size)
		if !ok {
			return native.DataNotAvail
		}
		full, code := parse(data)
		if code != native.ErrSuccess {
			return native.DataError
		}
		a.layout = full
		return native.DataAvail
	}

	if a.src.hintMissing(a.trailerOff(), a.src.size, hints) {
		return native.DataNotAvail
	}
	trailer, ok := a.src.read(a.trailerOff(), a.src.size-a.trailerOff())
	if !ok {
		return native.DataNotAvail
	}
	parseTrailer(trailer, l)
	if !l.eof {
		return native.DataError
	}
	if st := a.pageStatus(l, l.firstPage, hints); st != native.DataAvail {
		return st
	}
	a.layout = l
	return native.DataAvail
}

// pageStatus checks whether page index lies in the delivered prefix of a
// linearized document, hinting the chunk that extends the prefix otherwise.
func (a *availObj) pageStatus(l *layout, index int, hints native.DownloadHints) native.DataStatus {
	if l.pageCount > 0 && (index < 0 || index >= l.pageCount) {
		return native.DataError
	}
	data := a.src.prefix()
	complete := int64(len(data)) == a.src.size
	if len(parsePages(data, complete)) > index {
		return native.DataAvail
	}
	if complete {
		return native.DataError
	}
	next := int64(len(data))
	if hints != nil {
		hints.AddSegment(next, min(ChunkSize, a.src.size-next))
	}
	return native.DataNotAvail
}

func (e *Engine) AvailCreate(avail native.FileAvail, access native.FileAccess) native.Handle {
	if avail == nil || access == nil {
		return e.fail(native.ErrFile)
	}
	return e.create(native.KindAvail, &availObj{src: byteSource{
		access: access,
		avail:  avail,
		size:   access.Len(),
	}})
}

func (e *Engine) AvailDestroy(h native.Handle) {
	v, ok := e.release(h, native.KindAvail)
	if !ok {
		return
	}
	v.(*availObj).destroyed.Store(true)
}

func (e *Engine) AvailIsDocAvail(h native.Handle, hints native.DownloadHints) native.DataStatus {
	a, ok := lookup[*availObj](e, h, native.KindAvail)
	if !ok {
		return native.DataError
	}
	return a.docStatus(hints)
}

func (e *Engine) AvailGetDocument(h native.Handle, password string) native.Handle {
	a, ok := lookup[*availObj](e, h, native.KindAvail)
	if !ok {
		return e.fail(native.ErrUnknown)
	}
	if a.docStatus(nil) != native.DataAvail {
		return e.fail(native.ErrFile)
	}
	if code := checkPassword(a.layout, password); code != native.ErrSuccess {
		return e.fail(code)
	}

	l := *a.layout
	d := &document{layout: &l, avail: a}
	if l.linearized && l.pages == nil {
		src := a.src
		d.src = &src
	}
	return e.create(native.KindDocument, d)
}

func (e *Engine) AvailGetFirstPageNum(doc native.Handle) int {
	d, ok := lookup[*document](e, doc, native.KindDocument)
	if !ok {
		return 0
	}
	return d.layout.firstPage
}

func (e *Engine) AvailIsPageAvail(h native.Handle, index int, hints native.DownloadHints) native.DataStatus {
	a, ok := lookup[*availObj](e, h, native.KindAvail)
	if !ok {
		return native.DataError
	}
	if st := a.docStatus(hints); st != native.DataAvail {
		return st
	}
	if !a.layout.linearized || a.layout.pages != nil {
		if index < 0 || index >= a.layout.pageCount {
			return native.DataError
		}
		return native.DataAvail
	}
	return a.pageStatus(a.layout, index, hints)
}

func (e *Engine) AvailIsFormAvail(h native.Handle, hints native.DownloadHints) native.FormStatus {
	a, ok := lookup[*availObj](e, h, native.KindAvail)
	if !ok {
		return native.FormError
	}
	switch a.docStatus(hints) {
	case native.DataError:
		return native.FormError
	case native.DataNotAvail:
		return native.FormNotAvail
	}
	if !a.layout.form {
		return native.FormNotExist
	}
	// Form fields may reference any object, so the whole file is needed.
	if a.src.hintMissing(0, a.src.size, hints) {
		return native.FormNotAvail
	}
	return native.FormAvail
}

func (e *Engine) AvailIsLinearized(h native.Handle) native.Linearization {
	a, ok := lookup[*availObj](e, h, native.KindAvail)
	if !ok {
		return native.LinearizationUnknown
	}
	n := a.headerLen()
	if n == 0 || !a.src.has(0, n) {
		return native.LinearizationUnknown
	}
	b, ok := a.src.read(0, n)
	if !ok || !validHeader(b) {
		return native.LinearizationUnknown
	}
	if bytes.Contains(b, []byte("/Linearized")) {
		return native.Linearized
	}
	return native.NotLinearized
}
