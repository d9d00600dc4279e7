package document

import (
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// TextPage is the text layer of a page.
type TextPage struct {
	engine native.Engine
	res    *resource.Resource
}

// Resource returns the text layer's resource.
func (t *TextPage) Resource() *resource.Resource { return t.res }

// Close releases the text layer. The page loads a fresh one on the next
// call to TextLayer.
func (t *TextPage) Close() error {
	t.res.Dispose()
	return nil
}

// Closed reports whether the text layer can no longer be used.
func (t *TextPage) Closed() bool { return !t.res.Alive() }

// CharCount returns the number of characters, counted in UTF-16 units.
func (t *TextPage) CharCount() (int, error) {
	h, err := t.res.Handle()
	if err != nil {
		return 0, err
	}
	n := t.engine.TextCountChars(h)
	if n < 0 {
		return 0, errors.NativeFailure(errors.PhaseAccess, native.KindTextPage, t.engine.LastError(), "count characters")
	}
	return n, nil
}

// Text returns the whole text layer.
func (t *TextPage) Text() (string, error) {
	n, err := t.CharCount()
	if err != nil {
		return "", err
	}
	return t.TextRange(0, n)
}

// TextRange returns count characters starting at start.
func (t *TextPage) TextRange(start, count int) (string, error) {
	n, err := t.CharCount()
	if err != nil {
		return "", err
	}
	if start < 0 || start > n {
		return "", errors.OutOfBounds(errors.PhaseAccess, native.KindTextPage, start, n)
	}
	if count < 0 {
		return "", errors.InvalidInput(errors.PhaseAccess, "negative character count")
	}
	count = min(count, n-start)
	if count == 0 {
		return "", nil
	}

	h, _ := t.res.Handle()
	buf := make([]byte, (count+1)*2)
	written := t.engine.TextGetText(h, start, count, buf)
	if written <= 0 {
		return "", errors.NativeFailure(errors.PhaseAccess, native.KindTextPage, t.engine.LastError(), "get text")
	}
	// written includes the terminator.
	out, err := utf16le.NewDecoder().Bytes(buf[:(written-1)*2])
	if err != nil {
		return "", errors.Wrap(errors.PhaseAccess, errors.KindNativeFailure, err, "decode text")
	}
	return string(out), nil
}
