package document

import (
	"golang.org/x/image/font/sfnt"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Font is a font embedded into a document.
type Font struct {
	res    *resource.Resource
	family string
	glyphs int
	typ    native.FontType
}

// LoadFont embeds font data into the document. TrueType data is validated
// before it reaches the engine.
func (d *Document) LoadFont(data []byte, typ native.FontType, cid bool) (*Font, error) {
	h, err := d.res.Handle()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "empty font data")
	}

	f := &Font{typ: typ}
	switch typ {
	case native.FontTrueType:
		parsed, err := sfnt.Parse(data)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidInput, err, "parse TrueType font")
		}
		f.family, _ = parsed.Name(nil, sfnt.NameIDFamily)
		f.glyphs = parsed.NumGlyphs()
	case native.FontType1:
	default:
		return nil, errors.Unsupported(errors.PhaseConstruct, "font type")
	}

	res, err := resource.New(native.KindFont, d.engine.LoadFont(h, data, typ, cid), d.engine.CloseFont,
		resource.Owner(d.res),
		resource.LastError(d.engine.LastError))
	if err != nil {
		return nil, err
	}
	f.res = res
	return f, nil
}

// Family returns the family name, empty when the data does not carry one.
func (f *Font) Family() string { return f.family }

// Glyphs returns the number of glyphs in a TrueType font.
func (f *Font) Glyphs() int { return f.glyphs }

// Type returns the font type the data was loaded as.
func (f *Font) Type() native.FontType { return f.typ }

// Resource returns the font's resource.
func (f *Font) Resource() *resource.Resource { return f.res }

// Close releases the font.
func (f *Font) Close() error {
	f.res.Dispose()
	return nil
}
