package sim

import (
	"math"

	"github.com/wippyai/pdf-runtime/native"
)

// BandHeight is the number of device rows rendered between pause checks.
const BandHeight = 32

const (
	colorText  uint32 = 0xFF202020
	colorPath  uint32 = 0xFF808080
	colorAnnot uint32 = 0xFF3366CC
)

type bitmap struct {
	buf    []byte
	width  int
	height int
	stride int
	alpha  bool
}

func (b *bitmap) fill(left, top, width, height int, argb uint32, flags native.RenderFlags) {
	x0, y0 := max(left, 0), max(top, 0)
	x1, y1 := min(left+width, b.width), min(top+height, b.height)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	a, r, g, bl := byte(argb>>24), byte(argb>>16), byte(argb>>8), byte(argb)
	if flags&native.FlagGrayscale != 0 {
		gray := byte((299*int(r) + 587*int(g) + 114*int(bl)) / 1000)
		r, g, bl = gray, gray, gray
	}
	if !b.alpha {
		a = 0xFF
	}
	px := [4]byte{bl, g, r, a}
	if flags&native.FlagReverseByteOrder != 0 {
		px = [4]byte{r, g, bl, a}
	}

	for y := y0; y < y1; y++ {
		row := b.buf[y*b.stride:]
		for x := x0; x < x1; x++ {
			copy(row[x*4:x*4+4], px[:])
		}
	}
}

func (e *Engine) BitmapCreate(width, height int, alpha bool) native.Handle {
	if width <= 0 || height <= 0 || width > 1<<14 || height > 1<<14 {
		return e.fail(native.ErrUnknown)
	}
	return e.create(native.KindBitmap, &bitmap{
		buf:    make([]byte, width*height*4),
		width:  width,
		height: height,
		stride: width * 4,
		alpha:  alpha,
	})
}

func (e *Engine) BitmapDestroy(bmp native.Handle) {
	e.release(bmp, native.KindBitmap)
}

func (e *Engine) BitmapWidth(bmp native.Handle) int {
	b, ok := lookup[*bitmap](e, bmp, native.KindBitmap)
	if !ok {
		return 0
	}
	return b.width
}

func (e *Engine) BitmapHeight(bmp native.Handle) int {
	b, ok := lookup[*bitmap](e, bmp, native.KindBitmap)
	if !ok {
		return 0
	}
	return b.height
}

func (e *Engine) BitmapStride(bmp native.Handle) int {
	b, ok := lookup[*bitmap](e, bmp, native.KindBitmap)
	if !ok {
		return 0
	}
	return b.stride
}

func (e *Engine) BitmapBuffer(bmp native.Handle) []byte {
	b, ok := lookup[*bitmap](e, bmp, native.KindBitmap)
	if !ok {
		return nil
	}
	return b.buf
}

func (e *Engine) BitmapFillRect(bmp native.Handle, left, top, width, height int, argb uint32) {
	b, ok := lookup[*bitmap](e, bmp, native.KindBitmap)
	if !ok {
		return
	}
	b.fill(left, top, width, height, argb, 0)
}

// renderState is the progress of one progressive render, keyed by page.
type renderState struct {
	bmp    native.Handle
	flags  native.RenderFlags
	rotate native.Rotation
	startX int
	startY int
	sizeX  int
	sizeY  int
	row    int
	status native.RenderStatus
}

func (e *Engine) RenderPageBitmap(bmp, pg native.Handle, startX, startY, sizeX, sizeY int, rotate native.Rotation, flags native.RenderFlags) {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return
	}
	st := &renderState{bmp: bmp, startX: startX, startY: startY, sizeX: sizeX, sizeY: sizeY, rotate: rotate, flags: flags}
	for e.band(p, st) == native.RenderToBeContinued {
	}
}

func (e *Engine) RenderPageBitmapStart(bmp, pg native.Handle, startX, startY, sizeX, sizeY int, rotate native.Rotation, flags native.RenderFlags, pause native.PauseFunc) native.RenderStatus {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		return native.RenderFailed
	}
	p.render = &renderState{bmp: bmp, startX: startX, startY: startY, sizeX: sizeX, sizeY: sizeY, rotate: rotate, flags: flags}
	return e.progress(p, pause)
}

func (e *Engine) RenderPageContinue(pg native.Handle, pause native.PauseFunc) native.RenderStatus {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok || p.render == nil {
		return native.RenderFailed
	}
	if p.render.status == native.RenderDone || p.render.status == native.RenderFailed {
		return p.render.status
	}
	return e.progress(p, pause)
}

func (e *Engine) RenderPageClose(pg native.Handle) {
	p, ok := lookup[*page](e, pg, native.KindPage)
	if !ok {
		e.violate("render close on page %d that is not live", pg)
		return
	}
	p.render = nil
}

// Rendering reports whether a progressive render is open for the page.
func (e *Engine) Rendering(pg native.Handle) bool {
	p, ok := lookup[*page](e, pg, native.KindPage)
	return ok && p.render != nil
}

// progress renders bands until the page is done or pause asks to stop. The
// predicate is only consulted while bands remain.
func (e *Engine) progress(p *page, pause native.PauseFunc) native.RenderStatus {
	st := p.render
	for {
		st.status = e.band(p, st)
		if st.status != native.RenderToBeContinued {
			return st.status
		}
		if pause != nil && pause() {
			return st.status
		}
	}
}

// band rasterizes the next BandHeight device rows.
func (e *Engine) band(p *page, st *renderState) native.RenderStatus {
	b, ok := lookup[*bitmap](e, st.bmp, native.KindBitmap)
	if !ok || st.sizeX <= 0 || st.sizeY <= 0 {
		return native.RenderFailed
	}

	top := st.startY + st.row
	bottom := min(top+BandHeight, st.startY+st.sizeY)

	draw := func(r native.Rect, color uint32) {
		x0, y0, x1, y1 := e.deviceRect(p, st, r)
		y0, y1 = max(y0, top), min(y1, bottom)
		if y0 < y1 {
			b.fill(x0, y0, x1-x0, y1-y0, color, st.flags)
		}
	}
	for _, o := range p.spec.objects {
		switch o.typ {
		case native.ObjectText:
			draw(o.bounds, colorText)
		case native.ObjectPath:
			draw(o.bounds, colorPath)
		}
	}
	if st.flags&native.FlagAnnot != 0 {
		for _, a := range p.spec.annots {
			draw(a.rect, colorAnnot)
		}
	}

	st.row += BandHeight
	if st.row >= st.sizeY {
		return native.RenderDone
	}
	return native.RenderToBeContinued
}

// deviceRect maps a page-space rectangle to device pixels. The page's own
// /Rotate is applied on top of the requested rotation.
func (e *Engine) deviceRect(p *page, st *renderState, r native.Rect) (x0, y0, x1, y1 int) {
	w, h := p.spec.width, p.spec.height
	// Normalized, top-down page coordinates.
	u0, u1 := r.Left/w, r.Right/w
	v0, v1 := (h-r.Top)/h, (h-r.Bottom)/h

	rot := func(u, v float64) (float64, float64) {
		switch (p.spec.rotate + st.rotate) & 3 {
		case native.Rotate90:
			return 1 - v, u
		case native.Rotate180:
			return 1 - u, 1 - v
		case native.Rotate270:
			return v, 1 - u
		}
		return u, v
	}
	ax, ay := rot(u0, v0)
	bx, by := rot(u1, v1)

	sx, sy := float64(st.sizeX), float64(st.sizeY)
	x0 = st.startX + int(math.Floor(math.Min(ax, bx)*sx))
	x1 = st.startX + int(math.Ceil(math.Max(ax, bx)*sx))
	y0 = st.startY + int(math.Floor(math.Min(ay, by)*sy))
	y1 = st.startY + int(math.Ceil(math.Max(ay, by)*sy))
	return x0, y0, x1, y1
}
