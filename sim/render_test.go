package sim

import (
	"testing"

	"github.com/wippyai/pdf-runtime/native"
)

func setupRender(t *testing.T, page Page, w, h int) (*Engine, native.Handle, native.Handle) {
	t.Helper()
	e := New()
	doc := openDoc(t, e, Build(Fixture{Pages: []Page{page}}))
	pg := e.LoadPage(doc, 0)
	bmp := e.BitmapCreate(w, h, false)
	if !pg.Valid() || !bmp.Valid() {
		t.Fatal("setup failed")
	}
	return e, pg, bmp
}

func pixel(e *Engine, bmp native.Handle, x, y int) [4]byte {
	buf := e.BitmapBuffer(bmp)
	off := y*e.BitmapStride(bmp) + x*4
	return [4]byte{buf[off], buf[off+1], buf[off+2], buf[off+3]}
}

func TestBitmap(t *testing.T) {
	e := New()
	if e.BitmapCreate(0, 10, false).Valid() {
		t.Error("zero width accepted")
	}
	bmp := e.BitmapCreate(10, 5, true)
	if e.BitmapWidth(bmp) != 10 || e.BitmapHeight(bmp) != 5 || e.BitmapStride(bmp) != 40 {
		t.Fatal("bitmap geometry wrong")
	}

	e.BitmapFillRect(bmp, 2, 1, 3, 2, 0x80112233)
	if got := pixel(e, bmp, 2, 1); got != [4]byte{0x33, 0x22, 0x11, 0x80} {
		t.Errorf("filled pixel = %x", got)
	}
	if got := pixel(e, bmp, 5, 1); got != [4]byte{} {
		t.Errorf("pixel outside fill = %x", got)
	}
	e.BitmapFillRect(bmp, -5, -5, 100, 100, 0xFFFFFFFF)
	if got := pixel(e, bmp, 9, 4); got != [4]byte{0xFF, 0xFF, 0xFF, 0xFF} {
		t.Errorf("clipped fill = %x", got)
	}
}

func TestRenderPageBitmap(t *testing.T) {
	page := Page{Width: 100, Height: 100, Paths: []native.Rect{{Left: 0, Top: 100, Right: 50, Bottom: 50}}}
	e, pg, bmp := setupRender(t, page, 100, 100)

	e.RenderPageBitmap(bmp, pg, 0, 0, 100, 100, native.Rotate0, 0)

	if got := pixel(e, bmp, 10, 10); got != [4]byte{0x80, 0x80, 0x80, 0xFF} {
		t.Errorf("path pixel = %x", got)
	}
	if got := pixel(e, bmp, 90, 90); got != [4]byte{} {
		t.Errorf("background pixel = %x", got)
	}

	e.BitmapFillRect(bmp, 0, 0, 100, 100, 0)
	e.RenderPageBitmap(bmp, pg, 0, 0, 100, 100, native.Rotate180, 0)
	if got := pixel(e, bmp, 90, 90); got == [4]byte{} {
		t.Error("rotated path missing")
	}
}

func TestRenderProgressive_NeverPause(t *testing.T) {
	e, pg, bmp := setupRender(t, Page{}, 50, 200)

	st := e.RenderPageBitmapStart(bmp, pg, 0, 0, 50, 200, native.Rotate0, 0, nil)
	if st != native.RenderDone {
		t.Fatalf("status = %v, want done", st)
	}
	if !e.Rendering(pg) {
		t.Error("session state should remain until close")
	}
	e.RenderPageClose(pg)
	if e.Rendering(pg) {
		t.Error("session still open after close")
	}
}

func TestRenderProgressive_PauseEachBand(t *testing.T) {
	e, pg, bmp := setupRender(t, Page{}, 50, 4*BandHeight)
	always := func() bool { return true }

	st := e.RenderPageBitmapStart(bmp, pg, 0, 0, 50, 4*BandHeight, native.Rotate0, 0, always)
	calls := 1
	for st == native.RenderToBeContinued {
		st = e.RenderPageContinue(pg, always)
		calls++
	}
	if st != native.RenderDone {
		t.Fatalf("final status = %v", st)
	}
	if calls != 4 {
		t.Errorf("took %d calls, want 4", calls)
	}
	if st := e.RenderPageContinue(pg, nil); st != native.RenderDone {
		t.Errorf("continue after done = %v", st)
	}
}

func TestRenderProgressive_BitmapGoneFails(t *testing.T) {
	e, pg, bmp := setupRender(t, Page{}, 50, 4*BandHeight)

	st := e.RenderPageBitmapStart(bmp, pg, 0, 0, 50, 4*BandHeight, native.Rotate0, 0, func() bool { return true })
	if st != native.RenderToBeContinued {
		t.Fatalf("status = %v", st)
	}
	e.BitmapDestroy(bmp)
	if st := e.RenderPageContinue(pg, nil); st != native.RenderFailed {
		t.Errorf("status = %v, want failed", st)
	}
}

func TestRenderFlags(t *testing.T) {
	page := Page{Width: 100, Height: 100, Annots: []Annot{{Subtype: "Link", Rect: native.Rect{Left: 0, Top: 100, Right: 100, Bottom: 0}}}}

	e, pg, bmp := setupRender(t, page, 10, 10)
	e.RenderPageBitmap(bmp, pg, 0, 0, 10, 10, native.Rotate0, 0)
	if got := pixel(e, bmp, 5, 5); got != [4]byte{} {
		t.Errorf("annotation drawn without flag: %x", got)
	}

	e.RenderPageBitmap(bmp, pg, 0, 0, 10, 10, native.Rotate0, native.FlagAnnot)
	if got := pixel(e, bmp, 5, 5); got != [4]byte{0xCC, 0x66, 0x33, 0xFF} {
		t.Errorf("annotation pixel = %x", got)
	}

	e.RenderPageBitmap(bmp, pg, 0, 0, 10, 10, native.Rotate0, native.FlagAnnot|native.FlagReverseByteOrder)
	if got := pixel(e, bmp, 5, 5); got != [4]byte{0x33, 0x66, 0xCC, 0xFF} {
		t.Errorf("reversed pixel = %x", got)
	}

	e.RenderPageBitmap(bmp, pg, 0, 0, 10, 10, native.Rotate0, native.FlagAnnot|native.FlagGrayscale)
	got := pixel(e, bmp, 5, 5)
	if got[0] != got[1] || got[1] != got[2] {
		t.Errorf("grayscale pixel = %x", got)
	}
}
