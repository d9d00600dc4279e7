package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/resource"
)

// Bitmap is an engine-side BGRA pixel buffer owned by a library.
type Bitmap struct {
	engine native.Engine
	res    *resource.Resource
	width  int
	height int
	alpha  bool
}

// NewBitmap allocates a width x height bitmap.
func NewBitmap(lib *document.Library, width, height int, alpha bool) (*Bitmap, error) {
	if err := lib.Resource().Check(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "bitmap dimensions must be positive")
	}
	e := lib.Engine()
	res, err := resource.New(native.KindBitmap, e.BitmapCreate(width, height, alpha), e.BitmapDestroy,
		resource.Owner(lib.Resource()),
		resource.LastError(e.LastError))
	if err != nil {
		return nil, err
	}
	return &Bitmap{engine: e, res: res, width: width, height: height, alpha: alpha}, nil
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.height }

// Bounds returns the pixel rectangle of the bitmap.
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// Resource returns the bitmap's resource.
func (b *Bitmap) Resource() *resource.Resource { return b.res }

// Close releases the bitmap.
func (b *Bitmap) Close() error {
	b.res.Dispose()
	return nil
}

func argb(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}

// Fill paints r with c.
func (b *Bitmap) Fill(r image.Rectangle, c color.Color) error {
	h, err := b.res.Handle()
	if err != nil {
		return err
	}
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return nil
	}
	b.engine.BitmapFillRect(h, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), argb(c))
	return nil
}

// Clear paints the whole bitmap with c.
func (b *Bitmap) Clear(c color.Color) error {
	return b.Fill(b.Bounds(), c)
}

// Buffer returns a copy of the raw BGRA rows and their stride.
func (b *Bitmap) Buffer() ([]byte, int, error) {
	h, err := b.res.Handle()
	if err != nil {
		return nil, 0, err
	}
	stride := b.engine.BitmapStride(h)
	buf := b.engine.BitmapBuffer(h)
	if stride < b.width*4 || len(buf) < stride*b.height {
		return nil, 0, errors.NativeFailure(errors.PhaseAccess, native.KindBitmap, b.engine.LastError(), "bitmap buffer unavailable")
	}
	return append([]byte(nil), buf[:stride*b.height]...), stride, nil
}

// Image converts the bitmap to RGBA.
func (b *Bitmap) Image() (*image.RGBA, error) {
	buf, stride, err := b.Buffer()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(b.Bounds())
	for y := 0; y < b.height; y++ {
		src := buf[y*stride : y*stride+b.width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+b.width*4]
		for x := 0; x < len(src); x += 4 {
			a := src[x+3]
			if !b.alpha {
				a = 0xFF
			}
			dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+2], src[x+1], src[x], a
		}
	}
	return img, nil
}

// Thumbnail returns the bitmap scaled to fit within width x height, keeping
// the aspect ratio.
func (b *Bitmap) Thumbnail(width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.InvalidInput(errors.PhaseRender, "thumbnail dimensions must be positive")
	}
	img, err := b.Image()
	if err != nil {
		return nil, err
	}
	scale := min(float64(width)/float64(b.width), float64(height)/float64(b.height))
	w := max(1, int(float64(b.width)*scale))
	h := max(1, int(float64(b.height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst, nil
}
