package sim

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/wippyai/pdf-runtime/native"
)

const (
	defaultWidth  = 612
	defaultHeight = 792

	textLeft    = 72
	textLeading = 14
	textSize    = 12
	charWidth   = 6
)

var (
	headerMagic  = []byte("%PDF-")
	eofMarker    = []byte("%%EOF")
	pageMarker   = []byte("/Type /Page")
	endObjMarker = []byte("endobj")

	versionRe    = regexp.MustCompile(`^%PDF-(\d)\.(\d)`)
	linearizedRe = regexp.MustCompile(`/Linearized\s+1\b`)
	pageCountRe  = regexp.MustCompile(`/Linearized\s+1\b[^>]*?/N\s+(\d+)`)
	firstPageRe  = regexp.MustCompile(`/Linearized\s+1\b[^>]*?/O\s+(\d+)`)
	encryptRe    = regexp.MustCompile(`/Encrypt\s*\(((?:\\.|[^\\)])*)\)`)
	mediaBoxRe   = regexp.MustCompile(`/MediaBox\s*\[\s*(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s*\]`)
	rotateRe     = regexp.MustCompile(`/Rotate\s+(-?\d+)`)
	textRe       = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
	pathRe       = regexp.MustCompile(`(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s+re\b`)
	annotRe      = regexp.MustCompile(`/Annot\s*/Subtype\s*/(\w+)(?:\s*/Rect\s*\[\s*(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s+(-?[\d.]+)\s*\])?`)
)

// layout is what the engine knows about a document from the bytes it has.
type layout struct {
	password   *string
	pages      []pageSpec
	version    int
	pageCount  int
	firstPage  int
	linearized bool
	form       bool
	eof        bool
}

type pageSpec struct {
	objects []objectSpec
	annots  []annotSpec
	width   float64
	height  float64
	rotate  native.Rotation
}

type objectSpec struct {
	text   string
	bounds native.Rect
	typ    native.ObjectType
}

type annotSpec struct {
	rect    native.Rect
	subtype native.AnnotSubtype
}

// validHeader reports whether data starts like a document.
func validHeader(data []byte) bool {
	return bytes.HasPrefix(data, headerMagic)
}

// parseHeader extracts what the header block alone tells: the version and
// the linearization dictionary.
func parseHeader(data []byte, l *layout) {
	if m := versionRe.FindSubmatch(data); m != nil {
		l.version = int(m[1][0]-'0')*10 + int(m[2][0]-'0')
	}
	l.linearized = linearizedRe.Match(data)
	if m := pageCountRe.FindSubmatch(data); m != nil {
		l.pageCount, _ = strconv.Atoi(string(m[1]))
	}
	if m := firstPageRe.FindSubmatch(data); m != nil {
		l.firstPage, _ = strconv.Atoi(string(m[1]))
	}
}

// parseTrailer extracts document-wide settings kept at the end of the file.
func parseTrailer(data []byte, l *layout) {
	l.eof = bytes.Contains(data, eofMarker)
	l.form = bytes.Contains(data, []byte("/AcroForm"))
	if m := encryptRe.FindSubmatch(data); m != nil {
		pw := unescape(m[1])
		l.password = &pw
	}
}

// parse reads a whole document. It fails with ErrFormat on a missing header
// or trailer marker.
func parse(data []byte) (*layout, native.ErrorCode) {
	if !validHeader(data) {
		return nil, native.ErrFormat
	}
	l := &layout{}
	parseHeader(data, l)
	parseTrailer(tail(data), l)
	if !l.eof {
		return nil, native.ErrFormat
	}
	l.pages = parsePages(data, true)
	if !l.linearized || l.pageCount == 0 {
		l.pageCount = len(l.pages)
	}
	return l, native.ErrSuccess
}

// parsePages returns the page objects fully contained in data. When complete
// is false a trailing page without its endobj is left out.
func parsePages(data []byte, complete bool) []pageSpec {
	var pages []pageSpec
	for off := 0; ; {
		i := indexPage(data[off:])
		if i < 0 {
			break
		}
		start := off + i + len(pageMarker)
		end := bytes.Index(data[start:], endObjMarker)
		if end < 0 {
			if !complete {
				break
			}
			end = len(data) - start
		}
		pages = append(pages, parsePage(data[start:start+end]))
		off = start + end
	}
	return pages
}

// indexPage finds the next page marker, skipping /Type /Pages.
func indexPage(data []byte) int {
	off := 0
	for {
		i := bytes.Index(data[off:], pageMarker)
		if i < 0 {
			return -1
		}
		next := off + i + len(pageMarker)
		if next < len(data) && data[next] == 's' {
			off = next
			continue
		}
		return off + i
	}
}

func parsePage(seg []byte) pageSpec {
	p := pageSpec{width: defaultWidth, height: defaultHeight}
	if m := mediaBoxRe.FindSubmatch(seg); m != nil {
		x0, y0, x1, y1 := atof(m[1]), atof(m[2]), atof(m[3]), atof(m[4])
		if x1 > x0 && y1 > y0 {
			p.width, p.height = x1-x0, y1-y0
		}
	}
	if m := rotateRe.FindSubmatch(seg); m != nil {
		deg, _ := strconv.Atoi(string(m[1]))
		p.rotate = native.Rotation(((deg/90)%4 + 4) % 4)
	}

	type located struct {
		obj objectSpec
		at  int
	}
	var objs []located
	line := 0
	for _, m := range textRe.FindAllSubmatchIndex(seg, -1) {
		s := unescape(seg[m[2]:m[3]])
		top := p.height - textLeft - float64(line)*textLeading
		objs = append(objs, located{at: m[0], obj: objectSpec{
			typ:  native.ObjectText,
			text: s,
			bounds: native.Rect{
				Left:   textLeft,
				Top:    top,
				Right:  textLeft + float64(len([]rune(s))*charWidth),
				Bottom: top - textSize,
			},
		}})
		line++
	}
	for _, m := range pathRe.FindAllSubmatchIndex(seg, -1) {
		x, y := atof(seg[m[2]:m[3]]), atof(seg[m[4]:m[5]])
		w, h := atof(seg[m[6]:m[7]]), atof(seg[m[8]:m[9]])
		objs = append(objs, located{at: m[0], obj: objectSpec{
			typ:    native.ObjectPath,
			bounds: normRect(x, y, x+w, y+h),
		}})
	}
	// Document order.
	for i := 1; i < len(objs); i++ {
		for j := i; j > 0 && objs[j].at < objs[j-1].at; j-- {
			objs[j], objs[j-1] = objs[j-1], objs[j]
		}
	}
	for _, o := range objs {
		p.objects = append(p.objects, o.obj)
	}

	for _, m := range annotRe.FindAllSubmatch(seg, -1) {
		a := annotSpec{subtype: native.ParseAnnotSubtype(string(m[1]))}
		if m[2] != nil {
			a.rect = normRect(atof(m[2]), atof(m[3]), atof(m[4]), atof(m[5]))
		}
		p.annots = append(p.annots, a)
	}
	return p
}

func normRect(x0, y0, x1, y1 float64) native.Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return native.Rect{Left: x0, Top: y1, Right: x1, Bottom: y0}
}

func atof(b []byte) float64 {
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

// tail returns the trailer block.
func tail(data []byte) []byte {
	if len(data) > blockSize {
		return data[len(data)-blockSize:]
	}
	return data
}

func unescape(b []byte) string {
	if bytes.IndexByte(b, '\\') < 0 {
		return string(b)
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
			switch b[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, b[i])
			}
			continue
		}
		out = append(out, b[i])
	}
	return string(out)
}
