package native

import "fmt"

// Handle is an opaque reference to a native engine object.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Invalid is the sentinel handle returned by failed factory calls.
const Invalid Handle = 0

// Valid reports whether h is not the sentinel.
func (h Handle) Valid() bool { return h != Invalid }

// Kind identifies the native object type behind a handle. It selects the
// release function and never changes for the lifetime of a handle.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLibrary
	KindDocument
	KindPage
	KindTextPage
	KindFont
	KindBitmap
	KindAvail
	KindRenderSession
	KindPageObject
	KindAnnotation
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindLibrary:       "library",
	KindDocument:      "document",
	KindPage:          "page",
	KindTextPage:      "text_page",
	KindFont:          "font",
	KindBitmap:        "bitmap",
	KindAvail:         "avail",
	KindRenderSession: "render_session",
	KindPageObject:    "page_object",
	KindAnnotation:    "annotation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ErrorCode is the engine's last-error value.
type ErrorCode int

const (
	ErrSuccess ErrorCode = iota
	ErrUnknown
	ErrFile
	ErrFormat
	ErrPassword
	ErrSecurity
	ErrPage
)

var errorCodeNames = [...]string{
	ErrSuccess:  "success",
	ErrUnknown:  "unknown error",
	ErrFile:     "file not found or could not be opened",
	ErrFormat:   "file not in expected format or corrupted",
	ErrPassword: "password required or incorrect",
	ErrSecurity: "unsupported security scheme",
	ErrPage:     "page not found or content error",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("error code %d", int(c))
}

// DataStatus is the result of a document or page availability query.
type DataStatus int

const (
	DataError    DataStatus = -1
	DataNotAvail DataStatus = 0
	DataAvail    DataStatus = 1
)

func (s DataStatus) String() string {
	switch s {
	case DataError:
		return "error"
	case DataNotAvail:
		return "not_available"
	case DataAvail:
		return "available"
	}
	return fmt.Sprintf("data_status(%d)", int(s))
}

// FormStatus is the result of an interactive-form availability query.
type FormStatus int

const (
	FormError    FormStatus = -1
	FormNotAvail FormStatus = 0
	FormAvail    FormStatus = 1
	FormNotExist FormStatus = 2
)

func (s FormStatus) String() string {
	switch s {
	case FormError:
		return "error"
	case FormNotAvail:
		return "not_available"
	case FormAvail:
		return "available"
	case FormNotExist:
		return "not_exist"
	}
	return fmt.Sprintf("form_status(%d)", int(s))
}

// Linearization describes whether a document is laid out for incremental
// loading. It is Unknown until enough of the header has arrived.
type Linearization int

const (
	LinearizationUnknown Linearization = -1
	NotLinearized        Linearization = 0
	Linearized           Linearization = 1
)

func (l Linearization) String() string {
	switch l {
	case LinearizationUnknown:
		return "unknown"
	case NotLinearized:
		return "not_linearized"
	case Linearized:
		return "linearized"
	}
	return fmt.Sprintf("linearization(%d)", int(l))
}

// RenderStatus is the state reported by a progressive render call.
type RenderStatus int

const (
	RenderReady         RenderStatus = 0
	RenderToBeContinued RenderStatus = 1
	RenderDone          RenderStatus = 2
	RenderFailed        RenderStatus = 3
)

func (s RenderStatus) String() string {
	switch s {
	case RenderReady:
		return "ready"
	case RenderToBeContinued:
		return "to_be_continued"
	case RenderDone:
		return "done"
	case RenderFailed:
		return "failed"
	}
	return fmt.Sprintf("render_status(%d)", int(s))
}

// Rotation is a clockwise page rotation in quarter turns.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Degrees returns the rotation in degrees.
func (r Rotation) Degrees() int { return int(r&3) * 90 }

// RenderFlags control rasterization.
type RenderFlags uint32

const (
	FlagAnnot            RenderFlags = 0x01
	FlagLCDText          RenderFlags = 0x02
	FlagNoNativeText     RenderFlags = 0x04
	FlagGrayscale        RenderFlags = 0x08
	FlagReverseByteOrder RenderFlags = 0x10
	FlagPrinting         RenderFlags = 0x800
)

// FontType selects how font bytes handed to the engine are interpreted.
type FontType int

const (
	FontType1    FontType = 1
	FontTrueType FontType = 2
)

// ObjectType is the type of a page object.
type ObjectType int

const (
	ObjectUnknown ObjectType = iota
	ObjectText
	ObjectPath
	ObjectImage
	ObjectShading
	ObjectForm
)

func (t ObjectType) String() string {
	switch t {
	case ObjectText:
		return "text"
	case ObjectPath:
		return "path"
	case ObjectImage:
		return "image"
	case ObjectShading:
		return "shading"
	case ObjectForm:
		return "form"
	}
	return "unknown"
}

// AnnotSubtype is the subtype of an annotation.
type AnnotSubtype int

const (
	AnnotUnknown AnnotSubtype = iota
	AnnotText
	AnnotLink
	AnnotFreeText
	AnnotLine
	AnnotSquare
	AnnotCircle
	AnnotHighlight
	AnnotWidget = AnnotSubtype(20)
)

var annotNames = map[string]AnnotSubtype{
	"Text":      AnnotText,
	"Link":      AnnotLink,
	"FreeText":  AnnotFreeText,
	"Line":      AnnotLine,
	"Square":    AnnotSquare,
	"Circle":    AnnotCircle,
	"Highlight": AnnotHighlight,
	"Widget":    AnnotWidget,
}

// ParseAnnotSubtype maps a PDF subtype name to its code.
func ParseAnnotSubtype(name string) AnnotSubtype {
	return annotNames[name]
}

func (s AnnotSubtype) String() string {
	for name, v := range annotNames {
		if v == s {
			return name
		}
	}
	return "Unknown"
}

// Rect is a rectangle in page space (points, origin bottom-left).
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Right && y >= r.Bottom && y < r.Top
}
