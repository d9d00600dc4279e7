package native

// FileAccess lets the engine read document bytes it does not own.
type FileAccess interface {
	// Len returns the total document size in bytes.
	Len() int64

	// ReadBlock fills buf from offset. It returns false when the range
	// cannot be read, which the engine treats as a read failure.
	ReadBlock(offset int64, buf []byte) bool
}

// FileAvail answers whether a byte range is present locally.
// Implementations must not block.
type FileAvail interface {
	IsDataAvail(offset, size int64) bool
}

// DownloadHints receives ranges the engine wants next. Calls are hints
// only: the engine never waits for the data to arrive.
type DownloadHints interface {
	AddSegment(offset, size int64)
}

// SizeLimiter is implemented by engines that cannot address documents past
// a fixed size.
type SizeLimiter interface {
	MaxDocumentSize() int64
}

// SizeFits reports whether a document of size bytes is within e's limit.
// Engines without a limit accept any size.
func SizeFits(e Engine, size int64) bool {
	if l, ok := e.(SizeLimiter); ok {
		return size <= l.MaxDocumentSize()
	}
	return true
}

// PauseFunc is polled during progressive rendering; returning true asks the
// engine to stop at the next safe point and report RenderToBeContinued.
type PauseFunc func() bool

// Engine is the flat capability set of the wrapped document engine.
//
// Factory methods return Invalid on failure and record the reason in
// LastError. Release methods must be called exactly once per handle.
// Query methods on an invalid or released handle have unspecified results;
// callers are expected to go through package resource, which never forwards
// a released handle.
type Engine interface {
	LastError() ErrorCode

	InitLibrary() Handle
	DestroyLibrary(lib Handle)

	LoadMemDocument(data []byte, password string) Handle
	LoadCustomDocument(access FileAccess, password string) Handle
	CloseDocument(doc Handle)
	PageCount(doc Handle) int
	FileVersion(doc Handle) (int, bool)
	PageSizeByIndex(doc Handle, index int) (width, height float64, ok bool)

	LoadPage(doc Handle, index int) Handle
	ClosePage(page Handle)
	PageWidth(page Handle) float64
	PageHeight(page Handle) float64
	PageRotation(page Handle) Rotation

	TextLoadPage(page Handle) Handle
	TextClosePage(text Handle)
	TextCountChars(text Handle) int
	// TextGetText writes UTF-16LE code units for count characters starting
	// at start, followed by a NUL unit, and returns the number of units
	// written including the terminator.
	TextGetText(text Handle, start, count int, buf []byte) int

	LoadFont(doc Handle, data []byte, typ FontType, cid bool) Handle
	CloseFont(font Handle)

	CountPageObjects(page Handle) int
	GetPageObject(page Handle, index int) Handle
	PageObjectType(obj Handle) ObjectType
	PageObjectBounds(obj Handle) (Rect, bool)

	CountAnnots(page Handle) int
	GetAnnot(page Handle, index int) Handle
	AnnotSubtype(annot Handle) AnnotSubtype
	AnnotRect(annot Handle) (Rect, bool)

	BitmapCreate(width, height int, alpha bool) Handle
	BitmapDestroy(bitmap Handle)
	BitmapWidth(bitmap Handle) int
	BitmapHeight(bitmap Handle) int
	BitmapStride(bitmap Handle) int
	// BitmapBuffer returns the BGRA pixel memory. The slice aliases engine
	// memory and is valid until the next engine call that may allocate.
	BitmapBuffer(bitmap Handle) []byte
	BitmapFillRect(bitmap Handle, left, top, width, height int, argb uint32)

	RenderPageBitmap(bitmap, page Handle, startX, startY, sizeX, sizeY int, rotate Rotation, flags RenderFlags)
	RenderPageBitmapStart(bitmap, page Handle, startX, startY, sizeX, sizeY int, rotate Rotation, flags RenderFlags, pause PauseFunc) RenderStatus
	RenderPageContinue(page Handle, pause PauseFunc) RenderStatus
	RenderPageClose(page Handle)

	AvailCreate(avail FileAvail, access FileAccess) Handle
	AvailDestroy(avail Handle)
	AvailIsDocAvail(avail Handle, hints DownloadHints) DataStatus
	AvailGetDocument(avail Handle, password string) Handle
	AvailGetFirstPageNum(doc Handle) int
	AvailIsPageAvail(avail Handle, index int, hints DownloadHints) DataStatus
	AvailIsFormAvail(avail Handle, hints DownloadHints) FormStatus
	AvailIsLinearized(avail Handle) Linearization
}

// Releaser returns the release function for handles of kind k, or nil for
// kinds that are never released on their own (views).
func Releaser(e Engine, k Kind) func(Handle) {
	switch k {
	case KindLibrary:
		return e.DestroyLibrary
	case KindDocument:
		return e.CloseDocument
	case KindPage:
		return e.ClosePage
	case KindTextPage:
		return e.TextClosePage
	case KindFont:
		return e.CloseFont
	case KindBitmap:
		return e.BitmapDestroy
	case KindAvail:
		return e.AvailDestroy
	case KindRenderSession:
		// Progress state is keyed by the page handle.
		return e.RenderPageClose
	}
	return nil
}
