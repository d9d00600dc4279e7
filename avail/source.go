package avail

import (
	"io"

	"go.uber.org/zap"
)

// IncrementalSource is a byte range that may not be fully present yet.
type IncrementalSource interface {
	// Size returns the total length of the document in bytes.
	Size() int64

	// IsDataAvailable reports whether [offset, offset+length) is present.
	// It must not block.
	IsDataAvailable(offset, length int64) bool

	// RequestSegment records that the engine wants [offset, offset+length).
	// It must return immediately; delivery happens out of band.
	RequestSegment(offset, length int64)

	// ReadAt reads delivered bytes.
	io.ReaderAt
}

// bridge presents a source through the engine's callback interfaces.
type bridge struct {
	src IncrementalSource
}

func (b bridge) Len() int64 { return b.src.Size() }

func (b bridge) IsDataAvail(offset, size int64) bool {
	return b.src.IsDataAvailable(offset, size)
}

func (b bridge) ReadBlock(offset int64, buf []byte) bool {
	n, err := b.src.ReadAt(buf, offset)
	return n == len(buf) && (err == nil || err == io.EOF)
}

func (b bridge) AddSegment(offset, size int64) {
	Logger().Debug("segment requested", zap.Int64("offset", offset), zap.Int64("size", size))
	b.src.RequestSegment(offset, size)
}
