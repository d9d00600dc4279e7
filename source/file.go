package source

import (
	"os"

	"github.com/wippyai/pdf-runtime/errors"
)

// File is a local file. Everything in it is available.
type File struct {
	f    *os.File
	size int64
}

// OpenFile opens path for reading.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSource, errors.KindInvalidInput, err, "open source file")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.PhaseSource, errors.KindInvalidInput, err, "stat source file")
	}
	return &File{f: f, size: st.Size()}, nil
}

func (f *File) Size() int64 { return f.size }

func (f *File) IsDataAvailable(offset, length int64) bool {
	return offset >= 0 && length >= 0 && offset+length <= f.size
}

// RequestSegment is a no-op: nothing is ever missing.
func (f *File) RequestSegment(offset, length int64) {}

func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.f.ReadAt(p, off) }

// Close closes the file.
func (f *File) Close() error { return f.f.Close() }
