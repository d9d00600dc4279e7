package source

import (
	"io"
	"sync"

	"github.com/wippyai/pdf-runtime/errors"
)

// Simulated serves bytes from memory but only reports the ranges that were
// explicitly delivered as available.
type Simulated struct {
	data     []byte
	have     ranges
	requests []Segment
	pending  []Segment
	mu       sync.Mutex
}

// NewSimulated creates a source over data with nothing delivered yet. A nil
// or empty data slice gives a source that never has anything to offer.
func NewSimulated(data []byte) *Simulated {
	return &Simulated{data: data}
}

func (s *Simulated) Size() int64 { return int64(len(s.data)) }

func (s *Simulated) IsDataAvailable(offset, length int64) bool {
	if offset < 0 || length < 0 || offset+length > int64(len(s.data)) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have.contains(offset, offset+length)
}

func (s *Simulated) RequestSegment(offset, length int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg := Segment{Offset: offset, Length: length}
	s.requests = append(s.requests, seg)
	s.pending = append(s.pending, seg)
}

// ReadAt follows io.ReaderAt: a read crossing the end of the source returns
// the bytes up to the end together with io.EOF.
func (s *Simulated) ReadAt(p []byte, off int64) (int, error) {
	size := int64(len(s.data))
	if off < 0 {
		return 0, errors.InvalidInput(errors.PhaseSource, "negative offset")
	}
	if off >= size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), size)
	if !s.IsDataAvailable(off, end-off) {
		return 0, errors.New(errors.PhaseSource, errors.KindAvailabilityNotReady).
			Detail("bytes [%d, %d) not delivered", off, end).
			Build()
	}
	n := copy(p, s.data[off:end])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Deliver makes [offset, offset+length) available.
func (s *Simulated) Deliver(offset, length int64) {
	offset = max(offset, 0)
	end := min(offset+length, int64(len(s.data)))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.have.add(offset, end)
}

// DeliverAll makes the whole document available.
func (s *Simulated) DeliverAll() {
	s.Deliver(0, int64(len(s.data)))
}

// DeliverRequested delivers every segment requested since the last call and
// returns how many there were.
func (s *Simulated) DeliverRequested() int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, seg := range pending {
		s.Deliver(seg.Offset, seg.Length)
	}
	return len(pending)
}

// Requests returns every segment requested so far.
func (s *Simulated) Requests() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Segment(nil), s.requests...)
}

// Delivered returns the number of bytes available.
func (s *Simulated) Delivered() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have.covered()
}
