package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/errors"
)

// DefaultChunkSize is the alignment of HTTP range requests.
const DefaultChunkSize = 64 << 10

// HTTPOption configures an HTTP source.
type HTTPOption func(*HTTP)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithChunkSize sets the alignment of range requests.
func WithChunkSize(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.chunk = n
		}
	}
}

// HTTP fetches a remote document with range requests. Requested segments
// are queued; Fetch downloads them.
type HTTP struct {
	client   *http.Client
	url      string
	buf      []byte
	have     ranges
	queue    []Segment
	size     int64
	chunk    int64
	requests int
	mu       sync.Mutex
}

// NewHTTP issues a HEAD request to learn the size of url and whether it serves ranges.
func NewHTTP(ctx context.Context, url string, opts ...HTTPOption) (*HTTP, error) {
	h := &HTTP{client: http.DefaultClient, url: url, chunk: DefaultChunkSize}
	for _, opt := range opts {
		opt(h)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSource, errors.KindInvalidInput, err, "build request")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSource, errors.KindNativeFailure, err, "head document")
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.PhaseSource, errors.KindNativeFailure).
			Detail("head %s: %s", url, resp.Status).
			Build()
	}
	if resp.ContentLength < 0 {
		return nil, errors.Unsupported(errors.PhaseSource, "server did not report a content length")
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		return nil, errors.Unsupported(errors.PhaseSource, "server does not accept byte ranges")
	}

	h.size = resp.ContentLength
	h.buf = make([]byte, h.size)
	return h, nil
}

func (h *HTTP) Size() int64 { return h.size }

func (h *HTTP) IsDataAvailable(offset, length int64) bool {
	if offset < 0 || length < 0 || offset+length > h.size {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.have.contains(offset, offset+length)
}

// RequestSegment queues the chunks covering the range that are neither
// present nor already queued.
func (h *HTTP) RequestSegment(offset, length int64) {
	start := max(offset, 0) / h.chunk * h.chunk
	end := min((offset+length+h.chunk-1)/h.chunk*h.chunk, h.size)

	h.mu.Lock()
	defer h.mu.Unlock()

	var queued ranges
	for _, q := range h.queue {
		queued.add(q.Offset, q.End())
	}
	for _, m := range h.have.missing(start, end) {
		for _, seg := range queued.missing(m.Offset, m.End()) {
			h.queue = append(h.queue, seg)
			queued.add(seg.Offset, seg.End())
		}
	}
}

// ReadAt follows io.ReaderAt: a read crossing the end of the source returns
// the bytes up to the end together with io.EOF.
func (h *HTTP) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.InvalidInput(errors.PhaseSource, "negative offset")
	}
	if off >= h.size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), h.size)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.have.contains(off, end) {
		return 0, errors.New(errors.PhaseSource, errors.KindAvailabilityNotReady).
			Detail("bytes [%d, %d) not fetched", off, end).
			Build()
	}
	n := copy(p, h.buf[off:end])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Pending returns the number of queued segments.
func (h *HTTP) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Fetched returns the number of bytes downloaded.
func (h *HTTP) Fetched() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.have.covered()
}

// Requests returns the number of range requests sent.
func (h *HTTP) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

// Fetch downloads every queued segment and returns how many it fetched.
// Segments that fail stay queued.
func (h *HTTP) Fetch(ctx context.Context) (int, error) {
	h.mu.Lock()
	queue := h.queue
	h.queue = nil
	h.mu.Unlock()

	for i, seg := range queue {
		if err := h.fetch(ctx, seg); err != nil {
			h.mu.Lock()
			h.queue = append(queue[i:len(queue):len(queue)], h.queue...)
			h.mu.Unlock()
			return i, err
		}
	}
	return len(queue), nil
}

// FetchAll downloads whatever is still missing.
func (h *HTTP) FetchAll(ctx context.Context) error {
	h.RequestSegment(0, h.size)
	_, err := h.Fetch(ctx)
	return err
}

func (h *HTTP) fetch(ctx context.Context, seg Segment) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return errors.Wrap(errors.PhaseSource, errors.KindInvalidInput, err, "build request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", seg.Offset, seg.End()-1))

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.PhaseSource, errors.KindNativeFailure, err, "fetch range")
	}
	defer resp.Body.Close()

	h.mu.Lock()
	h.requests++
	h.mu.Unlock()

	var start, end int64
	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, end = seg.Offset, seg.End()
	case http.StatusOK:
		// Server ignored the range and sent everything.
		start, end = 0, h.size
	default:
		return errors.New(errors.PhaseSource, errors.KindNativeFailure).
			Detail("fetch %s: %s", strconv.Quote(req.Header.Get("Range")), resp.Status).
			Build()
	}

	chunk := make([]byte, end-start)
	if _, err := io.ReadFull(resp.Body, chunk); err != nil {
		return errors.Wrap(errors.PhaseSource, errors.KindNativeFailure, err, "read range body")
	}

	h.mu.Lock()
	copy(h.buf[start:end], chunk)
	h.have.add(start, end)
	h.mu.Unlock()

	Logger().Debug("range fetched",
		zap.String("url", h.url),
		zap.Int64("offset", start),
		zap.Int64("length", end-start))
	return nil
}
