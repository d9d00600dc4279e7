package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// allocator calls the guest's malloc and free.
type allocator struct {
	ctx      context.Context
	allocFn  api.Function
	freeFn   api.Function
	stackBuf []uint64
	mu       sync.Mutex
}

func newAllocator(ctx context.Context, mod api.Module) *allocator {
	return &allocator{
		ctx:      ctx,
		allocFn:  mod.ExportedFunction(exportMalloc),
		freeFn:   mod.ExportedFunction(exportFree),
		stackBuf: make([]uint64, 1),
	}
}

func (a *allocator) Alloc(size uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, fmt.Errorf("no allocator available")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// malloc(0) may legally return NULL.
	a.stackBuf[0] = uint64(max(size, 1))
	if err := a.allocFn.CallWithStack(a.ctx, a.stackBuf); err != nil {
		return 0, err
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, fmt.Errorf("guest out of memory allocating %d bytes", size)
	}
	return ptr, nil
}

func (a *allocator) Free(ptr uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stackBuf[0] = uint64(ptr)
	if err := a.freeFn.CallWithStack(a.ctx, a.stackBuf); err != nil {
		Logger().Warn("Free: failed to call free",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

// memory wraps the guest's linear memory with bounds-checked accessors.
type memory struct {
	mem api.Memory
}

func (m memory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d length=%d", offset, length)
	}
	return data, nil
}

func (m memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d length=%d", offset, len(data))
	}
	return nil
}

func (m memory) ReadI32(offset uint32) (int32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read i32 out of bounds: offset=%d", offset)
	}
	return int32(v), nil
}

func (m memory) ReadF32(offset uint32) (float32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read f32 out of bounds: offset=%d", offset)
	}
	return math.Float32frombits(v), nil
}

func (m memory) ReadF64(offset uint32) (float64, error) {
	v, ok := m.mem.ReadFloat64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read f64 out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// scratch is a short-lived guest allocation for out parameters and strings.
type scratch struct {
	alloc *allocator
	ptrs  []uint32
}

func (s *scratch) bytes(data []byte, mem memory) (uint32, error) {
	ptr, err := s.alloc.Alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	s.ptrs = append(s.ptrs, ptr)
	if err := mem.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// cstring writes s with a NUL terminator. The empty string is passed as NULL.
func (s *scratch) cstring(str string, mem memory) (uint32, error) {
	if str == "" {
		return 0, nil
	}
	return s.bytes(append([]byte(str), 0), mem)
}

func (s *scratch) zeroed(size uint32, mem memory) (uint32, error) {
	return s.bytes(make([]byte, size), mem)
}

func (s *scratch) release() {
	for _, p := range s.ptrs {
		s.alloc.Free(p)
	}
	s.ptrs = s.ptrs[:0]
}
