package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/pdf-runtime/native"
)

// hostModule is the import namespace the guest shim calls back into.
const hostModule = "pdfium_host"

// callbacks maps the opaque ids passed through the guest to Go callbacks.
// Id 0 means "no callback".
type callbacks struct {
	entries map[uint32]any
	mu      sync.RWMutex
	next    uint32
}

func (c *callbacks) add(v any) uint32 {
	if v == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[uint32]any)
	}
	for {
		c.next++
		if c.next == 0 {
			continue
		}
		if _, used := c.entries[c.next]; !used {
			break
		}
	}
	c.entries[c.next] = v
	return c.next
}

func (c *callbacks) get(id uint32) any {
	if id == 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id]
}

func (c *callbacks) remove(ids ...uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
}

func (c *callbacks) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func callback[T any](c *callbacks, id uint32) (T, bool) {
	v, ok := c.get(id).(T)
	return v, ok
}

// instantiateHost registers the pdfium_host functions:
//
//	get_block(id, pos, buf, size i32) i32
//	is_data_avail(id, offset, size i32) i32
//	add_segment(id, offset, size i32)
//	need_to_pause(id i32) i32
func instantiateHost(ctx context.Context, r wazero.Runtime, cb *callbacks) (api.Module, error) {
	i32 := api.ValueTypeI32

	return r.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = getBlock(cb, mod, uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3]))
		}), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}).
		Export("get_block").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			avail, ok := callback[native.FileAvail](cb, uint32(stack[0]))
			stack[0] = boolResult(ok && avail.IsDataAvail(int64(uint32(stack[1])), int64(uint32(stack[2]))))
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export("is_data_avail").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			if hints, ok := callback[native.DownloadHints](cb, uint32(stack[0])); ok {
				hints.AddSegment(int64(uint32(stack[1])), int64(uint32(stack[2])))
			}
		}), []api.ValueType{i32, i32, i32}, nil).
		Export("add_segment").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			pause, ok := callback[native.PauseFunc](cb, uint32(stack[0]))
			stack[0] = boolResult(ok && pause())
		}), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("need_to_pause").
		Instantiate(ctx)
}

// getBlock reads straight into guest memory; Memory.Read returns a view.
func getBlock(cb *callbacks, mod api.Module, id, pos, buf, size uint32) uint64 {
	access, ok := callback[native.FileAccess](cb, id)
	if !ok {
		debugf("get_block: no file access for id %d", id)
		return 0
	}
	mem := mod.Memory()
	if mem == nil {
		return 0
	}
	dst, ok := mem.Read(buf, size)
	if !ok {
		debugf("get_block: buffer out of bounds: buf=%d size=%d", buf, size)
		return 0
	}
	return boolResult(access.ReadBlock(int64(pos), dst))
}

func boolResult(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
