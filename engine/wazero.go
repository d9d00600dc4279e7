package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
)

const (
	exportMalloc = "malloc"
	exportFree   = "free"
)

// requiredExports are the functions the guest must export. FPDF* names are
// the engine's own API; PDFHost* names come from the callback shim.
var requiredExports = []string{
	exportMalloc,
	exportFree,
	"FPDF_InitLibrary",
	"FPDF_DestroyLibrary",
	"FPDF_GetLastError",
	"FPDF_LoadMemDocument",
	"FPDF_CloseDocument",
	"FPDF_GetPageCount",
	"FPDF_GetFileVersion",
	"FPDF_GetPageSizeByIndex",
	"FPDF_LoadPage",
	"FPDF_ClosePage",
	"FPDF_GetPageWidthF",
	"FPDF_GetPageHeightF",
	"FPDFPage_GetRotation",
	"FPDFText_LoadPage",
	"FPDFText_ClosePage",
	"FPDFText_CountChars",
	"FPDFText_GetText",
	"FPDFText_LoadFont",
	"FPDFFont_Close",
	"FPDFPage_CountObjects",
	"FPDFPage_GetObject",
	"FPDFPageObj_GetType",
	"FPDFPageObj_GetBounds",
	"FPDFPage_GetAnnotCount",
	"FPDFPage_GetAnnot",
	"FPDFPage_CloseAnnot",
	"FPDFAnnot_GetSubtype",
	"FPDFAnnot_GetRect",
	"FPDFBitmap_Create",
	"FPDFBitmap_Destroy",
	"FPDFBitmap_GetWidth",
	"FPDFBitmap_GetHeight",
	"FPDFBitmap_GetStride",
	"FPDFBitmap_GetBuffer",
	"FPDFBitmap_FillRect",
	"FPDF_RenderPageBitmap",
	"FPDF_RenderPage_Close",
	"FPDFAvail_Destroy",
	"FPDFAvail_GetDocument",
	"FPDFAvail_GetFirstPageNum",
	"FPDFAvail_IsLinearized",
	"PDFHost_LoadCustomDocument",
	"PDFHost_RenderPageBitmapStart",
	"PDFHost_RenderPageContinue",
	"PDFHost_AvailCreate",
	"PDFHost_AvailIsDocAvail",
	"PDFHost_AvailIsPageAvail",
	"PDFHost_AvailIsFormAvail",
	"PDFHost_Forget",
}

// Config holds configuration for engine creation
type Config struct {
	// Name is the module name used in errors and logs.
	Name string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CacheDir enables wazero's on-disk compilation cache.
	CacheDir string
}

// Engine runs a WebAssembly build of the document engine under wazero and
// exposes it as a native.Engine. Handles are guest pointers.
//
// Calls are serialized: the guest is single threaded. Callbacks run on the
// calling goroutine while the engine lock is held, so a FileAccess,
// FileAvail, DownloadHints or PauseFunc must not call back into the engine.
type Engine struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module
	fns     map[string]api.Function
	alloc   *allocator
	mem     memory
	cb      callbacks

	// docs tracks per-document guest state released on close.
	docs map[native.Handle]docState
	// avails tracks the callback ids of availability contexts.
	avails map[native.Handle][]uint32
	// annots tracks annotation handles, which the guest requires closing
	// before their page.
	annots map[native.Handle][]native.Handle

	mu        sync.Mutex
	lastErr   native.ErrorCode
	trap      error
	libraries int
	nextLib   native.Handle
}

type docState struct {
	buf    uint32   // guest copy of in-memory document bytes
	access []uint32 // callback ids for custom loading
}

// New compiles and instantiates wasm. The module must export every function
// in the engine API plus the PDFHost callback shim; otherwise a
// *errors.MissingExportsError lists what is absent.
func New(ctx context.Context, wasm []byte, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	name := cfg.Name
	if name == "" {
		name = "pdfium"
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Detail("compilation cache %q", cfg.CacheDir).
				Cause(err).
				Build()
		}
		runtimeCfg = runtimeCfg.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	e, err := load(ctx, r, name, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	Logger().Debug("engine module instantiated",
		zap.String("module", name),
		zap.Uint32("memory_bytes", e.mem.Size()))
	return e, nil
}

func load(ctx context.Context, r wazero.Runtime, name string, wasm []byte) (*Engine, error) {
	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile engine module", err)
	}

	if missing := missingExports(compiled.ExportedFunctions()); len(missing) > 0 {
		return nil, &errors.MissingExportsError{Module: name, Exports: missing}
	}

	e := &Engine{
		ctx:     ctx,
		runtime: r,
		fns:     make(map[string]api.Function, len(requiredExports)),
		docs:    make(map[native.Handle]docState),
		avails:  make(map[native.Handle][]uint32),
		annots:  make(map[native.Handle][]native.Handle),
	}

	if importsModule(compiled, wasiModule) {
		if _, err := instantiateWASI(ctx, r); err != nil {
			return nil, errors.Load("instantiate wasi", err)
		}
	}
	if _, err := instantiateHost(ctx, r, &e.cb); err != nil {
		return nil, errors.Load("instantiate host module", err)
	}

	// Reactor builds need _initialize; wazero skips start functions the
	// module does not export.
	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Load("instantiate engine module", err)
	}
	if mod.Memory() == nil {
		return nil, errors.Load("engine module exports no memory", nil)
	}

	e.module = mod
	e.mem = memory{mem: mod.Memory()}
	e.alloc = newAllocator(ctx, mod)
	for _, fn := range requiredExports {
		e.fns[fn] = mod.ExportedFunction(fn)
	}
	return e, nil
}

func missingExports(defs map[string]api.FunctionDefinition) []string {
	var missing []string
	for _, name := range requiredExports {
		if _, ok := defs[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Close releases the wazero runtime and everything instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runtime.Close(ctx)
}

// Err returns the most recent guest trap, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trap
}

// call invokes an export and returns its first result. A trap is logged,
// recorded for Err and LastError, and yields 0.
func (e *Engine) call(name string, params ...uint64) uint64 {
	fn := e.fns[name]
	if fn == nil {
		e.failed(name, fmt.Errorf("export %s not resolved", name))
		return 0
	}
	results, err := fn.Call(e.ctx, params...)
	if err != nil {
		e.failed(name, err)
		return 0
	}
	if len(results) == 0 {
		return 0
	}
	return results[0]
}

func (e *Engine) failed(name string, err error) {
	Logger().Error("engine call failed",
		zap.String("func", name),
		zap.Error(err))
	e.trap = fmt.Errorf("%s: %w", name, err)
	e.lastErr = native.ErrUnknown
}

// factory records the outcome of a handle-returning call. When the engine
// reports success for a failed call, fallback is recorded instead.
func (e *Engine) factory(h native.Handle, fallback native.ErrorCode) native.Handle {
	if h.Valid() {
		e.lastErr = native.ErrSuccess
		return h
	}
	code := native.ErrorCode(i32(e.call("FPDF_GetLastError")))
	if code == native.ErrSuccess {
		code = fallback
	}
	e.lastErr = code
	return native.Invalid
}

func (e *Engine) scratch() *scratch {
	return &scratch{alloc: e.alloc}
}

// i32 decodes a guest i32 result.
func i32(v uint64) int32 {
	return int32(uint32(v))
}

// arg encodes a Go int as a guest i32 parameter.
func arg(v int) uint64 {
	return api.EncodeI32(int32(v))
}

func handle(v uint64) native.Handle {
	return native.Handle(uint32(v))
}
