package pdfruntime

import (
	"context"

	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/engine"
)

// Runtime is a wasm engine together with the library initialized on it.
type Runtime struct {
	Engine  *engine.Engine
	Library *document.Library
}

// Open instantiates the engine module and initializes a library on it.
func Open(ctx context.Context, wasm []byte, cfg *engine.Config, opts ...document.Option) (*Runtime, error) {
	e, err := engine.New(ctx, wasm, cfg)
	if err != nil {
		return nil, err
	}
	lib, err := document.NewLibrary(e, opts...)
	if err != nil {
		_ = e.Close(ctx)
		return nil, err
	}
	return &Runtime{Engine: e, Library: lib}, nil
}

// Close disposes everything opened through the library, then shuts the
// engine down.
func (r *Runtime) Close(ctx context.Context) error {
	if err := r.Library.Close(); err != nil {
		return err
	}
	return r.Engine.Close(ctx)
}
