package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const wasiModule = "wasi_snapshot_preview1"

// importsModule reports whether compiled imports any function from module.
func importsModule(compiled wazero.CompiledModule, module string) bool {
	for _, def := range compiled.ImportedFunctions() {
		if mod, _, ok := def.Import(); ok && mod == module {
			return true
		}
	}
	return false
}

// instantiateWASI provides preview1 to engine builds that link a libc.
// The guest gets no preopened directories and no environment: documents only
// reach it through guest memory or the file access callbacks.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasiModule)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}
