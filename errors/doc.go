// Package errors provides structured error types for the pdf-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the resource kind involved, a
// human-readable detail, the engine's last error code when one is known, and
// an optional cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindConstructionFailed).
//		Resource(native.KindDocument).
//		Code(native.ErrPassword).
//		Detail("open %q", name).
//		Build()
//
// Or the convenience constructors for the common cases:
//
//	err := errors.Disposed(native.KindPage)
//	err := errors.ConstructionFailed(native.KindDocument, eng.LastError())
//
// Callers test for a category with the standard library:
//
//	if errors.Is(err, errors.ErrResourceDisposed) { ... }
//
// A sentinel with an empty Phase matches errors of that Kind in any phase.
package errors
