package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/pdf-runtime/native"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConstruct Phase = "construct" // native factory calls
	PhaseAccess    Phase = "access"    // operations on an existing resource
	PhaseOwnership Phase = "ownership" // registry bookkeeping
	PhaseRender    Phase = "render"    // progressive render sessions
	PhaseAvail     Phase = "avail"     // incremental availability protocol
	PhaseLoad      Phase = "load"      // engine module loading
	PhaseSource    Phase = "source"    // byte transports
	PhaseConfig    Phase = "config"    // configuration parsing
)

// Kind categorizes the error
type Kind string

const (
	KindConstructionFailed   Kind = "construction_failed"
	KindResourceDisposed     Kind = "resource_disposed"
	KindOwnershipViolation   Kind = "ownership_violation"
	KindRenderSessionMisuse  Kind = "render_session_misuse"
	KindAvailabilityNotReady Kind = "availability_not_ready"
	KindInvalidInput         Kind = "invalid_input"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindNativeFailure        Kind = "native_failure"
	KindUnsupported          Kind = "unsupported"
	KindMissingExport        Kind = "missing_export"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrConstructionFailed   = &Error{Kind: KindConstructionFailed}
	ErrResourceDisposed     = &Error{Kind: KindResourceDisposed}
	ErrOwnershipViolation   = &Error{Kind: KindOwnershipViolation}
	ErrRenderSessionMisuse  = &Error{Kind: KindRenderSessionMisuse}
	ErrAvailabilityNotReady = &Error{Kind: KindAvailabilityNotReady}
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Resource native.Kind
	Code     native.ErrorCode
	HasCode  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Resource != native.KindUnknown {
		b.WriteString(" (")
		b.WriteString(e.Resource.String())
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.HasCode {
		fmt.Fprintf(&b, " [native error %d: %s]", int(e.Code), e.Code)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Resource sets the resource kind involved
func (b *Builder) Resource(k native.Kind) *Builder {
	b.err.Resource = k
	return b
}

// Code records the engine's last error code
func (b *Builder) Code(c native.ErrorCode) *Builder {
	b.err.Code = c
	b.err.HasCode = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ConstructionFailed reports a factory call that returned the sentinel handle.
func ConstructionFailed(kind native.Kind, code native.ErrorCode) *Error {
	return &Error{
		Phase:    PhaseConstruct,
		Kind:     KindConstructionFailed,
		Resource: kind,
		Detail:   "engine returned no handle",
		Code:     code,
		HasCode:  true,
	}
}

// Disposed reports an operation on a resource that has been released.
func Disposed(kind native.Kind) *Error {
	return &Error{
		Phase:    PhaseAccess,
		Kind:     KindResourceDisposed,
		Resource: kind,
		Detail:   "resource has been disposed",
	}
}

// OwnerDisposed reports an operation on a resource whose owner began disposal.
func OwnerDisposed(kind, owner native.Kind) *Error {
	return &Error{
		Phase:    PhaseAccess,
		Kind:     KindResourceDisposed,
		Resource: kind,
		Detail:   fmt.Sprintf("owning %s has been disposed", owner),
	}
}

// OwnershipViolation reports an invalid registry operation.
func OwnershipViolation(kind native.Kind, detail string) *Error {
	return &Error{
		Phase:    PhaseOwnership,
		Kind:     KindOwnershipViolation,
		Resource: kind,
		Detail:   detail,
	}
}

// RenderMisuse reports a render session call made out of order.
func RenderMisuse(detail string) *Error {
	return &Error{
		Phase:    PhaseRender,
		Kind:     KindRenderSessionMisuse,
		Resource: native.KindRenderSession,
		Detail:   detail,
	}
}

// NotReady reports an open attempted before availability was confirmed.
func NotReady(kind native.Kind, detail string) *Error {
	return &Error{
		Phase:    PhaseAvail,
		Kind:     KindAvailabilityNotReady,
		Resource: kind,
		Detail:   detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, kind native.Kind, index, length int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfBounds,
		Resource: kind,
		Detail:   fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// NativeFailure reports an engine call that failed without a sentinel handle.
func NativeFailure(phase Phase, kind native.Kind, code native.ErrorCode, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNativeFailure,
		Resource: kind,
		Detail:   detail,
		Code:     code,
		HasCode:  true,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExportsError is returned when an engine module lacks required exports
type MissingExportsError struct {
	Module  string
	Exports []string
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_export: no exports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "engine module %q is missing %d export(s):\n", e.Module, len(e.Exports))
	for _, name := range e.Exports {
		b.WriteString("    - ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	if _, ok := target.(*MissingExportsError); ok {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.Kind == KindMissingExport && (t.Phase == "" || t.Phase == PhaseLoad)
}

// Load creates an engine loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNativeFailure,
		Detail: detail,
		Cause:  cause,
	}
}
