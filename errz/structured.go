// Package errz defines the structured errors raised while loading and
// executing managed code.
package errz

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrAssemblyResolution indicates a referenced assembly file was not found.
	ErrAssemblyResolution ErrorKind = iota
	// ErrAssemblyAlreadyLoaded indicates a duplicate assembly reference.
	ErrAssemblyAlreadyLoaded
	// ErrMethodResolution indicates a call target could not be resolved.
	ErrMethodResolution
	// ErrMethodBodyNotFound indicates a method with no code and no native.
	ErrMethodBodyNotFound
	// ErrFieldResolution indicates a field could not be resolved or read.
	ErrFieldResolution
	// ErrUnsupportedOpcode indicates an opcode the interpreter does not know.
	ErrUnsupportedOpcode
	// ErrEntryPointNotFound indicates the entry assembly has no entry point.
	ErrEntryPointNotFound
	// ErrNullReference indicates a null dereference.
	ErrNullReference
	// ErrStackUnderflow indicates an opcode found too few stack entries.
	ErrStackUnderflow
	// ErrDivideByZero indicates an integer division by zero.
	ErrDivideByZero
	// ErrArithmetic indicates an arithmetic overflow such as MinInt / -1.
	ErrArithmetic
	// ErrInvalidProgram indicates operands of the wrong type.
	ErrInvalidProgram
	// ErrInvalidBranch indicates a branch to an offset with no instruction.
	ErrInvalidBranch
	// ErrNotImplemented indicates a recognized opcode without an implementation.
	ErrNotImplemented
	// ErrNotSupported indicates an unsupported conversion.
	ErrNotSupported
	// ErrStackOverflow indicates the maximum call depth was exceeded.
	ErrStackOverflow
	// ErrUnhandledException indicates a managed exception object was thrown.
	ErrUnhandledException
	// ErrHalted indicates execution was stopped from outside the program.
	ErrHalted
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrAssemblyResolution:
		return "assembly resolution error"
	case ErrAssemblyAlreadyLoaded:
		return "assembly already loaded"
	case ErrMethodResolution:
		return "method resolution error"
	case ErrMethodBodyNotFound:
		return "method body not found"
	case ErrFieldResolution:
		return "field resolution error"
	case ErrUnsupportedOpcode:
		return "unsupported opcode"
	case ErrEntryPointNotFound:
		return "entry point not found"
	case ErrNullReference:
		return "null reference"
	case ErrStackUnderflow:
		return "stack underflow"
	case ErrDivideByZero:
		return "divide by zero"
	case ErrArithmetic:
		return "arithmetic error"
	case ErrInvalidProgram:
		return "invalid program"
	case ErrInvalidBranch:
		return "invalid branch"
	case ErrNotImplemented:
		return "not implemented"
	case ErrNotSupported:
		return "not supported"
	case ErrStackOverflow:
		return "stack overflow"
	case ErrUnhandledException:
		return "unhandled exception"
	case ErrHalted:
		return "halted"
	default:
		return "error"
	}
}

// ExceptionName returns the managed exception type reported for the kind.
func (k ErrorKind) ExceptionName() string {
	switch k {
	case ErrAssemblyResolution:
		return "System.IO.FileNotFoundException"
	case ErrMethodResolution:
		return "System.MissingMethodException"
	case ErrFieldResolution:
		return "System.MissingFieldException"
	case ErrEntryPointNotFound:
		return "System.EntryPointNotFoundException"
	case ErrNullReference:
		return "System.NullReferenceException"
	case ErrUnsupportedOpcode, ErrStackUnderflow, ErrInvalidProgram, ErrInvalidBranch:
		return "System.InvalidProgramException"
	case ErrDivideByZero:
		return "System.DivideByZeroException"
	case ErrArithmetic:
		return "System.ArithmeticException"
	case ErrNotImplemented:
		return "System.NotImplementedException"
	case ErrNotSupported:
		return "System.NotSupportedException"
	case ErrStackOverflow:
		return "System.StackOverflowException"
	case ErrHalted:
		return "System.OperationCanceledException"
	default:
		return "System.Exception"
	}
}

// StructuredError is an error raised by the loader or the interpreter. It
// records the method and byte position where it was detected and a snapshot
// of the diagnostic call stack.
type StructuredError struct {
	Message string
	Kind    ErrorKind
	// Exception overrides the managed exception name derived from Kind.
	Exception string
	// Method is the fully-qualified name of the executing method, if any.
	Method string
	// Opcode is the mnemonic of the failing instruction, if any.
	Opcode string
	// Offset is the byte position of the failing instruction.
	Offset int
	Stack  []StackFrame
	Cause  error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%s IL_%04x)", e.Kind.String(), e.Message, e.Method, e.Offset)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// IsFatal returns whether the error halts execution.
func (e *StructuredError) IsFatal() bool {
	switch e.Kind {
	case ErrAssemblyResolution, ErrAssemblyAlreadyLoaded:
		return false
	default:
		return true
	}
}

// ExceptionName returns the managed exception type name for the error.
func (e *StructuredError) ExceptionName() string {
	if e.Exception != "" {
		return e.Exception
	}
	return e.Kind.ExceptionName()
}

// FriendlyErrorMessage returns a human-friendly error message including the
// failing instruction and the call stack.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("%s: %s\n", e.ExceptionName(), e.Message))
	if e.Opcode != "" {
		msg.WriteString(fmt.Sprintf(" | IL_%04x: %s\n", e.Offset, e.Opcode))
	}
	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return msg.String()
}

// NewStructuredError creates a new StructuredError with the given parameters.
func NewStructuredError(kind ErrorKind, message string) *StructuredError {
	return &StructuredError{
		Message: message,
		Kind:    kind,
	}
}

// NewStructuredErrorf creates a new StructuredError with a formatted message.
func NewStructuredErrorf(kind ErrorKind, format string, args ...any) *StructuredError {
	return &StructuredError{
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
	}
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// GetStack returns the stack frames of the error.
func (e *StructuredError) GetStack() []StackFrame {
	return e.Stack
}

// IsKind reports whether err is, or wraps, a StructuredError of the kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StructuredError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}

// StackFrame is one entry of the diagnostic call stack.
type StackFrame struct {
	Namespace string
	Type      string
	Method    string
}

// String renders the frame as Namespace.Type.Method().
func (f StackFrame) String() string {
	var b strings.Builder
	if f.Namespace != "" {
		b.WriteString(f.Namespace)
		b.WriteString(".")
	}
	b.WriteString(f.Type)
	b.WriteString(".")
	b.WriteString(f.Method)
	b.WriteString("()")
	return b.String()
}

// FormatStackTrace renders frames one per line, outermost first.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	for _, frame := range frames {
		b.WriteString(frame.String())
		b.WriteString("\n")
	}
	return b.String()
}
