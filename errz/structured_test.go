package errz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredErrorMessage(t *testing.T) {
	err := NewStructuredErrorf(ErrNullReference, "field %q is null", "x")
	require.Equal(t, `null reference: field "x" is null`, err.Error())
	require.True(t, err.IsFatal())
	require.Equal(t, "System.NullReferenceException", err.ExceptionName())

	err.Method = "App.Program.Main"
	err.Offset = 0x1a
	require.Equal(t, `null reference: field "x" is null (App.Program.Main IL_001a)`, err.Error())
}

func TestSoftKindsAreNotFatal(t *testing.T) {
	require.False(t, NewStructuredError(ErrAssemblyResolution, "missing").IsFatal())
	require.False(t, NewStructuredError(ErrAssemblyAlreadyLoaded, "dup").IsFatal())
	require.True(t, NewStructuredError(ErrDivideByZero, "div").IsFatal())
}

func TestExceptionOverride(t *testing.T) {
	err := NewStructuredError(ErrUnhandledException, "boom")
	require.Equal(t, "System.Exception", err.ExceptionName())
	err.Exception = "App.CustomException"
	require.Equal(t, "App.CustomException", err.ExceptionName())
}

func TestIsKind(t *testing.T) {
	inner := NewStructuredError(ErrStackUnderflow, "empty")
	wrapped := fmt.Errorf("running: %w", inner)
	require.True(t, IsKind(wrapped, ErrStackUnderflow))
	require.False(t, IsKind(wrapped, ErrNullReference))
	require.False(t, IsKind(fmt.Errorf("plain"), ErrStackUnderflow))
}

func TestFormatStackTrace(t *testing.T) {
	frames := []StackFrame{
		{Namespace: "App", Type: "Program", Method: "Main"},
		{Type: "Helper", Method: "Run"},
	}
	require.Equal(t, "App.Program.Main()\nHelper.Run()\n", FormatStackTrace(frames))
	require.Equal(t, "", FormatStackTrace(nil))
}

func TestFriendlyErrorMessage(t *testing.T) {
	err := NewStructuredError(ErrNotImplemented, "stelem.ref is not implemented")
	err.Opcode = "stelem.ref"
	err.Offset = 3
	err.Stack = []StackFrame{{Namespace: "App", Type: "Program", Method: "Main"}}
	expected := "System.NotImplementedException: stelem.ref is not implemented\n" +
		" | IL_0003: stelem.ref\n" +
		"\n" +
		"App.Program.Main()\n"
	require.Equal(t, expected, err.FriendlyErrorMessage())
}
