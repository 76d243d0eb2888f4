package vm

import (
	"context"
	"fmt"
	"testing"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/natives"
	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/op"
	"github.com/stretchr/testify/require"
)

func TestEveryCodeHasHandler(t *testing.T) {
	for code := op.Code(0); code < op.Count; code++ {
		require.NotNil(t, handlers[code], code.String())
	}
}

func TestArithmetic(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.s", int8(6)),
		ins("ldc.i4.7"),
		ins("mul"),
		ins("ldc.i4.2"),
		ins("sub"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(40), result)
}

func TestInt32Wraparound(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4", int32(2147483647)),
		ins("ldc.i4.1"),
		ins("add"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(-2147483648), result)
}

func TestLoop(t *testing.T) {
	// sum = 0; for i = 1; i <= 10; i++ { sum += i }
	result, err := runMain(t,
		ins("ldc.i4.0"),           // IL_0000
		ins("stloc.0"),            // IL_0001
		ins("ldc.i4.1"),           // IL_0002
		ins("stloc.1"),            // IL_0003
		ins("ldloc.1"),            // IL_0004
		ins("ldc.i4.s", int8(10)), // IL_0005
		ins("bgt.s", int8(11)),    // IL_0007 -> IL_0013
		ins("ldloc.0"),            // IL_0009
		ins("ldloc.1"),            // IL_000a
		ins("add"),                // IL_000b
		ins("stloc.0"),            // IL_000c
		ins("ldloc.1"),            // IL_000d
		ins("ldc.i4.1"),           // IL_000e
		ins("add"),                // IL_000f
		ins("stloc.1"),            // IL_0010
		ins("br.s", int8(-14)),    // IL_0011 -> IL_0004
		ins("ldloc.0"),            // IL_0013
		ins("ret"),                // IL_0014
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(55), result)
}

func TestCompareBranches(t *testing.T) {
	type testCase struct {
		name  string
		left  int32
		right int32
		taken bool
	}
	testCases := []testCase{
		{"beq.s", 3, 3, true},
		{"beq.s", 3, 4, false},
		{"bne.un.s", 3, 4, true},
		{"bne.un.s", 3, 3, false},
		{"bge.s", 4, 3, true},
		{"bge.s", 3, 3, true},
		{"bge.s", 2, 3, false},
		{"bgt.s", 4, 3, true},
		{"bgt.s", 3, 3, false},
		{"ble.s", 3, 3, true},
		{"ble.s", 4, 3, false},
		{"blt.s", 2, 3, true},
		{"blt.s", 3, 3, false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %d %d", tc.name, tc.left, tc.right), func(t *testing.T) {
			result, err := runMain(t,
				ins("ldc.i4", tc.left),  // IL_0000
				ins("ldc.i4", tc.right), // IL_0005
				ins(tc.name, int8(3)),   // IL_000a -> IL_000e
				ins("ldc.i4.0"),         // IL_000c
				ins("ret"),              // IL_000d
				ins("ldc.i4.1"),         // IL_000e
				ins("ret"),              // IL_000f
			)
			require.Nil(t, err)
			require.Equal(t, object.Bool(tc.taken), result)
		})
	}
}

func TestLongBranch(t *testing.T) {
	result, err := runMain(t,
		ins("br", int32(2)), // IL_0000 -> IL_0006
		ins("ldc.i4.0"),     // IL_0005
		ins("ldc.i4.1"),     // IL_0006
		ins("ret"),          // IL_0007
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(1), result)
}

func TestBrtrue(t *testing.T) {
	body := func(first metadata.Instruction) []metadata.Instruction {
		return []metadata.Instruction{
			first,                    // IL_0000
			ins("brtrue.s", int8(2)), // IL_0001 -> IL_0004
			ins("ret"),               // IL_0003
			ins("ldc.i4.7"),          // IL_0004
			ins("ret"),               // IL_0005
		}
	}

	result, err := runMain(t, body(ins("ldc.i4.1"))...)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(7), result)

	// Values other than 1 are popped without branching.
	result, err = runMain(t, body(ins("ldc.i4.2"))...)
	require.Nil(t, err)
	require.Nil(t, result)

	// Null is neither popped nor branched on.
	result, err = runMain(t, body(ins("ldnull"))...)
	require.Nil(t, err)
	require.Equal(t, object.Null, result)
}

func TestBrfalse(t *testing.T) {
	for _, first := range []metadata.Instruction{ins("ldc.i4.0"), ins("ldnull")} {
		result, err := runMain(t,
			first,                     // IL_0000
			ins("brfalse.s", int8(2)), // IL_0001 -> IL_0004
			ins("ldc.i4.0"),           // IL_0003
			ins("ldc.i4.8"),           // IL_0004
			ins("ret"),                // IL_0005
		)
		require.Nil(t, err)
		require.Equal(t, object.NewInt32(8), result)
	}
}

func TestBrfalseEmptyStack(t *testing.T) {
	_, err := runMain(t,
		ins("brfalse.s", int8(1)),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrStackUnderflow))
}

func TestInvalidBranchTarget(t *testing.T) {
	main := staticMethod("Main", "void()", nil,
		ins("ldstr", "unreachable"),
		ins("call", call("System", "Console", "WriteLine", "void(string)")),
		ins("br.s", int8(40)),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrInvalidBranch))
	require.Empty(t, m.stdout.String())

	var se *errz.StructuredError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "br.s", se.Opcode)
	require.Equal(t, []errz.StackFrame{{Namespace: "Demo", Type: "Program", Method: "Main"}}, se.Stack)
}

func TestFallOffEnd(t *testing.T) {
	result, err := runMain(t, ins("ldc.i4.5"))
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(5), result)

	result, err = runMain(t, ins("nop"))
	require.Nil(t, err)
	require.Nil(t, result)
}

func TestUnsetLocalIsNull(t *testing.T) {
	result, err := runMain(t,
		ins("ldloc.s", int8(9)),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.Null, result)
}

func TestHighLocalSlots(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.s", int8(9)),
		ins("stloc.s", uint8(200)),
		ins("ldloc.s", int8(-56)),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(9), result)
}

func TestStlocEmptyStack(t *testing.T) {
	_, err := runMain(t, ins("stloc.0"))
	require.True(t, errz.IsKind(err, errz.ErrStackUnderflow))
}

func TestDupPop(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.3"),
		ins("dup"),
		ins("add"),
		ins("ldc.i4.1"),
		ins("pop"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(6), result)
}

func TestConversions(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.s", int8(-3)),
		ins("conv.i8"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt64(-3), result)

	result, err = runMain(t,
		ins("ldc.i8", int64(1)<<40),
		ins("conv.i8"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt64(1<<40), result)

	result, err = runMain(t,
		ins("ldc.i4.4"),
		ins("conv.i4"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(4), result)

	_, err = runMain(t,
		ins("ldstr", "4"),
		ins("conv.i4"),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrNotSupported))
}

func TestFloatConstants(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.r8", 1.5),
		ins("ldc.r8", 2.0),
		ins("mul"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewFloat64(3), result)

	result, err = runMain(t,
		ins("ldc.r4", float32(0.5)),
		ins("neg"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewFloat32(-0.5), result)
}

func TestDivideByZero(t *testing.T) {
	_, err := runMain(t,
		ins("ldc.i4.1"),
		ins("ldc.i4.0"),
		ins("div"),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrDivideByZero))
}

func TestMixedOperandsAreRejected(t *testing.T) {
	_, err := runMain(t,
		ins("ldc.i4.1"),
		ins("ldc.i8", int64(1)),
		ins("add"),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrInvalidProgram))
}

func TestRecursiveCall(t *testing.T) {
	fact := staticMethod("Fact", "int32(int32)", []object.Type{object.INT32},
		ins("ldarg.0"),                                               // IL_0000
		ins("ldc.i4.1"),                                              // IL_0001
		ins("bgt.s", int8(3)),                                        // IL_0002 -> IL_0006
		ins("ldc.i4.1"),                                              // IL_0004
		ins("ret"),                                                   // IL_0005
		ins("ldarg.0"),                                               // IL_0006
		ins("ldarg.0"),                                               // IL_0007
		ins("ldc.i4.1"),                                              // IL_0008
		ins("sub"),                                                   // IL_0009
		ins("call", call("Demo", "Program", "Fact", "int32(int32)")), // IL_000a
		ins("mul"),                                                   // IL_000f
		ins("ret"),                                                   // IL_0010
	)
	main := staticMethod("Main", "int32()", nil,
		ins("ldc.i4.5"),
		ins("call", call("Demo", "Program", "Fact", "int32(int32)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, fact)})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(120), result)
	require.Equal(t, 0, m.CallStack().Len())
}

func TestArgumentTypeCheck(t *testing.T) {
	add := staticMethod("Add", "int32(int32, int32)", []object.Type{object.INT32, object.INT32},
		ins("ldarg.0"),
		ins("ldarg.1"),
		ins("add"),
		ins("ret"),
	)
	main := staticMethod("Main", "int32()", nil,
		ins("ldstr", "2"),
		ins("ldc.i4.3"),
		ins("call", call("Demo", "Program", "Add", "int32(int32, int32)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, add)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrInvalidProgram))
}

func TestStarg(t *testing.T) {
	twice := staticMethod("Twice", "int32(int32)", []object.Type{object.INT32},
		ins("ldarg.0"),
		ins("ldarg.0"),
		ins("add"),
		ins("starg.s", int8(0)),
		ins("ldarg.s", int8(0)),
		ins("ret"),
	)
	main := staticMethod("Main", "int32()", nil,
		ins("ldc.i4.4"),
		ins("call", call("Demo", "Program", "Twice", "int32(int32)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, twice)})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(8), result)
}

func TestLegacyArgumentMarkers(t *testing.T) {
	add := staticMethod("Add", "int32(int32, int32)", []object.Type{object.INT32, object.INT32},
		ins("ldarg.0"),
		ins("ldarg.1"),
		ins("add"),
		ins("ret"),
	)
	ref := call("Demo", "Program", "Add", "int32(int32, int32)")

	main := staticMethod("Main", "int32()", nil,
		ins("ldstr", "below"),
		ins("ldc.i4.2"),
		ins("ldc.i4.3"),
		ins("call", ref),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, add)}, WithLegacyArgumentMarkers(true))
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(5), result)

	// The string below the argument run stays on the caller's stack.
	main = staticMethod("Main", "int32()", nil,
		ins("ldstr", "below"),
		ins("ldc.i4.2"),
		ins("ldc.i4.3"),
		ins("call", ref),
		ins("pop"),
		ins("ret"),
	)
	m = newMachine(t, main, []*metadata.Type{demoType(main, add)}, WithLegacyArgumentMarkers(true))
	result, err = m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewString("below"), result)
}

func TestWriteLine(t *testing.T) {
	main := staticMethod("Main", "void()", nil,
		ins("ldstr", "Hello"),
		ins("call", call("System", "Console", "WriteLine", "void(string)")),
		ins("ldc.i4.s", int8(42)),
		ins("call", call("System", "Console", "WriteLine", "void(int32)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main)})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Nil(t, result)
	require.Equal(t, "Hello\n42\n", m.stdout.String())
}

func TestNativeReturnValue(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.3"),
		ins("ldc.i4.8"),
		ins("call", call("System", "Math", "Max", "int32(int32, int32)")),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(8), result)
}

func TestInternalCallMethod(t *testing.T) {
	registry := natives.NewRegistry()
	var seen []object.Object
	registry.Register("Demo.Hooks.Record", func(c *natives.Call) (object.Object, error) {
		seen = append(seen, c.Args...)
		return object.NewInt32(int32(len(c.Stack))), nil
	})
	record := metadata.NewMethod(metadata.MethodParams{
		Name:         "Record",
		Signature:    "int32(int32)",
		Static:       true,
		InternalCall: true,
		ParamTypes:   []object.Type{object.INT32},
	})
	hooks := metadata.NewType(metadata.TypeParams{
		Namespace: "Demo",
		Name:      "Hooks",
		Methods:   []*metadata.Method{record},
	})
	main := staticMethod("Main", "int32()", nil,
		ins("ldc.i4.1"),
		ins("ldc.i4.2"),
		ins("call", call("Demo", "Hooks", "Record", "int32(int32)")),
		ins("add"),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main), hooks}, WithNatives(registry))
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	// The handler saw a two-entry stack and returned 2, added to the 1 left
	// below the argument.
	require.Equal(t, object.NewInt32(3), result)
	require.Equal(t, []object.Object{object.NewInt32(2)}, seen)
}

func TestNativeError(t *testing.T) {
	registry := natives.NewRegistry()
	registry.Register("Demo.Hooks.Fail", func(c *natives.Call) (object.Object, error) {
		return nil, fmt.Errorf("disk on fire")
	})
	main := staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Hooks", "Fail", "void()")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main)}, WithNatives(registry))
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrUnhandledException))

	var se *errz.StructuredError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "Demo.Hooks.Fail: disk on fire", se.Message)
}

func TestMethodResolutionError(t *testing.T) {
	main := staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Program", "Missing", "void()")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrMethodResolution))
	require.Contains(t, m.diag.String(),
		"A System.MissingMethodException has occurred in Demo.exe. The error is: could not resolve method Demo.Program.Missing")
}

func TestMethodWithoutBody(t *testing.T) {
	stub := metadata.NewMethod(metadata.MethodParams{
		Name:      "Stub",
		Signature: "void()",
		Static:    true,
	})
	main := staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Program", "Stub", "void()")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, stub)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrMethodBodyNotFound))
}

func pointType() *metadata.Type {
	ctor := instanceMethod(".ctor", "void(int32, int32)", []object.Type{object.INT32, object.INT32},
		ins("ldarg.0"),
		ins("ldarg.1"),
		ins("stfld", 1),
		ins("ldarg.0"),
		ins("ldarg.2"),
		ins("stfld", 2),
		ins("ldarg.0"),
		ins("call", call("System", "Object", ".ctor", "void()")),
		ins("ret"),
	)
	return metadata.NewType(metadata.TypeParams{
		Namespace: "Demo",
		Name:      "Point",
		Methods:   []*metadata.Method{ctor},
		Fields: []*metadata.Field{
			metadata.NewField(metadata.FieldParams{Name: "x", Index: 1}),
			metadata.NewField(metadata.FieldParams{Name: "y", Index: 2}),
		},
	})
}

func TestNewobjAndFields(t *testing.T) {
	main := staticMethod("Main", "int32()", nil,
		ins("ldc.i4.3"),
		ins("ldc.i4.4"),
		ins("newobj", call("Demo", "Point", ".ctor", "void(int32, int32)")),
		ins("dup"),
		ins("ldfld", 1),
		ins("stloc.0"),
		ins("ldfld", 2),
		ins("ldloc.0"),
		ins("sub"),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main), pointType()})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(1), result)
}

func TestNewobjLeavesObject(t *testing.T) {
	main := staticMethod("Main", "object()", nil,
		ins("ldc.i4.3"),
		ins("ldc.i4.4"),
		ins("newobj", call("Demo", "Point", ".ctor", "void(int32, int32)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main), pointType()})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	obj, ok := result.(*object.Instance)
	require.True(t, ok)
	require.Equal(t, "Demo.Point", obj.ClassName())
	require.Equal(t, []string{"x", "y"}, obj.FieldNames())
}

func TestSelfReferencingObject(t *testing.T) {
	main := staticMethod("Main", "object()", nil,
		ins("ldc.i4.0"),
		ins("ldc.i4.0"),
		ins("newobj", call("Demo", "Point", ".ctor", "void(int32, int32)")),
		ins("stloc.0"),
		ins("ldloc.0"),
		ins("ldloc.0"),
		ins("stfld", 1),
		ins("ldloc.0"),
		ins("call", call("System", "Console", "WriteLine", "void(object)")),
		ins("ldloc.0"),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main), pointType()})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, "Demo.Point\n", m.stdout.String())
	require.Equal(t, "Demo.Point{x: Demo.Point{...}, y: 0}", result.Inspect())
}

func TestObjectConstructor(t *testing.T) {
	result, err := runMain(t,
		ins("newobj", call("System", "Object", ".ctor", "void()")),
		ins("ret"),
	)
	require.Nil(t, err)
	obj, ok := result.(*object.Instance)
	require.True(t, ok)
	require.Equal(t, "System.Object", obj.ClassName())
}

func TestFieldErrors(t *testing.T) {
	types := func(main *metadata.Method) []*metadata.Type {
		return []*metadata.Type{demoType(main), pointType()}
	}

	main := staticMethod("Main", "void()", nil,
		ins("ldnull"),
		ins("ldfld", 1),
		ins("ret"),
	)
	_, err := newMachine(t, main, types(main)).Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrNullReference))

	main = staticMethod("Main", "void()", nil,
		ins("ldc.i4.1"),
		ins("ldfld", 1),
		ins("ret"),
	)
	_, err = newMachine(t, main, types(main)).Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrInvalidProgram))

	main = staticMethod("Main", "void()", nil,
		ins("newobj", call("System", "Object", ".ctor", "void()")),
		ins("ldfld", 1),
		ins("ret"),
	)
	_, err = newMachine(t, main, types(main)).Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrFieldResolution))
	require.Contains(t, err.Error(), "nonexistent or null field")

	main = staticMethod("Main", "void()", nil,
		ins("ldsfld", 99),
		ins("ret"),
	)
	_, err = newMachine(t, main, types(main)).Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrFieldResolution))
}

func staticsProgram(cctorValue int32) (*metadata.Method, *metadata.Type) {
	cctor := staticMethod(".cctor", "void()", nil,
		ins("ldc.i4", cctorValue),
		ins("stsfld", 1),
		ins("ret"),
	)
	main := staticMethod("Main", "int32()", nil,
		ins("ldsfld", 1),
		ins("ret"),
	)
	typ := metadata.NewType(metadata.TypeParams{
		Namespace: "Demo",
		Name:      "Program",
		Methods:   []*metadata.Method{main, cctor},
		Fields: []*metadata.Field{
			metadata.NewField(metadata.FieldParams{Name: "counter", Index: 1, Static: true}),
		},
	})
	return main, typ
}

func TestStaticFields(t *testing.T) {
	main, typ := staticsProgram(7)
	m := newMachine(t, main, []*metadata.Type{typ})
	require.Nil(t, m.RunStaticConstructors(context.Background()))
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(7), result)

	value, ok := m.Statics().Load("Demo.Program", "counter")
	require.True(t, ok)
	require.Equal(t, object.NewInt32(7), value)
}

func TestStaticReadBeforeWrite(t *testing.T) {
	main, typ := staticsProgram(7)
	m := newMachine(t, main, []*metadata.Type{typ})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrNullReference))
	require.Contains(t, m.diag.String(), "A System.NullReferenceException has occurred in Demo.exe.")
}

func TestStaticConstructorsRunOnce(t *testing.T) {
	registry := natives.NewRegistry()
	ticks := 0
	registry.Register("Demo.Hooks.Tick", func(c *natives.Call) (object.Object, error) {
		ticks++
		return nil, nil
	})
	tick := call("Demo", "Hooks", "Tick", "void()")
	first := metadata.NewAssembly(metadata.AssemblyParams{
		Name: "First",
		Types: []*metadata.Type{metadata.NewType(metadata.TypeParams{
			Namespace: "Demo",
			Name:      "Shared",
			Methods: []*metadata.Method{
				staticMethod(".cctor", "void()", nil, ins("call", tick), ins("ret")),
			},
		})},
	})
	second := metadata.NewAssembly(metadata.AssemblyParams{
		Name: "Second",
		Types: []*metadata.Type{metadata.NewType(metadata.TypeParams{
			Namespace: "Demo",
			Name:      "Shared",
			Methods: []*metadata.Method{
				staticMethod(".cctor", "void()", nil, ins("call", tick), ins("call", tick), ins("ret")),
			},
		})},
	})
	vm := New(metadata.NewDomain(first, second), WithNatives(registry), WithDiagnostics(nil))
	require.Nil(t, vm.RunStaticConstructors(context.Background()))
	require.Nil(t, vm.RunStaticConstructors(context.Background()))
	require.Equal(t, 1, ticks)
	require.Equal(t, 0, vm.CallStack().Len())
}

func TestUnsupportedOpcodeHaltsProgram(t *testing.T) {
	inner := staticMethod("Inner", "void()", nil,
		ins("ldc.i4.1"),
		ins("frobnicate"),
		ins("ret"),
	)
	main := staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Program", "Inner", "void()")),
		ins("ldstr", "after"),
		ins("call", call("System", "Console", "WriteLine", "void(string)")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, inner)})
	result, err := m.Invoke(context.Background(), main, nil)
	require.Nil(t, result)
	require.True(t, errz.IsKind(err, errz.ErrUnsupportedOpcode))
	require.True(t, m.Halted())
	require.Empty(t, m.stdout.String())
	require.Equal(t, "Unsupported OpCode: frobnicate\n"+
		"Application Terminated.\n"+
		"Demo.Program.Main()\n"+
		"Demo.Program.Inner()\n", m.diag.String())
	require.Equal(t, err, m.Failure())
}

func TestOutOfRangeOpcode(t *testing.T) {
	weird := ins("nop")
	weird.Name = "weird"
	weird.Code = op.Code(200)
	main := staticMethod("Main", "void()", nil, weird, ins("ret"))
	m := newMachine(t, main, []*metadata.Type{demoType(main)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrUnsupportedOpcode))
	require.True(t, m.Halted())
	require.Equal(t, err, m.Failure())
	require.Equal(t, "Unsupported OpCode: weird\n"+
		"Application Terminated.\n"+
		"Demo.Program.Main()\n", m.diag.String())
}

func TestNotImplementedOpcode(t *testing.T) {
	fill := staticMethod("Fill", "void()", nil,
		ins("ldc.i4.2"),
		ins("newarr", "System.String"),
		ins("ldc.i4.0"),
		ins("ldstr", "a"),
		ins("stelem.ref"),
		ins("ret"),
	)
	main := staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Program", "Fill", "void()")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main, fill)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrNotImplemented))
	require.Equal(t, "A System.NotImplementedException has occurred in Demo.exe. "+
		"The error is: stelem.ref is not implemented\n"+
		"Demo.Program.Main()\n"+
		"Demo.Program.Fill()\n", m.diag.String())

	var se *errz.StructuredError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "Demo.Program.Fill", se.Method)
	require.Equal(t, "stelem.ref", se.Opcode)
}

func TestArrays(t *testing.T) {
	result, err := runMain(t,
		ins("ldc.i4.3"),
		ins("newarr", "System.Int32"),
		ins("ldlen"),
		ins("ret"),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(3), result)

	_, err = runMain(t,
		ins("ldc.i4.m1"),
		ins("newarr", "System.Int32"),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrArithmetic))

	_, err = runMain(t,
		ins("ldc.i4.1"),
		ins("ldlen"),
		ins("ret"),
	)
	require.True(t, errz.IsKind(err, errz.ErrInvalidProgram))
}

func TestThrow(t *testing.T) {
	_, err := runMain(t,
		ins("ldnull"),
		ins("throw"),
	)
	require.True(t, errz.IsKind(err, errz.ErrNullReference))

	boom := metadata.NewType(metadata.TypeParams{
		Namespace: "Demo",
		Name:      "Boom",
		Methods: []*metadata.Method{
			instanceMethod(".ctor", "void()", nil,
				ins("ldarg.0"),
				ins("call", call("System", "Object", ".ctor", "void()")),
				ins("ret"),
			),
		},
	})
	main := staticMethod("Main", "void()", nil,
		ins("newobj", call("Demo", "Boom", ".ctor", "void()")),
		ins("throw"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main), boom})
	_, err = m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrUnhandledException))
	require.Contains(t, m.diag.String(), "A Demo.Boom has occurred in Demo.exe.")

	_, err = runMain(t,
		ins("ldc.i4.1"),
		ins("throw"),
	)
	require.True(t, errz.IsKind(err, errz.ErrInvalidProgram))
}

func TestStackOverflow(t *testing.T) {
	loop := staticMethod("Loop", "void()", nil,
		ins("call", call("Demo", "Program", "Loop", "void()")),
		ins("ret"),
	)
	m := newMachine(t, loop, []*metadata.Type{demoType(loop)})
	_, err := m.Invoke(context.Background(), loop, nil)
	require.True(t, errz.IsKind(err, errz.ErrStackOverflow))

	var se *errz.StructuredError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Stack, MaxFrameDepth)
	require.Equal(t, 0, m.CallStack().Len())
}

func TestContextCancellation(t *testing.T) {
	spin := staticMethod("Main", "void()", nil,
		ins("br.s", int8(-1)), // IL_0000 -> IL_0000
	)
	m := newMachine(t, spin, []*metadata.Type{demoType(spin)}, WithContextCheckInterval(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Invoke(ctx, spin, nil)
	require.True(t, errz.IsKind(err, errz.ErrHalted))
}

func TestReentrantInvoke(t *testing.T) {
	registry := natives.NewRegistry()
	var reentrant *VirtualMachine
	var main *metadata.Method
	registry.Register("Demo.Hooks.Reenter", func(c *natives.Call) (object.Object, error) {
		return reentrant.Invoke(context.Background(), main, nil)
	})
	main = staticMethod("Main", "void()", nil,
		ins("call", call("Demo", "Hooks", "Reenter", "void()")),
		ins("ret"),
	)
	m := newMachine(t, main, []*metadata.Type{demoType(main)}, WithNatives(registry))
	reentrant = m.VirtualMachine
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrUnhandledException))
	require.Contains(t, err.Error(), "vm is already running")
}

func TestInvokeResetsFailure(t *testing.T) {
	main := staticMethod("Main", "void()", nil, ins("ldc.i4.1"), ins("pop"), ins("pop"))
	ok := staticMethod("Ok", "int32()", nil, ins("ldc.i4.2"), ins("ret"))
	m := newMachine(t, main, []*metadata.Type{demoType(main, ok)})
	_, err := m.Invoke(context.Background(), main, nil)
	require.True(t, errz.IsKind(err, errz.ErrStackUnderflow))

	result, err := m.Invoke(context.Background(), ok, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(2), result)
	require.False(t, m.Halted())
}

func TestCancelAfterInvokeDoesNotHaltNextRun(t *testing.T) {
	main := staticMethod("Main", "int32()", nil, ins("ldc.i4.2"), ins("ret"))
	m := newMachine(t, main, []*metadata.Type{demoType(main)})

	ctx, cancel := context.WithCancel(context.Background())
	result, err := m.Invoke(ctx, main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(2), result)
	cancel()

	result, err = m.Invoke(context.Background(), main, nil)
	require.Nil(t, err)
	require.Equal(t, object.NewInt32(2), result)
	require.False(t, m.Halted())
}
