package natives

import (
	"fmt"
	"strings"

	"github.com/risor-io/clr/object"
	"github.com/risor-io/clr/op"
)

// WriteLine writes its argument followed by a newline.
func WriteLine(call *Call) (object.Object, error) {
	if len(call.Args) == 0 {
		_, err := fmt.Fprintln(call.Stdout)
		return nil, err
	}
	_, err := fmt.Fprintln(call.Stdout, Display(call.Args[0]))
	return nil, err
}

// Write writes its argument.
func Write(call *Call) (object.Object, error) {
	if len(call.Args) == 0 {
		return nil, nil
	}
	_, err := fmt.Fprint(call.Stdout, Display(call.Args[0]))
	return nil, err
}

// Concat joins the display forms of its arguments.
func Concat(call *Call) (object.Object, error) {
	var b strings.Builder
	for _, arg := range call.Args {
		b.WriteString(Display(arg))
	}
	return object.NewString(b.String()), nil
}

// StringEquals compares two strings by value. Null equals only Null.
func StringEquals(call *Call) (object.Object, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("op_Equality: expected 2 arguments, got %d", len(call.Args))
	}
	return object.Bool(call.Args[0].Equals(call.Args[1])), nil
}

// StringLength returns the length of this.
func StringLength(call *Call) (object.Object, error) {
	s, ok := call.Arg(0).(*object.String)
	if !ok {
		return nil, fmt.Errorf("get_Length: expected a string (got %s)", call.Arg(0).Type())
	}
	return object.NewInt32(int32(len(s.Value()))), nil
}

// Max returns the larger of two numbers of the same type.
func Max(call *Call) (object.Object, error) {
	return pick(call, "Max", op.Cgt)
}

// Min returns the smaller of two numbers of the same type.
func Min(call *Call) (object.Object, error) {
	return pick(call, "Min", op.Clt)
}

func pick(call *Call, name string, code op.Code) (object.Object, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(call.Args))
	}
	a, b := call.Args[0], call.Args[1]
	result, err := object.Compare(code, a, b)
	if err != nil {
		return nil, err
	}
	if result.Value() == 1 {
		return a, nil
	}
	return b, nil
}

// Display returns the text Console.WriteLine prints for a value. Strings
// print unquoted, Null as the empty string and instances as their class
// name.
func Display(obj object.Object) string {
	switch obj := obj.(type) {
	case *object.String:
		return obj.Value()
	case *object.Instance:
		return obj.ClassName()
	case *object.NullType:
		return ""
	case nil:
		return ""
	default:
		return obj.Inspect()
	}
}

// Defaults returns the handlers of the minimal base library.
func Defaults() map[string]Handler {
	return map[string]Handler{
		"System.Console.WriteLine":  WriteLine,
		"System.Console.Write":      Write,
		"System.String.Concat":      Concat,
		"System.String.op_Equality": StringEquals,
		"System.String.get_Length":  StringLength,
		"System.Math.Max":           Max,
		"System.Math.Min":           Min,
	}
}

// Default returns a registry holding Defaults.
func Default() *Registry {
	r := NewRegistry()
	r.RegisterAll(Defaults())
	return r
}
