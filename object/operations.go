package object

import (
	"math"

	"github.com/risor-io/clr/errz"
	"github.com/risor-io/clr/op"
)

// Compare applies ceq, cgt or clt to a and b and returns Int32 1 or 0. Both
// operands must carry the same numeric tag; ceq additionally accepts two
// references and compares them with Equals.
func Compare(code op.Code, a, b Object) (*Int32, error) {
	if code == op.Ceq && a.Type().IsReference() && b.Type().IsReference() {
		return Bool(a.Equals(b)), nil
	}
	cmp, ok, err := compareNumbers(a, b)
	if err != nil {
		return nil, err
	}
	switch code {
	case op.Ceq:
		return Bool(ok && cmp == 0), nil
	case op.Cgt:
		return Bool(ok && cmp > 0), nil
	case op.Clt:
		return Bool(ok && cmp < 0), nil
	default:
		return nil, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
			"%s is not a comparison", code)
	}
}

// compareNumbers returns -1, 0 or 1. The bool is false when the operands are
// unordered (a NaN is involved).
func compareNumbers(a, b Object) (int, bool, error) {
	switch a := a.(type) {
	case *Int32:
		if b, ok := b.(*Int32); ok {
			return cmpOrdered(a.value, b.value), true, nil
		}
	case *Int64:
		if b, ok := b.(*Int64); ok {
			return cmpOrdered(a.value, b.value), true, nil
		}
	case *Float32:
		if b, ok := b.(*Float32); ok {
			if isNaN(float64(a.value)) || isNaN(float64(b.value)) {
				return 0, false, nil
			}
			return cmpOrdered(a.value, b.value), true, nil
		}
	case *Float64:
		if b, ok := b.(*Float64); ok {
			if isNaN(a.value) || isNaN(b.value) {
				return 0, false, nil
			}
			return cmpOrdered(a.value, b.value), true, nil
		}
	}
	return 0, false, mismatch("compare", a, b)
}

func cmpOrdered[T int32 | int64 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isNaN(f float64) bool {
	return math.IsNaN(f)
}

// BinaryOp applies an arithmetic or bitwise opcode to a (left) and b
// (right). Integer results wrap around.
func BinaryOp(code op.Code, a, b Object) (Object, error) {
	switch code {
	case op.Shl, op.Shr:
		return shift(code, a, b)
	}
	switch a := a.(type) {
	case *Int32:
		if b, ok := b.(*Int32); ok {
			v, err := intOp(code, a.value, b.value, math.MinInt32)
			if err != nil {
				return nil, err
			}
			return NewInt32(v), nil
		}
	case *Int64:
		if b, ok := b.(*Int64); ok {
			v, err := intOp(code, a.value, b.value, math.MinInt64)
			if err != nil {
				return nil, err
			}
			return NewInt64(v), nil
		}
	case *Float32:
		if b, ok := b.(*Float32); ok {
			v, err := floatOp(code, float64(a.value), float64(b.value))
			if err != nil {
				return nil, err
			}
			return NewFloat32(float32(v)), nil
		}
	case *Float64:
		if b, ok := b.(*Float64); ok {
			v, err := floatOp(code, a.value, b.value)
			if err != nil {
				return nil, err
			}
			return NewFloat64(v), nil
		}
	}
	return nil, mismatch(code.String(), a, b)
}

func intOp[T int32 | int64](code op.Code, a, b, min T) (T, error) {
	switch code {
	case op.Add:
		return a + b, nil
	case op.Sub:
		return a - b, nil
	case op.Mul:
		return a * b, nil
	case op.Div, op.Rem:
		if b == 0 {
			return 0, errz.NewStructuredError(errz.ErrDivideByZero,
				"attempted to divide by zero")
		}
		if a == min && b == -1 {
			return 0, errz.NewStructuredError(errz.ErrArithmetic,
				"arithmetic operation resulted in an overflow")
		}
		if code == op.Div {
			return a / b, nil
		}
		return a % b, nil
	case op.And:
		return a & b, nil
	case op.Or:
		return a | b, nil
	case op.Xor:
		return a ^ b, nil
	}
	return 0, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
		"%s is not an integer operation", code)
}

func floatOp(code op.Code, a, b float64) (float64, error) {
	switch code {
	case op.Add:
		return a + b, nil
	case op.Sub:
		return a - b, nil
	case op.Mul:
		return a * b, nil
	case op.Div:
		return a / b, nil
	case op.Rem:
		return math.Mod(a, b), nil
	}
	return 0, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
		"%s is not defined for floating point values", code)
}

func shift(code op.Code, a, b Object) (Object, error) {
	amount, ok := b.(*Int32)
	if !ok {
		return nil, mismatch(code.String(), a, b)
	}
	switch a := a.(type) {
	case *Int32:
		n := uint(amount.value) & 31
		if code == op.Shl {
			return NewInt32(a.value << n), nil
		}
		return NewInt32(a.value >> n), nil
	case *Int64:
		n := uint(amount.value) & 63
		if code == op.Shl {
			return NewInt64(a.value << n), nil
		}
		return NewInt64(a.value >> n), nil
	}
	return nil, mismatch(code.String(), a, b)
}

// Negate implements neg.
func Negate(a Object) (Object, error) {
	switch a := a.(type) {
	case *Int32:
		return NewInt32(-a.value), nil
	case *Int64:
		return NewInt64(-a.value), nil
	case *Float32:
		return NewFloat32(-a.value), nil
	case *Float64:
		return NewFloat64(-a.value), nil
	}
	return nil, errz.NewStructuredErrorf(errz.ErrInvalidProgram,
		"neg expects a number (got %s)", a.Type())
}

func mismatch(operation string, a, b Object) *errz.StructuredError {
	return errz.NewStructuredErrorf(errz.ErrInvalidProgram,
		"%s: incompatible operands %s and %s", operation, a.Type(), b.Type())
}
