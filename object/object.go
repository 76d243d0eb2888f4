// Package object provides the values that live on the evaluation stack.
//
// Every value implements Object and reports one of the stack tags through
// Type(). Callers usually type switch on the concrete type:
//
//	switch obj := obj.(type) {
//	case *object.Int32:
//		// do something with obj.Value()
//	case *object.Instance:
//		// do something with obj.Field("name")
//	}
package object

// Type is the tag of a stack value.
type Type string

// Stack value tags.
const (
	INT32   Type = "int32"
	INT64   Type = "int64"
	FLOAT32 Type = "float32"
	FLOAT64 Type = "float64"
	STRING  Type = "string"
	OBJECT  Type = "object"
	ARRAY   Type = "array"
	NULL    Type = "null"
)

// Null is the single null reference.
var Null = &NullType{}

// Object is the interface implemented by every stack value.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Interface converts the given object to a native Go value.
	Interface() interface{}

	// Returns true if the given object is equal to this object.
	Equals(other Object) bool
}

// IsReference returns true for tags that hold references (or null) rather
// than numbers.
func (t Type) IsReference() bool {
	switch t {
	case STRING, OBJECT, ARRAY, NULL:
		return true
	default:
		return false
	}
}

// IsNumeric returns true for the integer and floating point tags.
func (t Type) IsNumeric() bool {
	switch t {
	case INT32, INT64, FLOAT32, FLOAT64:
		return true
	default:
		return false
	}
}

// NullType is the type of Null.
type NullType struct{}

func (n *NullType) Type() Type {
	return NULL
}

func (n *NullType) Inspect() string {
	return "null"
}

func (n *NullType) String() string {
	return "null"
}

func (n *NullType) Interface() interface{} {
	return nil
}

func (n *NullType) Equals(other Object) bool {
	_, ok := other.(*NullType)
	return ok
}

// IsNull returns true if obj is nil or the null reference.
func IsNull(obj Object) bool {
	if obj == nil {
		return true
	}
	_, ok := obj.(*NullType)
	return ok
}
