package object

import "strconv"

// Int32 wraps int32 and implements Object.
type Int32 struct {
	value int32
}

func NewInt32(value int32) *Int32 {
	return &Int32{value: value}
}

func (i *Int32) Type() Type {
	return INT32
}

func (i *Int32) Value() int32 {
	return i.value
}

func (i *Int32) Inspect() string {
	return strconv.FormatInt(int64(i.value), 10)
}

func (i *Int32) String() string {
	return i.Inspect()
}

func (i *Int32) Interface() interface{} {
	return i.value
}

func (i *Int32) Equals(other Object) bool {
	o, ok := other.(*Int32)
	return ok && o.value == i.value
}

// Int64 wraps int64 and implements Object.
type Int64 struct {
	value int64
}

func NewInt64(value int64) *Int64 {
	return &Int64{value: value}
}

func (i *Int64) Type() Type {
	return INT64
}

func (i *Int64) Value() int64 {
	return i.value
}

func (i *Int64) Inspect() string {
	return strconv.FormatInt(i.value, 10)
}

func (i *Int64) String() string {
	return i.Inspect()
}

func (i *Int64) Interface() interface{} {
	return i.value
}

func (i *Int64) Equals(other Object) bool {
	o, ok := other.(*Int64)
	return ok && o.value == i.value
}

// Bool returns Int32 1 for true and 0 for false, which is how comparison
// results are represented on the stack.
func Bool(value bool) *Int32 {
	if value {
		return NewInt32(1)
	}
	return NewInt32(0)
}
