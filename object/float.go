package object

import "strconv"

// Float32 wraps float32 and implements Object.
type Float32 struct {
	value float32
}

func NewFloat32(value float32) *Float32 {
	return &Float32{value: value}
}

func (f *Float32) Type() Type {
	return FLOAT32
}

func (f *Float32) Value() float32 {
	return f.value
}

func (f *Float32) Inspect() string {
	return strconv.FormatFloat(float64(f.value), 'f', -1, 32)
}

func (f *Float32) String() string {
	return f.Inspect()
}

func (f *Float32) Interface() interface{} {
	return f.value
}

func (f *Float32) Equals(other Object) bool {
	o, ok := other.(*Float32)
	return ok && o.value == f.value
}

// Float64 wraps float64 and implements Object.
type Float64 struct {
	value float64
}

func NewFloat64(value float64) *Float64 {
	return &Float64{value: value}
}

func (f *Float64) Type() Type {
	return FLOAT64
}

func (f *Float64) Value() float64 {
	return f.value
}

func (f *Float64) Inspect() string {
	return strconv.FormatFloat(f.value, 'f', -1, 64)
}

func (f *Float64) String() string {
	return f.Inspect()
}

func (f *Float64) Interface() interface{} {
	return f.value
}

func (f *Float64) Equals(other Object) bool {
	o, ok := other.(*Float64)
	return ok && o.value == f.value
}
