package object

import (
	"fmt"
	"strings"
)

// Array is a fixed-length managed array.
type Array struct {
	items []Object
}

// NewArray returns an array of the given length with every element null.
func NewArray(length int) *Array {
	items := make([]Object, length)
	for i := range items {
		items[i] = Null
	}
	return &Array{items: items}
}

// NewArrayOf wraps the given items.
func NewArrayOf(items []Object) *Array {
	return &Array{items: items}
}

func (a *Array) Type() Type {
	return ARRAY
}

func (a *Array) Len() int {
	return len(a.items)
}

// At returns the element at index i.
func (a *Array) At(i int) (Object, error) {
	if i < 0 || i >= len(a.items) {
		return nil, fmt.Errorf("index %d out of range [0:%d]", i, len(a.items))
	}
	return a.items[i], nil
}

// Set stores value at index i.
func (a *Array) Set(i int, value Object) error {
	if i < 0 || i >= len(a.items) {
		return fmt.Errorf("index %d out of range [0:%d]", i, len(a.items))
	}
	a.items[i] = value
	return nil
}

func (a *Array) Inspect() string {
	return a.inspect(map[Object]bool{})
}

func (a *Array) inspect(seen map[Object]bool) string {
	if seen[a] {
		return "[...]"
	}
	seen[a] = true
	defer delete(seen, a)
	parts := make([]string, len(a.items))
	for i, item := range a.items {
		parts[i] = inspectItem(item, seen)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *Array) String() string {
	return a.Inspect()
}

func (a *Array) Interface() interface{} {
	return a.toInterface(map[Object]bool{})
}

func (a *Array) toInterface(seen map[Object]bool) interface{} {
	if seen[a] {
		return nil
	}
	seen[a] = true
	defer delete(seen, a)
	result := make([]interface{}, len(a.items))
	for i, item := range a.items {
		result[i] = interfaceItem(item, seen)
	}
	return result
}

// Equals is reference equality.
func (a *Array) Equals(other Object) bool {
	b, ok := other.(*Array)
	return ok && b == a
}
