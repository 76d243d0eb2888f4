package object

import (
	"fmt"
	"sort"
	"strings"
)

// Class identifies the managed type an instance belongs to. It is satisfied
// by *metadata.Type.
type Class interface {
	FullName() string
}

// Instance is a heap-allocated managed object: an owning type and a map of
// field values keyed by field name. Copies of the pointer share the object.
type Instance struct {
	class  Class
	fields map[string]Object
}

// NewInstance returns an instance of the given class with no fields set.
func NewInstance(class Class) *Instance {
	return &Instance{
		class:  class,
		fields: map[string]Object{},
	}
}

func (o *Instance) Type() Type {
	return OBJECT
}

// Class returns the owning type.
func (o *Instance) Class() Class {
	return o.class
}

// ClassName returns the full name of the owning type.
func (o *Instance) ClassName() string {
	if o.class == nil {
		return "System.Object"
	}
	return o.class.FullName()
}

// Field returns the value stored under name.
func (o *Instance) Field(name string) (Object, bool) {
	value, ok := o.fields[name]
	return value, ok
}

// SetField stores value under name, creating the entry if needed.
func (o *Instance) SetField(name string, value Object) {
	o.fields[name] = value
}

// FieldNames returns the names of the set fields in sorted order.
func (o *Instance) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for name := range o.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inspect renders the class name and the set fields. An instance reached
// again while it is being rendered prints as "Class{...}".
func (o *Instance) Inspect() string {
	return o.inspect(map[Object]bool{})
}

func (o *Instance) inspect(seen map[Object]bool) string {
	if seen[o] {
		return o.ClassName() + "{...}"
	}
	seen[o] = true
	defer delete(seen, o)
	var b strings.Builder
	b.WriteString(o.ClassName())
	b.WriteString("{")
	for i, name := range o.FieldNames() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s: %s", name, inspectItem(o.fields[name], seen)))
	}
	b.WriteString("}")
	return b.String()
}

func (o *Instance) String() string {
	return o.Inspect()
}

// Interface converts the fields to a map. A field that leads back to an
// instance already being converted holds its class name instead.
func (o *Instance) Interface() interface{} {
	return o.toInterface(map[Object]bool{})
}

func (o *Instance) toInterface(seen map[Object]bool) interface{} {
	if seen[o] {
		return o.ClassName()
	}
	seen[o] = true
	defer delete(seen, o)
	result := make(map[string]interface{}, len(o.fields))
	for name, value := range o.fields {
		result[name] = interfaceItem(value, seen)
	}
	return result
}

// Equals is reference equality.
func (o *Instance) Equals(other Object) bool {
	p, ok := other.(*Instance)
	return ok && p == o
}
