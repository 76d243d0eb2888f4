package object

// container is implemented by values that hold other values and can
// therefore form reference cycles.
type container interface {
	inspect(seen map[Object]bool) string
	toInterface(seen map[Object]bool) interface{}
}

func inspectItem(obj Object, seen map[Object]bool) string {
	if c, ok := obj.(container); ok {
		return c.inspect(seen)
	}
	return obj.Inspect()
}

func interfaceItem(obj Object, seen map[Object]bool) interface{} {
	if c, ok := obj.(container); ok {
		return c.toInterface(seen)
	}
	return obj.Interface()
}
