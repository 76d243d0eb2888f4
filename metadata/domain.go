package metadata

// Domain is the ordered set of loaded assemblies. Registration order is
// preserved and drives static constructor order and resolution order. It
// is not safe for concurrent use.
type Domain struct {
	assemblies []*Assembly
	byName     map[string]*Assembly
}

// NewDomain returns a domain containing the given assemblies in order.
// Assemblies with a name that is already present are skipped.
func NewDomain(assemblies ...*Assembly) *Domain {
	d := &Domain{byName: map[string]*Assembly{}}
	for _, a := range assemblies {
		d.Add(a)
	}
	return d
}

// Add registers the assembly. It returns false, leaving the domain
// unchanged, if an assembly with the same name is already registered.
func (d *Domain) Add(a *Assembly) bool {
	if _, exists := d.byName[a.name]; exists {
		return false
	}
	d.byName[a.name] = a
	d.assemblies = append(d.assemblies, a)
	return true
}

// Contains returns true if an assembly with the given name is registered.
func (d *Domain) Contains(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Lookup returns the assembly with the given name.
func (d *Domain) Lookup(name string) (*Assembly, bool) {
	a, ok := d.byName[name]
	return a, ok
}

// Len returns the number of registered assemblies.
func (d *Domain) Len() int {
	return len(d.assemblies)
}

// At returns the assembly registered at the given position.
func (d *Domain) At(index int) *Assembly {
	return d.assemblies[index]
}

// Names returns the assembly names in registration order.
func (d *Domain) Names() []string {
	names := make([]string, len(d.assemblies))
	for i, a := range d.assemblies {
		names[i] = a.name
	}
	return names
}

// EachType calls fn for every type of every assembly in registration
// order, stopping early when fn returns false.
func (d *Domain) EachType(fn func(t *Type) bool) {
	for _, a := range d.assemblies {
		for _, t := range a.types {
			if !fn(t) {
				return
			}
		}
	}
}

// EachMethod calls fn for every method of every type in registration
// order, stopping early when fn returns false.
func (d *Domain) EachMethod(fn func(m *Method) bool) {
	d.EachType(func(t *Type) bool {
		for _, m := range t.methods {
			if !fn(m) {
				return false
			}
		}
		return true
	})
}
