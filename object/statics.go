package object

// StaticKey identifies a static field slot.
type StaticKey struct {
	Owner string // full name of the declaring type
	Name  string
}

// StaticTable holds the values of static fields. Slots are created on the
// first store and live as long as the table. It is not safe for concurrent
// use.
type StaticTable struct {
	slots map[StaticKey]Object
}

func NewStaticTable() *StaticTable {
	return &StaticTable{slots: map[StaticKey]Object{}}
}

// Load returns the value of the slot, or false if it was never stored.
func (t *StaticTable) Load(owner, name string) (Object, bool) {
	value, ok := t.slots[StaticKey{Owner: owner, Name: name}]
	return value, ok
}

// Store writes the slot, creating it if absent.
func (t *StaticTable) Store(owner, name string, value Object) {
	t.slots[StaticKey{Owner: owner, Name: name}] = value
}

// Len returns the number of slots.
func (t *StaticTable) Len() int {
	return len(t.slots)
}

// Keys returns every key in the table in no particular order.
func (t *StaticTable) Keys() []StaticKey {
	keys := make([]StaticKey, 0, len(t.slots))
	for k := range t.slots {
		keys = append(keys, k)
	}
	return keys
}
