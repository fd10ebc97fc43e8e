package value

// List is an ordered sequence of Values with a capacity fixed at
// allocation. Appending beyond that capacity fails rather than growing,
// matching spec.md §3's "container full" invariant — the decoder always
// knows a container's final size up front from the wire's size field, so
// growth is never needed on the decode path, and the encode path wants the
// same discipline so a caller's size mismatch surfaces immediately.
type List struct {
	items []Value
}

// NewList allocates a List with room for exactly capacity items.
func NewList(capacity int) *List {
	return &List{items: make([]Value, 0, capacity)}
}

func (*List) Kind() Kind { return KindList }

// Len reports how many items have been appended so far.
func (l *List) Len() int { return len(l.items) }

// Cap reports the capacity fixed at allocation.
func (l *List) Cap() int { return cap(l.items) }

// Append adds v, failing with ErrContainerFull once Cap is reached.
func (l *List) Append(v Value) error {
	if len(l.items) >= cap(l.items) {
		return ErrContainerFull
	}
	l.items = append(l.items, v)
	return nil
}

// At returns the i'th item.
func (l *List) At(i int) Value { return l.items[i] }

// Items returns the backing slice of appended items, read-only by
// convention (callers that need to mutate should build a new List).
func (l *List) Items() []Value { return l.items }

func (l *List) Equal(other Value) bool {
	o, ok := other.(*List)
	if !ok || len(l.items) != len(o.items) {
		return false
	}
	for i := range l.items {
		if !l.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

// mapEntry is one key/value pair in a Map, kept in insertion order since
// spec.md §3 models Map as an *ordered* sequence of entries, not a hash.
type mapEntry struct {
	key string
	val Value
}

// Map is an ordered sequence of String->Value entries with unique keys and
// a capacity fixed at allocation, mirroring List's discipline.
type Map struct {
	entries []mapEntry
	index   map[string]int
}

// NewMap allocates a Map with room for exactly capacity entries.
func NewMap(capacity int) *Map {
	return &Map{
		entries: make([]mapEntry, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (*Map) Kind() Kind { return KindMap }

// Len reports how many entries have been inserted so far.
func (m *Map) Len() int { return len(m.entries) }

// Cap reports the capacity fixed at allocation.
func (m *Map) Cap() int { return cap(m.entries) }

// Insert is the safe path: it enforces key uniqueness and fails with
// ErrDuplicateKey if key is already present, leaving the Map unchanged.
func (m *Map) Insert(key string, v Value) error {
	if _, exists := m.index[key]; exists {
		return ErrDuplicateKey
	}
	return m.insertUnchecked(key, v)
}

// InsertUnsafe is the decoder's fast path, used only when the server
// guarantees key uniqueness (spec.md §3: "a precondition (unsafe path
// used only by the decoder when the server guarantees uniqueness)"). It
// skips the uniqueness check but still enforces capacity.
func (m *Map) InsertUnsafe(key string, v Value) error {
	return m.insertUnchecked(key, v)
}

func (m *Map) insertUnchecked(key string, v Value) error {
	if len(m.entries) >= cap(m.entries) {
		return ErrContainerFull
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key, v})
	return nil
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].val, true
}

// Keys returns the entry keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls fn for each entry in insertion order.
func (m *Map) Range(fn func(key string, v Value)) {
	for _, e := range m.entries {
		fn(e.key, e.val)
	}
}

func (m *Map) Equal(other Value) bool {
	o, ok := other.(*Map)
	if !ok || len(m.entries) != len(o.entries) {
		return false
	}
	for i := range m.entries {
		if m.entries[i].key != o.entries[i].key {
			return false
		}
		if !m.entries[i].val.Equal(o.entries[i].val) {
			return false
		}
	}
	return true
}
