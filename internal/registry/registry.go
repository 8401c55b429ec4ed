// Package registry implements the deduplicating tables §4.7 specifies:
// WASM types, imports, globals, strings and static helper functions,
// each keyed by value and yielding a stable index. WASM tables have no
// registry here; the code generator builds them directly. This
// generalises the teacher's compregister.RegisterAllocator (which
// hands out and reuses register slots for a single function) into a
// value-keyed dedup table that's finalised once, at the end of
// compilation, into a wasmbin.Module section.
package registry

// Table is a generic deduplicating registry: Register(key) returns the
// same index for equal keys, a fresh one otherwise. K must be
// comparable so it can key the lookup map directly; values that aren't
// naturally comparable (e.g. FunctionType, which has slice fields)
// should be pre-rendered to a comparable key by the caller.
type Table[K comparable, V any] struct {
	index  map[K]int
	values []V
	keys   []K
}

// New allocates an empty Table.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{index: make(map[K]int)}
}

// RegisterDefault registers key with the zero value of V if not already
// present, and returns its stable index.
func (t *Table[K, V]) RegisterDefault(key K) int {
	var zero V
	return t.RegisterOverride(key, zero)
}

// RegisterOverride registers key with value value. If key is already
// registered, its existing index is returned and value is ignored (the
// first registration wins, matching §4.7's "register_override" which
// only takes effect on first insertion of a given key).
func (t *Table[K, V]) RegisterOverride(key K, value V) int {
	if i, ok := t.index[key]; ok {
		return i
	}
	i := len(t.values)
	t.index[key] = i
	t.values = append(t.values, value)
	t.keys = append(t.keys, key)
	return i
}

// Lookup returns the index previously assigned to key, and true, or
// (0, false) if key was never registered.
func (t *Table[K, V]) Lookup(key K) (int, bool) {
	i, ok := t.index[key]
	return i, ok
}

// Get returns the value stored at index i.
func (t *Table[K, V]) Get(i int) V {
	return t.values[i]
}

// Len returns the number of distinct entries registered.
func (t *Table[K, V]) Len() int {
	return len(t.values)
}

// Finalize returns the registered values in index order, ready to
// become a wasmbin.Module section.
func (t *Table[K, V]) Finalize() []V {
	out := make([]V, len(t.values))
	copy(out, t.values)
	return out
}

// Keys returns the registered keys in index order.
func (t *Table[K, V]) Keys() []K {
	out := make([]K, len(t.keys))
	copy(out, t.keys)
	return out
}
