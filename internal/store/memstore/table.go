package memstore

// table is a map of entity values with an optional transaction overlay.
// Outside a transaction puts and dels are nil and reads go to base.
type table[T any] struct {
	base  map[string]T
	puts  map[string]T
	dels  map[string]struct{}
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{base: make(map[string]T), clone: clone}
}

func (t *table[T]) overlay() *table[T] {
	return &table[T]{
		base:  t.base,
		puts:  make(map[string]T),
		dels:  make(map[string]struct{}),
		clone: t.clone,
	}
}

func (t *table[T]) get(id string) (T, bool) {
	var zero T
	if _, gone := t.dels[id]; gone {
		return zero, false
	}
	if v, ok := t.puts[id]; ok {
		return t.clone(v), true
	}
	v, ok := t.base[id]
	if !ok {
		return zero, false
	}
	return t.clone(v), true
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.base)+len(t.puts))
	for id, v := range t.base {
		if _, gone := t.dels[id]; gone {
			continue
		}
		if _, shadowed := t.puts[id]; shadowed {
			continue
		}
		out = append(out, t.clone(v))
	}
	for _, v := range t.puts {
		out = append(out, t.clone(v))
	}
	return out
}

func (t *table[T]) put(id string, v T) {
	delete(t.dels, id)
	t.puts[id] = t.clone(v)
}

func (t *table[T]) del(id string) {
	delete(t.puts, id)
	t.dels[id] = struct{}{}
}

// commit folds the overlay into base. Caller holds the store write lock.
func (t *table[T]) commit() {
	for id := range t.dels {
		delete(t.base, id)
	}
	for id, v := range t.puts {
		t.base[id] = v
	}
}
