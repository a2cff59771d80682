package state

// Identifiable is implemented by every resource kept in a Collection.
type Identifiable interface {
	GetID() string
}

// Collection is an immutable, ordered list of resources keyed by id.
// Every operation returns a new Collection and leaves the receiver untouched,
// so a Collection handed out in a Snapshot never changes underneath its reader.
type Collection[T Identifiable] struct {
	items []T
}

// NewCollection builds a collection from items, keeping the first of any duplicate ids.
func NewCollection[T Identifiable](items ...T) Collection[T] {
	return Collection[T]{}.Replace(items)
}

// Replace swaps in a freshly fetched list. Nil becomes empty.
func (c Collection[T]) Replace(items []T) Collection[T] {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := it.GetID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}
	return Collection[T]{items: out}
}

// AppendIfAbsent adds item at the end unless its id is already present.
func (c Collection[T]) AppendIfAbsent(item T) Collection[T] {
	if c.Contains(item.GetID()) {
		return c
	}
	out := make([]T, len(c.items), len(c.items)+1)
	copy(out, c.items)
	return Collection[T]{items: append(out, item)}
}

// Upsert replaces the item with the same id in place, or appends it.
func (c Collection[T]) Upsert(item T) Collection[T] {
	out := make([]T, len(c.items))
	copy(out, c.items)
	for i := range out {
		if out[i].GetID() == item.GetID() {
			out[i] = item
			return Collection[T]{items: out}
		}
	}
	return Collection[T]{items: append(out, item)}
}

// RemoveByID drops the item with id, if present.
func (c Collection[T]) RemoveByID(id string) Collection[T] {
	out := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if it.GetID() != id {
			out = append(out, it)
		}
	}
	return Collection[T]{items: out}
}

// Contains reports whether an item with id is present.
func (c Collection[T]) Contains(id string) bool {
	for _, it := range c.items {
		if it.GetID() == id {
			return true
		}
	}
	return false
}

// Items returns a copy of the items in order. It is never nil.
func (c Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c Collection[T]) Len() int {
	return len(c.items)
}
