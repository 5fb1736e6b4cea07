package domain

// WishlistState is a set of product snapshots keyed by id that remembers
// insertion order for display.
type WishlistState struct {
	order   []string
	entries map[string]Product
}

func EmptyWishlist() WishlistState {
	return WishlistState{entries: make(map[string]Product)}
}

// Add inserts p unless its id is already present.
func (w *WishlistState) Add(p Product) bool {
	if w.entries == nil {
		w.entries = make(map[string]Product)
	}
	if _, ok := w.entries[p.ID]; ok {
		return false
	}
	w.entries[p.ID] = p
	w.order = append(w.order, p.ID)
	return true
}

func (w *WishlistState) Remove(id string) bool {
	if _, ok := w.entries[id]; !ok {
		return false
	}
	delete(w.entries, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

func (w WishlistState) Contains(id string) bool {
	_, ok := w.entries[id]
	return ok
}

func (w WishlistState) Get(id string) (Product, bool) {
	p, ok := w.entries[id]
	return p, ok
}

func (w WishlistState) Len() int {
	return len(w.entries)
}

func (w *WishlistState) Clear() {
	w.order = nil
	w.entries = make(map[string]Product)
}

// Items returns the entries in insertion order.
func (w WishlistState) Items() []Product {
	items := make([]Product, 0, len(w.order))
	for _, id := range w.order {
		items = append(items, w.entries[id])
	}
	return items
}
