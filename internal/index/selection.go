package index

// Selection is a set of items keyed by identity.
type Selection map[*Item]struct{}

// Toggle adds item if absent and removes it otherwise.
func (s Selection) Toggle(item *Item) {
	if _, ok := s[item]; ok {
		delete(s, item)
		return
	}
	s[item] = struct{}{}
}

// Add inserts item.
func (s Selection) Add(item *Item) {
	s[item] = struct{}{}
}

// Has reports whether item is selected.
func (s Selection) Has(item *Item) bool {
	_, ok := s[item]
	return ok
}

// Clear empties the selection.
func (s Selection) Clear() {
	for it := range s {
		delete(s, it)
	}
}

// SelectGroup adds every item sharing of's group key to the selection.
// Existing selections are kept, so repeating the call changes nothing.
func (s Selection) SelectGroup(items []*Item, of *Item, selector string, mode GroupMode) {
	want, wantOK := mode.Key(of, selector)
	for _, it := range items {
		key, ok := mode.Key(it, selector)
		if ok == wantOK && key == want {
			s.Add(it)
		}
	}
}

// Ordered returns the selected items in the order they appear in items.
func (s Selection) Ordered(items []*Item) []*Item {
	var out []*Item
	for _, it := range items {
		if s.Has(it) {
			out = append(out, it)
		}
	}
	return out
}

// Targets returns the message ids an operation should act on: the selected
// items, or every loaded item when nothing is selected.
func Targets(s Selection, items []*Item) []uint64 {
	src := items
	if len(s) > 0 {
		src = s.Ordered(items)
	}
	ids := make([]uint64, len(src))
	for i, it := range src {
		ids[i] = it.MessageID
	}
	return ids
}

// TargetItems is Targets for operations that need the items themselves.
func TargetItems(s Selection, items []*Item) []*Item {
	if len(s) == 0 {
		return items
	}
	return s.Ordered(items)
}
