package index

// Index holds the loaded messages of one queue together with their items.
// It is not safe for concurrent use; the display layer owns it.
type Index struct {
	messages []Message
	items    []*Item
}

// New returns an Index over messages.
func New(messages []Message) *Index {
	x := &Index{}
	x.Load(messages)
	return x
}

// Load replaces the message set and rebuilds every item.
func (x *Index) Load(messages []Message) {
	x.messages = append([]Message(nil), messages...)
	x.items = CreateItems(x.messages)
}

// Messages returns the loaded messages in arrival order.
func (x *Index) Messages() []Message {
	return x.messages
}

// Items returns the current items in arrival order.
func (x *Index) Items() []*Item {
	return x.items
}

// Len returns the number of loaded messages.
func (x *Index) Len() int {
	return len(x.messages)
}

// Message returns the message with the given id.
func (x *Index) Message(id uint64) (Message, bool) {
	for _, m := range x.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Remove drops the messages with the given ids and rebuilds the items, so
// the remaining items are numbered 1..N in their remaining order. It returns
// the number of messages removed.
func (x *Index) Remove(ids []uint64) int {
	drop := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := x.messages[:0:0]
	for _, m := range x.messages {
		if _, ok := drop[m.ID]; !ok {
			kept = append(kept, m)
		}
	}
	removed := len(x.messages) - len(kept)
	x.messages = kept
	x.items = CreateItems(kept)
	return removed
}

// EditPayload replaces one message's payload. The item is replaced by a new
// instance sharing the old header lines; only payload lines and the combined
// string are recomputed. It returns the new item, or nil if id is unknown.
func (x *Index) EditPayload(id uint64, payload string) *Item {
	for i := range x.messages {
		if x.messages[i].ID != id {
			continue
		}
		x.messages[i].Payload = payload
		old := x.items[i]
		item := &Item{
			Index:       old.Index,
			MessageID:   old.MessageID,
			HeaderLines: old.HeaderLines,
		}
		item.setPayload(payload)
		x.items[i] = item
		return item
	}
	return nil
}
