package feed

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Snapshot maps queue name to the number of messages the broker holds for
// it at one point in time.
type Snapshot map[string]int64

// Names returns the queue names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeSnapshot parses a pushed counter list of the shape
// [{"queue_name": "...", "messages": N}, ...]. A later entry for the same
// queue name replaces an earlier one.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode counters: invalid JSON")
	}
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		return nil, fmt.Errorf("decode counters: expected array, got %s", list.Type)
	}

	snap := make(Snapshot)
	var err error
	list.ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("queue_name")
		if name.Type != gjson.String {
			err = fmt.Errorf("decode counters: entry without queue_name: %s", entry.Raw)
			return false
		}
		count := entry.Get("messages")
		if count.Type != gjson.Number {
			err = fmt.Errorf("decode counters: queue %q has no message count", name.Str)
			return false
		}
		snap[name.Str] = count.Int()
		return true
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
