package index

import "fmt"

// GroupMode selects how a group key is derived.
type GroupMode int

const (
	// GroupByLine scans header lines, then payload lines, one line at a time.
	GroupByLine GroupMode = iota
	// GroupByScan runs the whole-line scan over the combined string.
	GroupByScan
)

// ParseGroupMode maps a config value to a GroupMode. Empty means GroupByLine.
func ParseGroupMode(s string) (GroupMode, error) {
	switch s {
	case "", "line":
		return GroupByLine, nil
	case "scan":
		return GroupByScan, nil
	}
	return GroupByLine, fmt.Errorf("unknown group mode %q", s)
}

func (m GroupMode) String() string {
	if m == GroupByScan {
		return "scan"
	}
	return "line"
}

// GroupKey returns the first header line, or failing that the first payload
// line, containing selector. ok is false when nothing matches. An empty
// selector disables grouping: every item gets the same empty key.
func GroupKey(item *Item, selector string) (key string, ok bool) {
	if selector == "" {
		return "", true
	}
	for _, l := range item.HeaderLines {
		if LineMatches(l, selector) {
			return l, true
		}
	}
	for _, l := range item.PayloadLines {
		if LineMatches(l, selector) {
			return l, true
		}
	}
	return "", false
}

// GroupKeyScan derives the key with ScanLine over the combined string.
func GroupKeyScan(item *Item, selector string) (key string, ok bool) {
	if selector == "" {
		return "", true
	}
	line, _, ok := ScanLine(item.Combined, selector, 0)
	return line, ok
}

// Key derives the group key of item using mode.
func (m GroupMode) Key(item *Item, selector string) (string, bool) {
	if m == GroupByScan {
		return GroupKeyScan(item, selector)
	}
	return GroupKey(item, selector)
}

// Group is a run of items sharing a key. Matched is false for the group of
// items where the selector found nothing.
type Group struct {
	Key     string
	Matched bool
	Items   []*Item
}

// GroupItems partitions items by key. Groups appear in order of their first
// item; the unmatched group, if any, comes last. Items keep their order
// within a group.
func GroupItems(items []*Item, selector string, mode GroupMode) []Group {
	var groups []Group
	pos := make(map[string]int)
	var unmatched []*Item
	for _, it := range items {
		key, ok := mode.Key(it, selector)
		if !ok {
			unmatched = append(unmatched, it)
			continue
		}
		i, seen := pos[key]
		if !seen {
			i = len(groups)
			pos[key] = i
			groups = append(groups, Group{Key: key, Matched: true})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	if len(unmatched) > 0 {
		groups = append(groups, Group{Items: unmatched})
	}
	return groups
}
