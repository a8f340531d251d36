package index

import (
	"fmt"
	"strings"
)

// ShowMode selects which parts of an item are rendered or exported.
type ShowMode int

const (
	ShowBoth ShowMode = iota
	ShowHeaders
	ShowPayload
)

// ParseShowMode maps a config value to a ShowMode. Empty means ShowBoth.
func ParseShowMode(s string) (ShowMode, error) {
	switch s {
	case "", "both":
		return ShowBoth, nil
	case "headers":
		return ShowHeaders, nil
	case "payload":
		return ShowPayload, nil
	}
	return ShowBoth, fmt.Errorf("unknown show mode %q", s)
}

func (m ShowMode) String() string {
	switch m {
	case ShowHeaders:
		return "headers"
	case ShowPayload:
		return "payload"
	default:
		return "both"
	}
}

// Next cycles both -> headers -> payload -> both.
func (m ShowMode) Next() ShowMode {
	return (m + 1) % 3
}

// Headers reports whether header lines are shown.
func (m ShowMode) Headers() bool { return m != ShowPayload }

// Payload reports whether payload lines are shown.
func (m ShowMode) Payload() bool { return m != ShowHeaders }

// VisibleLines returns the lines of item shown under mode that pass filter,
// headers first.
func VisibleLines(item *Item, mode ShowMode, filter string) []string {
	var lines []string
	if mode.Headers() {
		lines = append(lines, FilterLines(item.HeaderLines, filter)...)
	}
	if mode.Payload() {
		lines = append(lines, FilterLines(item.PayloadLines, filter)...)
	}
	return lines
}

// ItemMatches reports whether at least one line shown under mode passes
// filter. Every item matches an empty filter.
func ItemMatches(item *Item, mode ShowMode, filter string) bool {
	if filter == "" {
		return true
	}
	if mode.Headers() {
		for _, l := range item.HeaderLines {
			if LineMatches(l, filter) {
				return true
			}
		}
	}
	if mode.Payload() {
		for _, l := range item.PayloadLines {
			if LineMatches(l, filter) {
				return true
			}
		}
	}
	return false
}

// Compose renders items, in the order given, as export text: for every item
// the header lines then the payload lines selected by mode and passing
// filter, each trimmed and written on its own line. Items are not
// reordered or dropped here; only lines are filtered.
func Compose(items []*Item, mode ShowMode, filter string) string {
	var sb strings.Builder
	for _, it := range items {
		for _, l := range VisibleLines(it, mode, filter) {
			sb.WriteString(strings.TrimSpace(l))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
