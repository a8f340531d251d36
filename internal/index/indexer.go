package index

import "strings"

const (
	lineEnd      = "\n"
	nestedIndent = "    "
)

// Item is the display projection of a Message. Items are compared by
// identity; a rebuilt item is a different item even when its id is unchanged.
type Item struct {
	Index        int
	MessageID    uint64
	HeaderLines  []string
	PayloadLines []string
	// Combined is every header line followed by every payload line, joined
	// without a separator since each line already ends with "\n".
	Combined string
}

// CreateItems builds one item per message, numbered from 1 in input order.
func CreateItems(messages []Message) []*Item {
	items := make([]*Item, len(messages))
	for i, msg := range messages {
		item := &Item{
			Index:       i + 1,
			MessageID:   msg.ID,
			HeaderLines: HeaderLines(msg.Headers),
		}
		item.setPayload(msg.Payload)
		items[i] = item
	}
	return items
}

// HeaderLines renders headers one per line. A nested value becomes a
// "<key>:" line followed by one indented line per field.
func HeaderLines(headers []Header) []string {
	lines := make([]string, 0, len(headers))
	for _, h := range headers {
		if !h.Value.IsNested() {
			lines = append(lines, h.Name+": "+h.Value.Scalar+lineEnd)
			continue
		}
		lines = append(lines, h.Name+":"+lineEnd)
		for _, f := range h.Value.Fields {
			lines = append(lines, nestedIndent+f.Name+": "+f.Value+lineEnd)
		}
	}
	return lines
}

// PayloadLines splits a payload on line breaks and terminates every
// segment, the last one included. A payload that already ended with a
// line break therefore gains an extra empty line.
func PayloadLines(payload string) []string {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	segments := strings.Split(payload, "\n")
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = s + lineEnd
	}
	return lines
}

func (it *Item) setPayload(payload string) {
	it.PayloadLines = PayloadLines(payload)

	var sb strings.Builder
	for _, l := range it.HeaderLines {
		sb.WriteString(l)
	}
	for _, l := range it.PayloadLines {
		sb.WriteString(l)
	}
	it.Combined = sb.String()
}

// Renumber assigns contiguous 1-based indices in slice order.
func Renumber(items []*Item) {
	for i, it := range items {
		it.Index = i + 1
	}
}
