package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineMatches(t *testing.T) {
	tests := []struct {
		line  string
		token string
		want  bool
	}{
		{"anything\n", "", true},
		{"ERR: disk full\n", "err", true},
		{"Err\n", "err", true},
		{"erroneous input\n", "err", true},
		{"all good\n", "err", false},
		{"status: OPEN\n", "Status: open", true},
		{"Straße\n", "STRASSE", false}, // simple folding only
		{"ΣΊΣΥΦΟΣ\n", "σίσυφος", true},
		{"kelvin K\n", "k", true},
		{"short\n", "much longer token", false},
	}
	for _, tt := range tests {
		t.Run(tt.line+"/"+tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, LineMatches(tt.line, tt.token))
		})
	}
}

func TestFilterLines(t *testing.T) {
	lines := []string{"GET /a 200\n", "GET /b 500\n", "POST /c 500\n"}

	assert.Equal(t, lines, FilterLines(lines, ""), "empty filter passes every line unchanged")
	assert.Equal(t, []string{"GET /b 500\n", "POST /c 500\n"}, FilterLines(lines, "500"))
	assert.Empty(t, FilterLines(lines, "404"))
}

func TestScanLine_WalksMatchingLines(t *testing.T) {
	text := "first error\nok\nSecond ERROR here\nlast"

	line, next, ok := ScanLine(text, "error", 0)
	assert.True(t, ok)
	assert.Equal(t, "first error\n", line)

	line, next, ok = ScanLine(text, "error", next)
	assert.True(t, ok)
	assert.Equal(t, "Second ERROR here\n", line)

	_, _, ok = ScanLine(text, "error", next)
	assert.False(t, ok)
}

func TestScanLine_LastLineWithoutTerminator(t *testing.T) {
	line, next, ok := ScanLine("a\nb match", "MATCH", 0)

	assert.True(t, ok)
	assert.Equal(t, "b match", line)
	assert.Equal(t, len("a\nb match"), next)
}

func TestScanLine_OffsetMidLine(t *testing.T) {
	text := "foo foo\nbar\n"

	// Starting past the first occurrence still reports the whole line.
	line, next, ok := ScanLine(text, "foo", 2)
	assert.True(t, ok)
	assert.Equal(t, "foo foo\n", line)
	assert.Equal(t, 8, next)
}

func TestScanLine_OutOfRange(t *testing.T) {
	_, _, ok := ScanLine("abc", "a", 10)
	assert.False(t, ok)
	_, _, ok = ScanLine("", "", 0)
	assert.False(t, ok)
}

func TestMatchingLines(t *testing.T) {
	text := "status: open\nid: 1\nStatus: closed\n"

	assert.Equal(t, []string{"status: open\n", "Status: closed\n"}, MatchingLines(text, "status"))
	assert.Equal(t, []string{"status: open\n", "id: 1\n", "Status: closed\n"}, MatchingLines(text, ""))
	assert.Nil(t, MatchingLines(text, "missing"))
}

func TestMatchingLines_AgreesWithPerLineFilter(t *testing.T) {
	item := CreateItems([]Message{{
		ID:      1,
		Payload: "{\n  \"code\": 500,\n  \"msg\": \"Internal\"\n}",
		Headers: []Header{{Name: "x-code", Value: ScalarValue("500")}},
	}})[0]

	var perLine []string
	perLine = append(perLine, FilterLines(item.HeaderLines, "500")...)
	perLine = append(perLine, FilterLines(item.PayloadLines, "500")...)

	assert.Equal(t, perLine, MatchingLines(item.Combined, "500"))
}
