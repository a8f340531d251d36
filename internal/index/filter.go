package index

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// LineMatches reports whether line contains token, ignoring case.
// An empty token matches every line.
func LineMatches(line, token string) bool {
	if token == "" {
		return true
	}
	start, _ := indexFold(line, token)
	return start >= 0
}

// FilterLines returns the lines that match token, in order.
func FilterLines(lines []string, token string) []string {
	if token == "" {
		return lines
	}
	var out []string
	for _, l := range lines {
		if LineMatches(l, token) {
			out = append(out, l)
		}
	}
	return out
}

// ScanLine finds the first case-insensitive occurrence of token in text at
// or after offset and returns the whole line around it, terminator
// included, together with the offset just past that line. ok is false when
// there is no further occurrence. Feeding next back in as offset walks
// every matching line in order.
func ScanLine(text, token string, offset int) (line string, next int, ok bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(text) {
		return "", len(text), false
	}
	rel, relEnd := indexFold(text[offset:], token)
	if rel < 0 {
		return "", len(text), false
	}
	matchStart, matchEnd := offset+rel, offset+relEnd

	start := strings.LastIndexByte(text[:matchStart], '\n') + 1
	end := len(text)
	if matchEnd > matchStart && text[matchEnd-1] == '\n' {
		end = matchEnd
	} else if i := strings.IndexByte(text[matchEnd:], '\n'); i >= 0 {
		end = matchEnd + i + 1
	}
	return text[start:end], end, true
}

// MatchingLines collects every line of text containing token using
// repeated ScanLine calls.
func MatchingLines(text, token string) []string {
	var lines []string
	for offset := 0; ; {
		line, next, ok := ScanLine(text, token, offset)
		if !ok {
			return lines
		}
		lines = append(lines, line)
		offset = next
	}
}

// indexFold returns the byte range of the first match of substr in s under
// Unicode simple case folding, or (-1, -1).
func indexFold(s, substr string) (int, int) {
	if substr == "" {
		return 0, 0
	}
	if isASCII(s) && isASCII(substr) {
		return indexFoldASCII(s, substr)
	}
	for i := 0; i < len(s); {
		if n, ok := prefixFold(s[i:], substr); ok {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

func indexFoldASCII(s, substr string) (int, int) {
	n := len(substr)
	first := lowerASCII(substr[0])
	for i := 0; i+n <= len(s); i++ {
		if lowerASCII(s[i]) != first {
			continue
		}
		j := 1
		for j < n && lowerASCII(s[i+j]) == lowerASCII(substr[j]) {
			j++
		}
		if j == n {
			return i, i + n
		}
	}
	return -1, -1
}

// prefixFold reports whether s starts with prefix under case folding and
// how many bytes of s the prefix covered.
func prefixFold(s, prefix string) (int, bool) {
	consumed := 0
	for prefix != "" {
		if s == "" {
			return 0, false
		}
		r1, n1 := utf8.DecodeRuneInString(s)
		r2, n2 := utf8.DecodeRuneInString(prefix)
		if !equalRuneFold(r1, r2) {
			return 0, false
		}
		s, prefix = s[n1:], prefix[n2:]
		consumed += n1
	}
	return consumed, true
}

func equalRuneFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
