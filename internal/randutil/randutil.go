package randutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Reader is the entropy source. Tests may replace it.
var Reader io.Reader = rand.Reader

// Suffix returns 2*n hex characters for making file names unique.
// If the entropy source fails it falls back to the clock.
func Suffix(n int) string {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		s := fmt.Sprintf("%016x", uint64(time.Now().UnixNano()))
		return s[len(s)-min(2*n, len(s)):]
	}
	return hex.EncodeToString(b)
}
