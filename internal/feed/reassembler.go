// Package feed consumes the server's push feed of per-queue message counts.
//
// Messages arrive in fragments over a Transport. A Reassembler joins them
// into whole messages and a Stream decodes each message into a Snapshot and
// hands it to a single callback, one at a time.
package feed

import (
	"context"
	"fmt"
)

// DefaultBufferSize is the initial capacity of the reassembly buffer.
const DefaultBufferSize = 10000

// Transport delivers one fragment per call.
//
// ReadFragment writes at most len(p) bytes into p and reports how many were
// written and whether they complete the current message. Fragments may be
// of any size, including empty. A transport must honor ctx cancellation by
// returning an error.
type Transport interface {
	ReadFragment(ctx context.Context, p []byte) (n int, final bool, err error)
	Close() error
}

// Reassembler joins fragments into complete messages using one working
// buffer that it owns and reuses across calls. Each non-final fragment
// doubles the buffer's capacity before the next read.
type Reassembler struct {
	t   Transport
	buf []byte
}

// NewReassembler returns a Reassembler over t. A size of zero or less
// selects DefaultBufferSize.
func NewReassembler(t Transport, size int) *Reassembler {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reassembler{t: t, buf: make([]byte, size)}
}

// Cap returns the current capacity of the working buffer.
func (r *Reassembler) Cap() int {
	return len(r.buf)
}

// Next reads fragments until one is marked final and returns the joined
// bytes. The returned slice aliases the working buffer and is only valid
// until the next call. On error no partial message is returned.
func (r *Reassembler) Next(ctx context.Context) ([]byte, error) {
	used := 0
	for {
		n, final, err := r.t.ReadFragment(ctx, r.buf[used:])
		if err != nil {
			return nil, err
		}
		if n < 0 || n > len(r.buf)-used {
			return nil, fmt.Errorf("feed: transport reported %d bytes for a %d byte buffer", n, len(r.buf)-used)
		}
		used += n
		if final {
			return r.buf[:used], nil
		}
		grown := make([]byte, 2*len(r.buf))
		copy(grown, r.buf[:used])
		r.buf = grown
	}
}
