package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fragment struct {
	data  []byte
	final bool
	err   error
}

// scriptedTransport replays fragments in order, then blocks until ctx ends.
// A fragment larger than the offered buffer is handed out in pieces, the
// way a socket fills whatever room the reader gives it.
type scriptedTransport struct {
	frags  []fragment
	closed int
}

func (s *scriptedTransport) ReadFragment(ctx context.Context, p []byte) (int, bool, error) {
	if len(s.frags) == 0 {
		<-ctx.Done()
		return 0, false, ctx.Err()
	}
	f := s.frags[0]
	if f.err != nil {
		s.frags = s.frags[1:]
		return 0, false, f.err
	}
	if len(f.data) > len(p) {
		n := copy(p, f.data)
		s.frags[0].data = f.data[n:]
		return n, false, nil
	}
	s.frags = s.frags[1:]
	return copy(p, f.data), f.final, nil
}

func (s *scriptedTransport) Close() error {
	s.closed++
	return nil
}

// split cuts data at the given sizes; only the last piece is final.
func split(data []byte, sizes ...int) []fragment {
	var frags []fragment
	for _, n := range sizes {
		frags = append(frags, fragment{data: data[:n]})
		data = data[n:]
	}
	frags = append(frags, fragment{data: data, final: true})
	return frags
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestReassembler_SingleFragmentIsNotCopied(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{{data: []byte("hello"), final: true}}}
	r := NewReassembler(tr, 16)

	got, err := r.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, 16, r.Cap())
}

func TestReassembler_EndToEnd(t *testing.T) {
	payload := pattern(20500)
	tr := &scriptedTransport{frags: split(payload, 10000, 10000)}
	r := NewReassembler(tr, 0)

	got, err := r.Next(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 20500)
	assert.True(t, bytes.Equal(payload, got))
}

func TestReassembler_AnyPartition(t *testing.T) {
	payload := pattern(1000)
	partitions := [][]int{
		nil,
		{1},
		{8, 16, 32, 64},
		{8, 1, 1, 1, 1},
		{8, 16, 32, 64, 128, 256, 300},
	}
	for _, sizes := range partitions {
		tr := &scriptedTransport{frags: split(payload, sizes...)}
		r := NewReassembler(tr, 8)

		got, err := r.Next(context.Background())

		require.NoError(t, err)
		assert.Equal(t, payload, got, "partition %v", sizes)
	}
}

func TestReassembler_BufferGrowth(t *testing.T) {
	for n := 0; n <= 4; n++ {
		var frags []fragment
		for i := 0; i < n; i++ {
			frags = append(frags, fragment{data: []byte{'x'}})
		}
		frags = append(frags, fragment{data: []byte{'y'}, final: true})
		r := NewReassembler(&scriptedTransport{frags: frags}, 4)

		_, err := r.Next(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 4<<n, r.Cap(), "after %d non-final fragments", n)
	}
}

func TestReassembler_BufferIsReused(t *testing.T) {
	tr := &scriptedTransport{frags: append(split(pattern(30), 10, 10), fragment{data: []byte("tail"), final: true})}
	r := NewReassembler(tr, 10)

	first, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pattern(30), first)
	grown := r.Cap()

	second, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("tail"), second)
	assert.Equal(t, grown, r.Cap())
}

func TestReassembler_ErrorMidMessage(t *testing.T) {
	boom := errors.New("connection reset")
	tr := &scriptedTransport{frags: []fragment{
		{data: []byte("partial")},
		{err: boom},
	}}
	r := NewReassembler(tr, 8)

	got, err := r.Next(context.Background())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}

func TestReassembler_EmptyNonFinalFragment(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		{data: []byte("abc")},
		{data: nil},
		{data: []byte("def"), final: true},
	}}
	r := NewReassembler(tr, 8)

	got, err := r.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), got)
	assert.Equal(t, 32, r.Cap())
}

func TestReassembler_Cancelled(t *testing.T) {
	r := NewReassembler(&scriptedTransport{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Next(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestReassembler_TransportEOF(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{{err: io.ErrUnexpectedEOF}}}

	_, err := NewReassembler(tr, 8).Next(context.Background())

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
