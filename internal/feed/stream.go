package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrStarted is returned by Start when the stream was started before.
	ErrStarted = errors.New("feed: stream already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("feed: stream closed")
)

// Options tunes a Stream.
type Options struct {
	// InitialBufferSize is the reassembly buffer's starting capacity.
	// Zero selects DefaultBufferSize.
	InitialBufferSize int
	// FailOnDecodeError ends the stream on the first message that does not
	// decode as a counter list. By default such messages are logged and
	// skipped.
	FailOnDecodeError bool
	Logger            *logrus.Entry
}

// Stream reads counter snapshots off a Transport and hands each one to a
// single callback. Snapshots are delivered in receipt order and the next
// read is not issued until the callback returns.
type Stream struct {
	transport Transport
	reasm     *Reassembler
	opts      Options
	log       *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error

	mu      sync.Mutex
	started bool
	closed  bool
	err     error
	done    chan struct{}
}

// NewStream wraps t. The stream owns t and closes it when it stops.
func NewStream(t Transport, opts Options) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Stream{
		transport: t,
		reasm:     NewReassembler(t, opts.InitialBufferSize),
		opts:      opts,
		log:       log.WithField("component", "feed"),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the read loop. onSnapshot runs on the loop's goroutine; a
// consumer that shares state with other goroutines must hand the snapshot
// off rather than mutate that state from the callback.
func (s *Stream) Start(onSnapshot func(Snapshot)) error {
	if onSnapshot == nil {
		return fmt.Errorf("feed: nil snapshot callback")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrStarted
	}
	s.started = true
	go s.run(onSnapshot)
	return nil
}

func (s *Stream) run(onSnapshot func(Snapshot)) {
	defer close(s.done)
	defer s.Close()

	for {
		if s.ctx.Err() != nil {
			return
		}
		data, err := s.reasm.Next(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.setErr(fmt.Errorf("receive counters: %w", err))
				s.log.WithError(err).Warn("Feed connection lost")
			}
			return
		}

		snap, err := DecodeSnapshot(data)
		if err != nil {
			if s.opts.FailOnDecodeError {
				s.setErr(err)
				s.log.WithError(err).Error("Dropping feed after undecodable message")
				return
			}
			s.log.WithError(err).WithField("bytes", len(data)).Warn("Skipping undecodable feed message")
			continue
		}

		if !s.deliverable() {
			return
		}
		s.log.WithField("queues", len(snap)).Trace("Counter snapshot received")
		onSnapshot(snap)
	}
}

// deliverable reports whether Close has not been called yet. It is checked
// under mu right before each delivery.
func (s *Stream) deliverable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Err returns the error that ended the stream, or nil if it is still
// running or was closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the read loop has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close cancels the read loop and then releases the transport. Both happen
// at most once; later calls return the first result. Close does not wait
// for a delivery in progress. A delivery begins only if the loop, holding
// the stream's lock, finds Close has not been called, so none begins after
// Close has marked the stream closed.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		s.cancel()
		s.closeErr = s.transport.Close()
		if !started {
			close(s.done)
		}
	})
	return s.closeErr
}
