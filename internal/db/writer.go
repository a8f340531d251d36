package db

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultBufferSize = 64

// AsyncWriter provides non-blocking snapshot persistence with a buffered channel
type AsyncWriter struct {
	store  Store
	log    *logrus.Entry
	ch     chan *SnapshotRecord
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewAsyncWriter creates a new async writer for store
func NewAsyncWriter(store Store, log *logrus.Entry) *AsyncWriter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	w := &AsyncWriter{
		store: store,
		log:   log.WithField("component", "db"),
		ch:    make(chan *SnapshotRecord, defaultBufferSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Save queues a snapshot for persistence. Non-blocking; drops the snapshot
// if the buffer is full or the writer is closed.
func (w *AsyncWriter) Save(rec *SnapshotRecord) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.ch <- rec:
		return true
	default:
		w.log.WithField("queue", rec.QueueName).Warn("Snapshot buffer full, dropping snapshot")
		return false
	}
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for rec := range w.ch {
		id, err := w.store.SaveSnapshot(context.Background(), rec)
		if err != nil {
			w.log.WithError(err).WithField("queue", rec.QueueName).Error("Failed to save snapshot")
			continue
		}
		w.log.WithFields(logrus.Fields{
			"queue":    rec.QueueName,
			"snapshot": id,
			"messages": len(rec.Messages),
		}).Debug("Snapshot saved")
	}
}

// Close stops accepting snapshots and waits for the buffer to drain
func (w *AsyncWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
}
