package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/index"
)

// ErrUnknownQueue is returned when the server lists no queue of that name.
var ErrUnknownQueue = errors.New("unknown queue")

// MessageSource is the part of the server API an export reads from.
type MessageSource interface {
	QueueSummaries(ctx context.Context) ([]api.QueueSummary, error)
	StoredMessages(ctx context.Context, queueID uint64) ([]index.Message, error)
	Load(ctx context.Context, queueName string) (api.LoadResult, error)
}

// ExportOptions selects what an export contains.
type ExportOptions struct {
	// Stored reads the server's stored copy instead of loading the queue
	// from the broker first.
	Stored bool
	Filter string
	Mode   index.ShowMode
}

// Export fetches the messages of queue and composes their visible lines.
func Export(ctx context.Context, src MessageSource, queue string, opts ExportOptions) (string, error) {
	msgs, err := fetchMessages(ctx, src, queue, opts.Stored)
	if err != nil {
		return "", err
	}
	return index.Compose(index.New(msgs).Items(), opts.Mode, opts.Filter), nil
}

func fetchMessages(ctx context.Context, src MessageSource, queue string, stored bool) ([]index.Message, error) {
	if !stored {
		res, err := src.Load(ctx, queue)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", queue, err)
		}
		return res.Messages, nil
	}

	queues, err := src.QueueSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	for _, q := range queues {
		if q.Name != queue {
			continue
		}
		id, err := q.ID()
		if err != nil {
			return nil, err
		}
		msgs, err := src.StoredMessages(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("stored messages of %s: %w", queue, err)
		}
		return msgs, nil
	}
	return nil, fmt.Errorf("queue %q: %w", queue, ErrUnknownQueue)
}
