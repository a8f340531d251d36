package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/epalmerini/rmqtools/internal/index"
)

// DefaultMaxMessages bounds a peek when no limit is configured.
const DefaultMaxMessages = 1000

// ErrQueueNotFound is returned when the peeked queue does not exist.
var ErrQueueNotFound = errors.New("queue not found")

// Peeker reads messages straight off the broker without consuming them.
type Peeker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *logrus.Entry
}

// NewPeeker connects to the broker at amqpURL.
func NewPeeker(amqpURL string, log *logrus.Entry) (*Peeker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open channel: %w", err), conn.Close())
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Peeker{
		conn:    conn,
		channel: ch,
		log:     log.WithField("component", "peek"),
	}, nil
}

// Peek fetches up to limit messages from queue with basic.get and requeues
// all of them before returning, so the queue is left as it was apart from
// the redelivered flag. Message ids are 1-based delivery positions.
func (p *Peeker) Peek(ctx context.Context, queue string, limit int) ([]index.Message, error) {
	if limit <= 0 {
		limit = DefaultMaxMessages
	}

	q, err := p.channel.QueueDeclarePassive(
		queue,
		false, // durable (ignored for passive)
		false, // auto-delete (ignored for passive)
		false, // exclusive (ignored for passive)
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		// A failed passive declare closes the channel.
		var chanErr error
		p.channel, chanErr = p.conn.Channel()
		if chanErr != nil {
			return nil, errors.Join(fmt.Errorf("%s: %w", queue, ErrQueueNotFound), fmt.Errorf("failed to reopen channel: %w", chanErr))
		}
		return nil, fmt.Errorf("%s: %w", queue, ErrQueueNotFound)
	}
	if q.Messages < limit {
		limit = q.Messages
	}

	var (
		messages []index.Message
		lastTag  uint64
	)
	for len(messages) < limit {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, p.requeue(lastTag))
		}
		d, ok, err := p.channel.Get(queue, false)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to get message: %w", err), p.requeue(lastTag))
		}
		if !ok {
			break
		}
		lastTag = d.DeliveryTag
		messages = append(messages, DeliveryMessage(uint64(len(messages)+1), d))
	}

	if err := p.requeue(lastTag); err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"queue":    queue,
		"messages": len(messages),
	}).Debug("Peeked queue")
	return messages, nil
}

// requeue nacks every unacknowledged delivery up to tag.
func (p *Peeker) requeue(tag uint64) error {
	if tag == 0 {
		return nil
	}
	if err := p.channel.Nack(tag, true, true); err != nil {
		return fmt.Errorf("failed to requeue messages: %w", err)
	}
	return nil
}

func (p *Peeker) Close() error {
	var chanErr error
	if p.channel != nil {
		chanErr = p.channel.Close()
	}
	if p.conn != nil {
		return errors.Join(chanErr, p.conn.Close())
	}
	return chanErr
}

// DeliveryMessage converts a delivery to a message. Header keys are sorted
// since AMQP tables carry no order; a table value becomes a nested header.
func DeliveryMessage(id uint64, d amqp.Delivery) index.Message {
	msg := index.Message{
		ID:      id,
		Payload: string(d.Body),
	}
	keys := make([]string, 0, len(d.Headers))
	for k := range d.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		msg.Headers = append(msg.Headers, index.Header{Name: k, Value: headerValue(d.Headers[k])})
	}
	return msg
}

func headerValue(v any) index.HeaderValue {
	table, ok := v.(amqp.Table)
	if !ok {
		text, raw := scalarText(v)
		return index.HeaderValue{Scalar: text, Raw: raw}
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]index.Field, 0, len(keys))
	for _, k := range keys {
		text, raw := scalarText(table[k])
		fields = append(fields, index.Field{Name: k, Value: text, Raw: raw})
	}
	return index.NestedValue(fields...)
}

// scalarText renders an AMQP field value the way the server's JSON would:
// strings as text, numbers and booleans as JSON literals, anything
// composite as JSON.
func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "null", true
	case string:
		return x, false
	case []byte:
		return string(x), false
	case bool:
		return strconv.FormatBool(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case time.Time:
		return x.UTC().Format(time.RFC3339), false
	case amqp.Decimal:
		return decimalText(x), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), false
	}
	return string(b), true
}

func decimalText(d amqp.Decimal) string {
	s := strconv.FormatInt(int64(d.Value), 10)
	if d.Scale == 0 {
		return s
	}
	neg := d.Value < 0
	if neg {
		s = s[1:]
	}
	for len(s) <= int(d.Scale) {
		s = "0" + s
	}
	cut := len(s) - int(d.Scale)
	s = s[:cut] + "." + s[cut:]
	if neg {
		s = "-" + s
	}
	return s
}
