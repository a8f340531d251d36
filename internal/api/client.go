package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/epalmerini/rmqtools/internal/index"
)

// ErrNoQueue is returned for operations on a queue the server has not
// stored yet.
var ErrNoQueue = errors.New("queue has no stored messages")

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: API returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// QueueSummary describes one broker queue and how much of it is stored.
// QueueID is nil until the queue has been loaded at least once.
type QueueSummary struct {
	QueueID           *uint64 `json:"queue_id"`
	Name              string  `json:"name"`
	Exclusive         bool    `json:"exclusive"`
	MessageCountInRMQ int     `json:"message_count_in_rmq"`
	MessageCountInDB  int     `json:"message_count_in_db"`
}

// Stored reports whether the server has a stored copy of the queue.
func (q QueueSummary) Stored() bool {
	return q.QueueID != nil
}

// ID returns the stored queue id or ErrNoQueue.
func (q QueueSummary) ID() (uint64, error) {
	if q.QueueID == nil {
		return 0, fmt.Errorf("%s: %w", q.Name, ErrNoQueue)
	}
	return *q.QueueID, nil
}

type ConnectionInfo struct {
	Domain     string `json:"domain"`
	ServerName string `json:"server_name"`
	VHost      string `json:"vhost"`
}

type EnvInfo struct {
	Connection      ConnectionInfo `json:"rmq_connection_info"`
	ImportanceLevel int            `json:"importance_level"`
}

// LoadResult is the stored state of a queue after a load.
type LoadResult struct {
	QueueID  uint64
	Messages []index.Message
}

// Client talks to the rmq_tools server's REST API.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

// NewClient creates a client for the server at serverURL.
func NewClient(serverURL string, log *logrus.Entry) (*Client, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.WithField("component", "api"),
	}, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	c.log.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"bytes":   len(data),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	return c.doRequest(ctx, method, path, "application/json", body)
}

// QueueSummaries lists the broker's queues with their stored counts.
func (c *Client) QueueSummaries(ctx context.Context) ([]QueueSummary, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/api/queues", nil)
	if err != nil {
		return nil, err
	}
	var queues []QueueSummary
	if err := json.Unmarshal(data, &queues); err != nil {
		return nil, fmt.Errorf("decode queues: %w", err)
	}
	return queues, nil
}

// EnvInfo returns the broker connection the server is bound to.
func (c *Client) EnvInfo(ctx context.Context) (EnvInfo, error) {
	var info EnvInfo
	data, err := c.doJSON(ctx, http.MethodGet, "/api/env_info", nil)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("decode env info: %w", err)
	}
	return info, nil
}

// StoredMessages returns the messages stored for queueID.
func (c *Client) StoredMessages(ctx context.Context, queueID uint64) ([]index.Message, error) {
	path := fmt.Sprintf("/api/queues/%d/messages", queueID)
	data, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	msgs, err := index.DecodeMessages(data)
	if err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// Load drains queueName on the broker into the server's store and returns
// everything stored for it.
func (c *Client) Load(ctx context.Context, queueName string) (LoadResult, error) {
	path := "/api/queue/load?" + url.Values{"queue_name": {queueName}}.Encode()
	data, err := c.doJSON(ctx, http.MethodPost, path, nil)
	if err != nil {
		return LoadResult{}, err
	}
	if !gjson.ValidBytes(data) {
		return LoadResult{}, fmt.Errorf("decode load response: invalid JSON")
	}
	res := gjson.ParseBytes(data)
	return LoadResult{
		QueueID:  res.Get("queue_id").Uint(),
		Messages: index.DecodeMessagesResult(res.Get("messages")),
	}, nil
}

// Peek returns messages currently on the broker without storing them.
func (c *Client) Peek(ctx context.Context, queueName string) ([]index.Message, error) {
	path := "/api/queue/peek?" + url.Values{"queue_name": {queueName}}.Encode()
	data, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	msgs, err := index.DecodeMessages(data)
	if err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

type deleteMessagesRequest struct {
	MessageIDs []uint64 `json:"message_ids"`
}

type sendMessagesRequest struct {
	DestinationQueueName string   `json:"destination_queue_name"`
	MessageIDs           []uint64 `json:"message_ids"`
}

// DeleteMessages removes stored messages. Nothing is sent for an empty id
// list.
func (c *Client) DeleteMessages(ctx context.Context, queueID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	path := fmt.Sprintf("/api/queues/%d/messages", queueID)
	_, err := c.doJSON(ctx, http.MethodDelete, path, deleteMessagesRequest{MessageIDs: ids})
	return err
}

// SendMessages publishes stored messages to destination and removes them
// from the store.
func (c *Client) SendMessages(ctx context.Context, queueID uint64, ids []uint64, destination string) error {
	if destination == "" {
		return fmt.Errorf("send messages: destination queue is required")
	}
	if len(ids) == 0 {
		return nil
	}
	path := fmt.Sprintf("/api/queues/%d/messages/send", queueID)
	_, err := c.doJSON(ctx, http.MethodPost, path, sendMessagesRequest{
		DestinationQueueName: destination,
		MessageIDs:           ids,
	})
	return err
}

// SaveMessage replaces the payload of a stored message.
func (c *Client) SaveMessage(ctx context.Context, queueID, messageID uint64, payload string) error {
	path := fmt.Sprintf("/api/queues/%d/messages/%d", queueID, messageID)
	_, err := c.doRequest(ctx, http.MethodPut, path, "text/plain; charset=utf-8", []byte(payload))
	return err
}
