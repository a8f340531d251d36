package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/epalmerini/rmqtools/internal/index"
	"github.com/epalmerini/rmqtools/internal/xdg"
)

//go:embed schema.sql
var schemaSQL string

// Source tells how a snapshot's messages were obtained.
type Source string

const (
	SourceStored Source = "stored" // read from the server's store
	SourceLoad   Source = "load"   // drained into the server's store
	SourcePeek   Source = "peek"   // read straight off the broker
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Store defines the interface for snapshot persistence
type Store interface {
	SaveSnapshot(ctx context.Context, rec *SnapshotRecord) (int64, error)
	ListSnapshots(ctx context.Context, limit int64) ([]Snapshot, error)
	LatestSnapshot(ctx context.Context, server, queueName string) (*Snapshot, error)
	SnapshotMessages(ctx context.Context, snapshotID int64) ([]index.Message, error)
	DeleteSnapshot(ctx context.Context, snapshotID int64) error
	Close() error
}

// SnapshotRecord is a set of messages to be stored
type SnapshotRecord struct {
	Server    string
	QueueName string
	Source    Source
	TakenAt   time.Time
	Messages  []index.Message
}

// Snapshot is a stored snapshot without its messages
type Snapshot struct {
	ID           int64
	Server       string
	QueueName    string
	Source       Source
	MessageCount int
	TakenAt      time.Time
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the default or custom path
func NewStore(customPath string) (*SQLiteStore, error) {
	dbPath := customPath
	if dbPath == "" {
		dataDir, err := xdg.DataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "rmqtools.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the foreign_keys pragma in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to set pragmas: %w", err), db.Close())
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize schema: %w", err), db.Close())
	}

	return &SQLiteStore{db: db}, nil
}

// SanitizeURL removes the password from a server or AMQP URL for storage
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// SaveSnapshot stores rec and its messages in one transaction. Header order
// is kept in the stored JSON.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, rec *SnapshotRecord) (_ int64, err error) {
	takenAt := rec.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (server, queue_name, source, message_count, taken_at) VALUES (?, ?, ?, ?, ?)`,
		SanitizeURL(rec.Server), rec.QueueName, string(rec.Source), len(rec.Messages), takenAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_messages (snapshot_id, position, message_id, payload, headers_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range rec.Messages {
		if _, err := stmt.ExecContext(ctx, id, i, int64(m.ID), m.Payload, headersJSON(m.Headers)); err != nil {
			return 0, fmt.Errorf("insert message %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListSnapshots returns the most recent snapshots first
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int64) ([]Snapshot, error) {
	return s.scanSnapshots(ctx, `
SELECT id, server, queue_name, source, message_count, taken_at
FROM snapshots
ORDER BY taken_at DESC, id DESC
LIMIT ?`, limit)
}

// LatestSnapshot returns the newest snapshot of one queue on one server
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, server, queueName string) (*Snapshot, error) {
	snaps, err := s.scanSnapshots(ctx, `
SELECT id, server, queue_name, source, message_count, taken_at
FROM snapshots
WHERE server = ? AND queue_name = ?
ORDER BY taken_at DESC, id DESC
LIMIT 1`, SanitizeURL(server), queueName)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%s on %s: %w", queueName, server, ErrNotFound)
	}
	return &snaps[0], nil
}

// SnapshotMessages returns a snapshot's messages in their original order
func (s *SQLiteStore) SnapshotMessages(ctx context.Context, snapshotID int64) (_ []index.Message, err error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT message_id, payload, headers_json
FROM snapshot_messages
WHERE snapshot_id = ?
ORDER BY position`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	var messages []index.Message
	for rows.Next() {
		var (
			id      int64
			payload string
			headers sql.NullString
		)
		if err := rows.Scan(&id, &payload, &headers); err != nil {
			return nil, err
		}
		msg := index.Message{ID: uint64(id), Payload: payload}
		if headers.Valid {
			msg.Headers, err = index.DecodeHeaders([]byte(headers.String))
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", id, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteSnapshot removes a snapshot and its messages
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, snapshotID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, snapshotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %d: %w", snapshotID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) scanSnapshots(ctx context.Context, query string, args ...any) (_ []Snapshot, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	var snaps []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			source  string
			takenAt int64
		)
		if err := rows.Scan(&snap.ID, &snap.Server, &snap.QueueName, &source, &snap.MessageCount, &takenAt); err != nil {
			return nil, err
		}
		snap.Source = Source(source)
		snap.TakenAt = time.UnixMilli(takenAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func headersJSON(headers []index.Header) sql.NullString {
	if len(headers) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(index.EncodeHeaders(headers)), Valid: true}
}
