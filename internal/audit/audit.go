// Package audit records confirmed record mutations in a hash-chained activity
// log so that edits to past entries are detectable.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/denguewatch/denguewatch/internal/logging"
)

// Actions written to the log.
const (
	ActionCreate = "record.create"
	ActionUpdate = "record.update"
	ActionDelete = "record.delete"
	ActionImport = "record.import"
)

// Entry is one activity log line.
type Entry struct {
	Seq      int64           `json:"seq"`
	At       time.Time       `json:"at"`
	Action   string          `json:"action"`
	RecordID string          `json:"record_id,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
	PrevHash string          `json:"prev_hash"`
	Hash     string          `json:"hash"`
}

// Sink persists entries. Implementations assign Seq.
type Sink interface {
	LastActivityHash(ctx context.Context) (string, error)
	AppendActivity(ctx context.Context, e Entry) (Entry, error)
	ListActivity(ctx context.Context, limit int) ([]Entry, error)
}

// Logger appends entries to a Sink with hash chaining.
type Logger struct {
	sink Sink
	log  *logging.Logger
	mu   sync.Mutex // serial hash chaining
}

// NewLogger creates a new activity logger.
func NewLogger(sink Sink, log *logging.Logger) *Logger {
	return &Logger{sink: sink, log: log}
}

// Log records an action on a record. detail is marshalled to JSON and may be
// nil. A failure to write the log is returned but never undoes the mutation
// that was already confirmed.
func (l *Logger) Log(ctx context.Context, action, recordID string, detail any) (*Entry, error) {
	var raw json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return nil, fmt.Errorf("encoding activity detail: %w", err)
		}
		raw = b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash, err := l.sink.LastActivityHash(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading last activity hash: %w", err)
	}

	e := Entry{
		At:       time.Now().UTC().Truncate(time.Microsecond),
		Action:   action,
		RecordID: recordID,
		Detail:   raw,
		PrevHash: prevHash,
	}
	e.Hash = computeHash(e)

	saved, err := l.sink.AppendActivity(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("appending activity: %w", err)
	}
	l.log.Debug("activity recorded", "action", action, "record_id", recordID, "seq", saved.Seq)
	return &saved, nil
}

// Recent returns up to limit entries, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return l.sink.ListActivity(ctx, limit)
}

// computeHash is SHA-256 over the previous hash and the entry contents.
func computeHash(e Entry) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		e.PrevHash,
		e.At.UTC().Format(time.RFC3339Nano),
		e.Action,
		e.RecordID,
		string(e.Detail),
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Verify checks a chain given oldest first and returns an error naming the
// first entry whose hash or link does not match.
func Verify(entries []Entry) error {
	prev := ""
	for i, e := range entries {
		if i > 0 && e.PrevHash != prev {
			return fmt.Errorf("entry %d: broken link to previous entry", e.Seq)
		}
		if computeHash(e) != e.Hash {
			return fmt.Errorf("entry %d: hash mismatch", e.Seq)
		}
		prev = e.Hash
	}
	return nil
}
