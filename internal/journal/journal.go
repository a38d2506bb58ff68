// Package journal keeps an append-only audit trail of deletion attempts.
// Every attempt is written before it runs and again once its outcome is
// known, so a crashed run can be reconstructed afterwards.
//
// Two drivers exist: "jsonl" appends one JSON object per line to a file,
// "sqlite" inserts rows into the deletion_journal table.
package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/purge"
)

// Phase tells whether an entry precedes or follows an attempt.
type Phase string

const (
	PhaseAttempt Phase = "attempt"
	PhaseOutcome Phase = "outcome"
)

// Entry is one journal record.
type Entry struct {
	RunID     string    `json:"run_id" db:"run_id"`
	Time      time.Time `json:"time" db:"recorded_at"`
	Phase     Phase     `json:"phase" db:"phase"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	ChatName  string    `json:"chat_name" db:"chat_name"`
	MessageID int       `json:"message_id" db:"message_id"`
	DryRun    bool      `json:"dry_run" db:"dry_run"`
	Status    string    `json:"status,omitempty" db:"status"`
	Failure   string    `json:"failure,omitempty" db:"failure"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
}

// Writer stores entries.
type Writer interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// Config selects and places the journal.
type Config struct {
	Driver string // jsonl, sqlite
	Dir    string
}

// Open creates the writer for cfg. File names carry the start time.
func Open(cfg Config, startedAt time.Time) (Writer, string, error) {
	ts := startedAt.Format(constants.FileTimestampLayout)
	switch strings.ToLower(cfg.Driver) {
	case "", "jsonl":
		path := filepath.Join(cfg.Dir, fmt.Sprintf("deletion_%s.jsonl", ts))
		w, err := OpenJSONL(path)
		return w, path, err
	case "sqlite":
		path := filepath.Join(cfg.Dir, "journal.db")
		w, err := OpenSQLite(path)
		return w, path, err
	default:
		return nil, "", fmt.Errorf("unknown journal driver: %s", cfg.Driver)
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Recorder adapts a Writer to the deleter's journal hooks.
type Recorder struct {
	w     Writer
	runID string
	now   func() time.Time
}

// NewRecorder binds w to one run.
func NewRecorder(w Writer, runID string) *Recorder {
	return &Recorder{w: w, runID: runID, now: time.Now}
}

// RunID returns the run identifier stamped on every entry.
func (r *Recorder) RunID() string {
	return r.runID
}

// Attempt records that a deletion is about to be tried.
func (r *Recorder) Attempt(ctx context.Context, chat purge.ChatGroup, messageID int, dryRun bool) error {
	return r.w.Record(ctx, Entry{
		RunID:     r.runID,
		Time:      r.now().UTC(),
		Phase:     PhaseAttempt,
		ChatID:    chat.ChatID,
		ChatName:  chat.ChatName,
		MessageID: messageID,
		DryRun:    dryRun,
	})
}

// Outcome records the terminal state of an attempt.
func (r *Recorder) Outcome(ctx context.Context, o purge.Outcome, dryRun bool) error {
	return r.w.Record(ctx, Entry{
		RunID:     r.runID,
		Time:      r.now().UTC(),
		Phase:     PhaseOutcome,
		ChatID:    o.ChatID,
		ChatName:  o.ChatName,
		MessageID: o.MessageID,
		DryRun:    dryRun,
		Status:    string(o.Status),
		Failure:   o.Failure.String(),
		Detail:    o.Detail,
	})
}

var _ purge.Journal = (*Recorder)(nil)
