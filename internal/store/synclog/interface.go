// Package synclog is the durable, bounded diagnostics log: the last 100
// sync events, tagged by trigger. Background syncs have no UI at the moment
// of failure, so this log is their only user-visible outcome.
package synclog

import (
	"context"
	"time"
)

// MaxEntries bounds the log; older entries are trimmed on append.
const MaxEntries = 100

// Trigger tags a log entry with what initiated the work.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerBackground Trigger = "background"
	TriggerUpload     Trigger = "upload"
	TriggerStartup    Trigger = "startup"
)

type Entry struct {
	ID        int64
	Timestamp time.Time
	Trigger   Trigger
	Success   bool
	Message   string
}

type Repository interface {
	// Append records an event and trims the log to MaxEntries.
	Append(ctx context.Context, trigger Trigger, success bool, message string) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Clear empties the log.
	Clear(ctx context.Context) error
}
