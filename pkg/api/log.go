package api

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// LogPageSize is the number of entries returned per log page.
const LogPageSize = 100

// LogEntry is one write-once audit record.
//
// Seq is assigned by the store on append and orders entries; reads are
// newest-first.
type LogEntry struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	WizardID  string    `json:"wizard"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLogEntry stamps a new entry with a ULID and the current time.
func NewLogEntry(wizardID, action, user, message string) LogEntry {
	now := time.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return LogEntry{
		ID:        id.String(),
		WizardID:  wizardID,
		Action:    action,
		User:      user,
		Message:   message,
		CreatedAt: now,
	}
}
