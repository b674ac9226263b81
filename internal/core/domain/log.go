package domain

import "time"

// LogCategory groups log entries by the component that produced them.
type LogCategory string

const (
	// CategoryCrawler is used for run lifecycle and per-identifier events.
	CategoryCrawler LogCategory = "crawler"
	// CategoryAPI is used for the API request audit trail.
	CategoryAPI LogCategory = "api"
	// CategorySystem is used for operator actions and maintenance.
	CategorySystem LogCategory = "system"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogEntry is an append-only event record.
type LogEntry struct {
	// ID is assigned by the store.
	ID int64

	// Category identifies the producing component.
	Category LogCategory

	// Level is the severity.
	Level LogLevel

	// Message is the human-readable event text.
	Message string

	// Detail carries optional extra data (error text, JSON statistics).
	Detail string

	// Reference correlates the entry with a run (see RunReference).
	Reference string

	// Subject is the natural key of the entity the entry is about, if any.
	Subject string

	// CreatedAt is when the entry was appended.
	CreatedAt time.Time
}

// LogFilter selects log entries by reference. Empty Categories and Subject
// match any value; a Limit <= 0 returns every match.
type LogFilter struct {
	Reference  string
	Categories []LogCategory
	Subject    string
	Limit      int
}

// Matches reports whether e passes the filter, ignoring Limit.
func (f LogFilter) Matches(e *LogEntry) bool {
	if e.Reference != f.Reference {
		return false
	}
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if e.Category == c {
			return true
		}
	}
	return false
}

// RequestRecord is the audit record of one API request.
type RequestRecord struct {
	Method   string
	Endpoint string
	Status   int
	Duration time.Duration
	Err      error
}
