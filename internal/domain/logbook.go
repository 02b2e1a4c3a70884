package domain

import (
	"strings"
	"time"
)

// LogbookCollection holds the front-desk logbook entries
const LogbookCollection = "logbook"

// LogPriority ranks a logbook entry
type LogPriority string

const (
	PriorityInfo      LogPriority = "info"
	PriorityImportant LogPriority = "important"
	PriorityUrgent    LogPriority = "urgent"
)

// ParseLogPriority maps unknown values to info
func ParseLogPriority(value string) LogPriority {
	switch LogPriority(value) {
	case PriorityImportant, PriorityUrgent:
		return LogPriority(value)
	}
	return PriorityInfo
}

// LogTarget is the audience of a logbook entry
type LogTarget string

const (
	TargetAll          LogTarget = "all"
	TargetManagement   LogTarget = "management"
	TargetHousekeeping LogTarget = "housekeeping"
	TargetMaintenance  LogTarget = "maintenance"
)

// ParseLogTarget maps unknown values to all
func ParseLogTarget(value string) LogTarget {
	switch LogTarget(value) {
	case TargetManagement, TargetHousekeeping, TargetMaintenance:
		return LogTarget(value)
	}
	return TargetAll
}

// LogStatus is the visibility state of an entry. Entries are never hard-deleted.
type LogStatus string

const (
	StatusActive   LogStatus = "active"
	StatusArchived LogStatus = "archived"
)

// LogEntry is one message of the logbook
type LogEntry struct {
	ID        string      `json:"id"`
	Author    string      `json:"author"`
	Message   string      `json:"message"`
	Priority  LogPriority `json:"priority"`
	Target    LogTarget   `json:"target"`
	Status    LogStatus   `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	ReadBy    []string    `json:"readBy"`
}

// LogEntryPath returns the document path of an entry
func LogEntryPath(id string) string {
	return JoinPath(LogbookCollection, id)
}

// LogEntryFromSnapshot decodes a stored entry
func LogEntryFromSnapshot(snap DocumentSnapshot) LogEntry {
	d := snap.Data
	e := LogEntry{
		ID:        snap.ID(),
		Author:    stringField(d, "author", ""),
		Message:   stringField(d, "message", ""),
		Priority:  ParseLogPriority(stringField(d, "priority", "")),
		Target:    ParseLogTarget(stringField(d, "target", "")),
		Status:    StatusActive,
		Timestamp: timeField(d, "timestamp"),
		ReadBy:    stringSetField(d, "readBy"),
	}
	if stringField(d, "status", "") == string(StatusArchived) {
		e.Status = StatusArchived
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = snap.CreatedAt
	}
	if e.ReadBy == nil {
		e.ReadBy = []string{}
	}
	return e
}

// LogEntriesFromQuery decodes a collection snapshot, keeping its order
func LogEntriesFromQuery(snap QuerySnapshot) []LogEntry {
	entries := make([]LogEntry, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		entries = append(entries, LogEntryFromSnapshot(doc))
	}
	return entries
}

// Document returns the creation document of the entry
func (e LogEntry) Document() Document {
	readBy := make([]any, len(e.ReadBy))
	for i, uid := range e.ReadBy {
		readBy[i] = uid
	}
	return Document{
		"author":    e.Author,
		"message":   e.Message,
		"priority":  string(e.Priority),
		"target":    string(e.Target),
		"status":    string(e.Status),
		"timestamp": ServerTimestamp,
		"readBy":    readBy,
	}
}

// QuickFilter narrows the logbook view
type QuickFilter string

const (
	QuickFilterAll       QuickFilter = "ALL"
	QuickFilterUrgent    QuickFilter = "URGENT"
	QuickFilterImportant QuickFilter = "IMPORTANT"
	QuickFilterMine      QuickFilter = "MINE"
)

// LogFilter parameterises FilterLog
type LogFilter struct {
	ShowArchived           bool
	SearchText             string
	QuickFilter            QuickFilter
	CurrentUserDisplayName string
}

// FilterLog returns the entries matching the filter in their original order.
// Archive partition, then text search, then the quick filter.
func FilterLog(entries []LogEntry, filter LogFilter) []LogEntry {
	search := strings.ToLower(filter.SearchText)
	out := make([]LogEntry, 0, len(entries))

	for _, e := range entries {
		if filter.ShowArchived != (e.Status == StatusArchived) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Message), search) &&
			!strings.Contains(strings.ToLower(e.Author), search) {
			continue
		}
		switch filter.QuickFilter {
		case QuickFilterUrgent:
			if e.Priority != PriorityUrgent {
				continue
			}
		case QuickFilterImportant:
			if e.Priority != PriorityImportant {
				continue
			}
		case QuickFilterMine:
			if e.Author != filter.CurrentUserDisplayName {
				continue
			}
		}
		out = append(out, e)
	}

	return out
}

// Archive returns the entry with status archived
func Archive(e LogEntry) LogEntry {
	e.Status = StatusArchived
	return e
}

// Unarchive returns the entry with status active
func Unarchive(e LogEntry) LogEntry {
	e.Status = StatusActive
	return e
}

// MarkRead returns the entry with uid added to readBy. Idempotent.
func MarkRead(e LogEntry, uid string) LogEntry {
	for _, r := range e.ReadBy {
		if r == uid {
			return e
		}
	}
	readBy := make([]string, len(e.ReadBy), len(e.ReadBy)+1)
	copy(readBy, e.ReadBy)
	e.ReadBy = append(readBy, uid)
	return e
}

// IsReadBy reports whether uid has read the entry
func (e LogEntry) IsReadBy(uid string) bool {
	for _, r := range e.ReadBy {
		if r == uid {
			return true
		}
	}
	return false
}
