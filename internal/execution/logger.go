package execution

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/pkg/db"
)

// LogEvent enumerates the forensic record types of the execution log.
type LogEvent string

const (
	LogExecutionStart  LogEvent = "execution_start"
	LogOrderSubmitted  LogEvent = "order_submitted"
	LogOrderFilled     LogEvent = "order_filled"
	LogTimeout         LogEvent = "timeout"
	LogKillSwitchAbort LogEvent = "kill_switch_abort"
	LogExecutionResult LogEvent = "execution_result"
)

// LogEntry is one immutable execution log record.
type LogEntry struct {
	ID         string
	AdvisoryID string
	Event      LogEvent
	Details    map[string]any
	Timestamp  time.Time
}

// Logger is the append-only execution ledger. Appends are
// writer-serialized; retrieval returns copies and no entry is ever edited
// or removed.
type Logger struct {
	mu       sync.RWMutex
	entries  []LogEntry
	database *db.Database // optional durable mirror
}

// NewLogger creates an execution logger, optionally mirrored to sqlite.
func NewLogger(database *db.Database) *Logger {
	return &Logger{database: database}
}

// Record appends one entry. Mirror failures never block an execution flow.
func (l *Logger) Record(advisoryID string, event LogEvent, details map[string]any) {
	entry := LogEntry{
		ID:         uuid.NewString(),
		AdvisoryID: advisoryID,
		Event:      event,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.database != nil {
		payload, _ := json.Marshal(details)
		if err := l.database.AppendExecutionLog(context.Background(), db.ExecutionLogRow{
			ID:         entry.ID,
			AdvisoryID: advisoryID,
			Event:      string(event),
			Details:    string(payload),
			CreatedAt:  entry.Timestamp,
		}); err != nil {
			log.Printf("execution: persist log entry failed: %v", err)
		}
	}
}

// Entries returns log entries in append order. An empty advisoryID returns
// everything. Detail maps are copied so callers cannot mutate the ledger.
func (l *Logger) Entries(advisoryID string) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if advisoryID != "" && e.AdvisoryID != advisoryID {
			continue
		}
		cp := e
		if e.Details != nil {
			cp.Details = make(map[string]any, len(e.Details))
			for k, v := range e.Details {
				cp.Details[k] = v
			}
		}
		out = append(out, cp)
	}
	return out
}
