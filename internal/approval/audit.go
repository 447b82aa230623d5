package approval

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/advisory"
	"execution-core/pkg/db"
)

// AuditEntry is one immutable approval decision record. Entries are never
// edited or removed once appended.
type AuditEntry struct {
	ID               string
	AdvisoryID       string
	ApproverID       string
	RequestedAt      time.Time // when the advisory was created upstream
	DecidedAt        time.Time
	Outcome          Outcome
	Rationale        string
	DecisionDuration time.Duration
	FrozenHash       string          // set only for APPROVED
	Frozen           advisory.Frozen // zero value unless APPROVED
}

// AuditLog is the append-only ledger of approval decisions. Appends are
// writer-serialized; reads return copies so callers cannot mutate internal
// state through the result.
type AuditLog struct {
	mu       sync.RWMutex
	entries  []AuditEntry
	database *db.Database // optional durable mirror
}

// NewAuditLog creates an audit log, optionally mirrored to sqlite.
func NewAuditLog(database *db.Database) *AuditLog {
	return &AuditLog{database: database}
}

// Append records one decision. The in-memory ledger is authoritative for
// reads within the process; the sqlite mirror is best-effort and failures
// never block the decision path.
func (l *AuditLog) Append(e AuditEntry) AuditEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if l.database != nil {
		row := db.ApprovalAuditRow{
			ID:          e.ID,
			AdvisoryID:  e.AdvisoryID,
			ApproverID:  e.ApproverID,
			Outcome:     string(e.Outcome),
			Rationale:   e.Rationale,
			RequestedAt: e.RequestedAt,
			DecidedAt:   e.DecidedAt,
			DecisionMs:  e.DecisionDuration.Milliseconds(),
			FrozenHash:  e.FrozenHash,
		}
		if !e.Frozen.IsZero() {
			row.FrozenState = frozenJSON(e.Frozen)
		}
		if err := l.database.AppendApprovalAudit(context.Background(), row); err != nil {
			log.Printf("approval: persist audit entry failed: %v", err)
		}
	}
	return e
}

// Entries returns audit entries in chronological order. An empty advisoryID
// returns the full trail.
func (l *AuditLog) Entries(advisoryID string) []AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AuditEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if advisoryID == "" || e.AdvisoryID == advisoryID {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of entries written so far.
func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// frozenJSON renders the contract for the durable mirror. Accessor-based so
// the contract itself stays sealed.
func frozenJSON(f advisory.Frozen) string {
	b, err := json.Marshal(map[string]any{
		"advisory_id":     f.AdvisoryID(),
		"bias":            f.Bias(),
		"mode":            f.Mode(),
		"symbol":          f.Symbol(),
		"reference_price": f.ReferencePrice(),
		"sl_offset_pct":   f.SLOffsetPct(),
		"tp_offset_pct":   f.TPOffsetPct(),
		"position_size":   f.PositionSize(),
		"expiration_ts":   f.ExpirationTS().UTC(),
		"created_at":      f.CreatedAt().UTC(),
	})
	if err != nil {
		return ""
	}
	return string(b)
}
