// Package approval implements the human-approval gate: the binary decision
// that freezes an advisory into an immutable execution contract. The gate is
// fail-closed — absence of an explicit APPROVED outcome always denies
// execution.
package approval

import (
	"fmt"
	"log"
	"sync"
	"time"

	"execution-core/internal/advisory"
	"execution-core/internal/events"
	"execution-core/pkg/db"
)

// Decision is published on the event bus after every approval call.
type Decision struct {
	AdvisoryID string
	ApproverID string
	Outcome    Outcome
	DecidedAt  time.Time
}

// Manager validates advisories, applies the binary human decision, and
// stores frozen contracts keyed by advisory id. Outcomes are write-once:
// every decided advisory — approved, rejected, or expired — is recorded,
// and no id can ever be decided twice.
type Manager struct {
	mu       sync.RWMutex
	approved map[string]advisory.Frozen
	outcomes map[string]Outcome

	audit *AuditLog
	bus   *events.Bus
	now   func() time.Time
}

// NewManager creates the approval gate. The database, when present, mirrors
// the audit ledger durably.
func NewManager(database *db.Database, bus *events.Bus) *Manager {
	return &Manager{
		approved: make(map[string]advisory.Frozen),
		outcomes: make(map[string]Outcome),
		audit:    NewAuditLog(database),
		bus:      bus,
		now:      time.Now,
	}
}

// Approve applies a human decision to an advisory.
//
// A structural validation failure (missing id/bias/mode/expiration) is a
// synchronous error; it is the only error this method returns, and nothing
// is logged or stored for it. Expiration and rejection are outcomes, not
// errors: an expired advisory yields EXPIRED regardless of the approve flag,
// a negative decision yields REJECTED, and neither stores a contract. Every
// non-error call appends exactly one audit entry.
func (m *Manager) Approve(snap advisory.Snapshot, approverID string, approve bool, reason string) (Outcome, error) {
	if err := snap.ValidateStructural(); err != nil {
		return "", err
	}
	if approverID == "" {
		return "", fmt.Errorf("approval: missing approver id")
	}

	now := m.now()

	m.mu.Lock()
	if prior, exists := m.outcomes[snap.AdvisoryID]; exists {
		m.mu.Unlock()
		return "", fmt.Errorf("approval: advisory %s already decided (%s)", snap.AdvisoryID, prior)
	}

	outcome := OutcomeRejected
	var frozen advisory.Frozen
	switch {
	case snap.Expired(now):
		outcome = OutcomeExpired
	case approve:
		outcome = OutcomeApproved
		frozen = advisory.Freeze(snap)
		m.approved[snap.AdvisoryID] = frozen
	}
	m.outcomes[snap.AdvisoryID] = outcome
	m.mu.Unlock()

	entry := AuditEntry{
		AdvisoryID:       snap.AdvisoryID,
		ApproverID:       approverID,
		RequestedAt:      snap.CreatedAt,
		DecidedAt:        now,
		Outcome:          outcome,
		Rationale:        reason,
		DecisionDuration: now.Sub(snap.CreatedAt),
	}
	if outcome == OutcomeApproved {
		entry.FrozenHash = frozen.ContentHash()
		entry.Frozen = frozen
	}
	m.audit.Append(entry)

	log.Printf("approval: %s decided %s by %s", snap.AdvisoryID, outcome, approverID)

	if m.bus != nil {
		m.bus.Publish(events.EventApprovalDecided, Decision{
			AdvisoryID: snap.AdvisoryID,
			ApproverID: approverID,
			Outcome:    outcome,
			DecidedAt:  now,
		})
	}
	return outcome, nil
}

// CanExecute reports whether the advisory may enter execution right now:
// an APPROVED outcome with a stored contract that has not expired since.
// Expiration is re-checked at call time, never cached.
func (m *Manager) CanExecute(advisoryID string) bool {
	m.mu.RLock()
	frozen, ok := m.approved[advisoryID]
	m.mu.RUnlock()
	return ok && !frozen.Expired(m.now())
}

// IsValid is the read-only form of the same predicate.
func (m *Manager) IsValid(advisoryID string) bool {
	return m.CanExecute(advisoryID)
}

// Frozen returns the stored execution contract for an approved advisory.
func (m *Manager) Frozen(advisoryID string) (advisory.Frozen, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	frozen, ok := m.approved[advisoryID]
	return frozen, ok
}

// AuditTrail returns approval decisions in chronological order as copies.
// An empty advisoryID returns the full trail.
func (m *Manager) AuditTrail(advisoryID string) []AuditEntry {
	return m.audit.Entries(advisoryID)
}
