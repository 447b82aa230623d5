package approval

// Outcome is the closed set of approval results. INVALIDATED and PENDING are
// reserved for upstream tooling and never produced by the enforced path.
type Outcome string

const (
	OutcomeApproved    Outcome = "APPROVED"
	OutcomeRejected    Outcome = "REJECTED"
	OutcomeExpired     Outcome = "EXPIRED"
	OutcomeInvalidated Outcome = "INVALIDATED" // reserved
	OutcomePending     Outcome = "PENDING"     // reserved
)
