package reconciliation

import "time"

// Status is the closed set of reconciliation verdicts.
type Status string

const (
	StatusMatched         Status = "MATCHED"
	StatusMismatch        Status = "MISMATCH"
	StatusPhantomPosition Status = "PHANTOM_POSITION"
	StatusMissingPosition Status = "MISSING_POSITION"
	StatusMissingSLTP     Status = "MISSING_SL_TP"
)

// Request describes the internally-expected state to verify against the
// broker. Expected values of zero mean "no expectation" for that field.
type Request struct {
	AdvisoryID           string
	Symbol               string
	OrderID              string
	ExpectedPositionSize float64
	ExpectedSL           float64
	ExpectedTP           float64
}

// Report is the outcome of one reconciliation pass. A report never triggers
// automatic correction; any discrepancy is flagged for a human.
type Report struct {
	AdvisoryID               string
	Timestamp                time.Time
	Status                   Status
	ObservedOrderState       string
	ObservedFillSize         float64
	ObservedPositionSize     float64
	ObservedSL               float64
	ObservedTP               float64
	Mismatches               []string
	RequiresManualResolution bool
}
