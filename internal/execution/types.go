package execution

import (
	"time"

	"execution-core/internal/reconciliation"
)

// Stage is the closed set of execution states. SUBMITTED and PENDING are
// internal; the remainder are terminal.
type Stage string

const (
	StageSubmitted        Stage = "SUBMITTED"
	StagePending          Stage = "PENDING"
	StageFilled           Stage = "FILLED"
	StageExecutedFullLate Stage = "EXECUTED_FULL_LATE"
	StageCancelled        Stage = "CANCELLED"
	StageFailed           Stage = "FAILED"
	StageFailedTimeout    Stage = "FAILED_TIMEOUT"
	StageRejected         Stage = "REJECTED"
)

// Attempt records one order submission and its lifetime. There are no
// automatic retries today, so a flow carries at most one attempt; the record
// keeps retry bookkeeping for forensic completeness.
type Attempt struct {
	OrderID      string
	SubmittedAt  time.Time
	FilledAt     time.Time
	FillPrice    float64
	FillSize     float64
	StopLoss     float64
	TakeProfit   float64
	SlippagePct  float64
	RetryCount   int
	RetryReasons []string
}

// Result is the terminal outcome of one execution flow. Execute never
// returns an error: every failure path terminates here with a populated
// Error message.
type Result struct {
	AdvisoryID      string
	Stage           Stage
	OrderID         string
	FillPrice       float64
	FillSize        float64
	StopLoss        float64
	TakeProfit      float64
	SlippagePct     float64
	Duration        time.Duration
	KillSwitchState string
	Attempts        []Attempt
	Reconciliation  *reconciliation.Report
	Error           string
}
