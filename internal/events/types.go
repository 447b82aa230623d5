package events

// Event enumerates high-level topics inside the execution core.
type Event string

const (
	EventApprovalDecided        Event = "approval.decided"
	EventOrderSubmitted         Event = "order.submitted"
	EventOrderFilled            Event = "order.filled"
	EventExecutionResult        Event = "execution.result"
	EventKillSwitchChanged      Event = "killswitch.changed"
	EventReconciliationMismatch Event = "reconciliation.mismatch"
)
