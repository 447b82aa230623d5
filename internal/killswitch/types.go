package killswitch

import "time"

// Type identifies the scope of a switch.
type Type string

const (
	TypeGlobal      Type = "GLOBAL"
	TypeSymbolLevel Type = "SYMBOL_LEVEL"
	TypeRiskLimit   Type = "RISK_LIMIT"
	TypeManual      Type = "MANUAL"
)

// State is the activation level of a switch.
type State string

const (
	StateOff     State = "OFF"
	StateWarning State = "WARNING"
	StateActive  State = "ACTIVE"
)

// Activation is one immutable history entry of a switch transition.
type Activation struct {
	Type      Type
	State     State
	Target    string // symbol for SYMBOL_LEVEL, empty otherwise
	Reason    string
	Timestamp time.Time
}
