// Package killswitch implements the tri-scope circuit breaker that gates new
// order submissions. Switches never force-close open positions: an active
// switch only blocks future submissions.
package killswitch

import (
	"context"
	"log"
	"sync"
	"time"

	"execution-core/internal/events"
	"execution-core/pkg/db"
)

// Manager holds the effective state of every switch scope plus an
// append-only activation history. It is safe for concurrent use by many
// in-flight execution flows; reads are lock-shared, writes exclusive.
type Manager struct {
	mu        sync.RWMutex
	global    State
	riskLimit State
	manual    State
	symbols   map[string]State
	history   []Activation

	database *db.Database // optional durable mirror of the history
	bus      *events.Bus  // optional change notifications
}

// NewManager creates a kill-switch manager with all scopes OFF.
func NewManager(database *db.Database, bus *events.Bus) *Manager {
	return &Manager{
		global:    StateOff,
		riskLimit: StateOff,
		manual:    StateOff,
		symbols:   make(map[string]State),
		database:  database,
		bus:       bus,
	}
}

// Set transitions a switch and records an immutable history entry. Target is
// required for SYMBOL_LEVEL and ignored for the other scopes.
func (m *Manager) Set(typ Type, state State, target, reason string) Activation {
	entry := Activation{
		Type:      typ,
		State:     state,
		Target:    target,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	m.mu.Lock()
	switch typ {
	case TypeGlobal:
		m.global = state
	case TypeSymbolLevel:
		m.symbols[target] = state
	case TypeRiskLimit:
		m.riskLimit = state
	case TypeManual:
		m.manual = state
	}
	m.history = append(m.history, entry)
	m.mu.Unlock()

	log.Printf("killswitch: %s -> %s target=%q reason=%q", typ, state, target, reason)

	if m.database != nil {
		if err := m.database.AppendKillSwitchEvent(context.Background(), db.KillSwitchEventRow{
			SwitchType: string(typ),
			State:      string(state),
			Target:     target,
			Reason:     reason,
			CreatedAt:  entry.Timestamp,
		}); err != nil {
			log.Printf("killswitch: persist event failed: %v", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(events.EventKillSwitchChanged, entry)
	}
	return entry
}

// IsActive reports whether any scope blocks a new submission for the symbol.
// Any active scope blocks; precedence only affects the reported reason.
func (m *Manager) IsActive(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.global == StateActive ||
		m.symbols[symbol] == StateActive ||
		m.riskLimit == StateActive ||
		m.manual == StateActive
}

// ActiveReason returns the highest-precedence active scope for reporting:
// global over symbol-level over risk-limit/manual. Empty when nothing is
// active.
func (m *Manager) ActiveReason(symbol string) Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.global == StateActive:
		return TypeGlobal
	case m.symbols[symbol] == StateActive:
		return TypeSymbolLevel
	case m.riskLimit == StateActive:
		return TypeRiskLimit
	case m.manual == StateActive:
		return TypeManual
	}
	return ""
}

// GetState returns the effective state for a symbol: the most severe state
// across scopes (ACTIVE > WARNING > OFF).
func (m *Manager) GetState(symbol string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := []State{m.global, m.symbols[symbol], m.riskLimit, m.manual}
	effective := StateOff
	for _, s := range states {
		if s == StateActive {
			return StateActive
		}
		if s == StateWarning {
			effective = StateWarning
		}
	}
	return effective
}

// History returns a copy of the activation history, oldest first.
func (m *Manager) History() []Activation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Activation, len(m.history))
	copy(out, m.history)
	return out
}
