package killswitch

import (
	"sync"
	"testing"
)

func TestAnyActiveScopeBlocks(t *testing.T) {
	tests := []struct {
		name string
		set  func(*Manager)
	}{
		{"global", func(m *Manager) { m.Set(TypeGlobal, StateActive, "", "halt") }},
		{"symbol", func(m *Manager) { m.Set(TypeSymbolLevel, StateActive, "BTCUSDT", "volatility") }},
		{"risk limit", func(m *Manager) { m.Set(TypeRiskLimit, StateActive, "", "daily loss") }},
		{"manual", func(m *Manager) { m.Set(TypeManual, StateActive, "", "operator") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, nil)
			if m.IsActive("BTCUSDT") {
				t.Fatal("fresh manager reports active")
			}
			tt.set(m)
			if !m.IsActive("BTCUSDT") {
				t.Fatalf("%s scope did not block", tt.name)
			}
		})
	}
}

func TestSymbolScopeDoesNotBlockOtherSymbols(t *testing.T) {
	m := NewManager(nil, nil)
	m.Set(TypeSymbolLevel, StateActive, "BTCUSDT", "volatility")

	if !m.IsActive("BTCUSDT") {
		t.Fatal("targeted symbol not blocked")
	}
	if m.IsActive("ETHUSDT") {
		t.Fatal("unrelated symbol blocked by symbol-level switch")
	}
}

func TestActiveReasonPrecedence(t *testing.T) {
	m := NewManager(nil, nil)
	m.Set(TypeManual, StateActive, "", "operator")
	m.Set(TypeRiskLimit, StateActive, "", "limit")
	m.Set(TypeSymbolLevel, StateActive, "BTCUSDT", "vol")
	m.Set(TypeGlobal, StateActive, "", "halt")

	if got := m.ActiveReason("BTCUSDT"); got != TypeGlobal {
		t.Fatalf("reason=%s, expected GLOBAL to take precedence", got)
	}

	m.Set(TypeGlobal, StateOff, "", "resume")
	if got := m.ActiveReason("BTCUSDT"); got != TypeSymbolLevel {
		t.Fatalf("reason=%s, expected SYMBOL_LEVEL next", got)
	}

	m.Set(TypeSymbolLevel, StateOff, "BTCUSDT", "calm")
	if got := m.ActiveReason("BTCUSDT"); got != TypeRiskLimit {
		t.Fatalf("reason=%s, expected RISK_LIMIT next", got)
	}
}

func TestGetStateMostSevere(t *testing.T) {
	m := NewManager(nil, nil)
	if got := m.GetState("BTCUSDT"); got != StateOff {
		t.Fatalf("state=%s, expected OFF", got)
	}

	m.Set(TypeRiskLimit, StateWarning, "", "80% of daily loss")
	if got := m.GetState("BTCUSDT"); got != StateWarning {
		t.Fatalf("state=%s, expected WARNING", got)
	}
	if m.IsActive("BTCUSDT") {
		t.Fatal("WARNING must not block submissions")
	}

	m.Set(TypeGlobal, StateActive, "", "halt")
	if got := m.GetState("BTCUSDT"); got != StateActive {
		t.Fatalf("state=%s, expected ACTIVE", got)
	}
}

func TestHistoryIsAppendOnlyCopy(t *testing.T) {
	m := NewManager(nil, nil)
	m.Set(TypeGlobal, StateActive, "", "halt")
	m.Set(TypeGlobal, StateOff, "", "resume")

	h := m.History()
	if len(h) != 2 {
		t.Fatalf("history=%d, expected 2", len(h))
	}
	if h[0].State != StateActive || h[1].State != StateOff {
		t.Fatalf("history out of order: %+v", h)
	}

	// Mutating the returned slice must not affect internal state.
	h[0].Reason = "tampered"
	if m.History()[0].Reason != "halt" {
		t.Fatal("history mutated through the returned copy")
	}
}

func TestConcurrentSetAndRead(t *testing.T) {
	m := NewManager(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Set(TypeSymbolLevel, StateActive, "BTCUSDT", "x")
				m.Set(TypeSymbolLevel, StateOff, "BTCUSDT", "y")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IsActive("BTCUSDT")
				m.GetState("BTCUSDT")
			}
		}()
	}
	wg.Wait()

	if len(m.History()) != 8*200 {
		t.Fatalf("history=%d, expected %d entries", len(m.History()), 8*200)
	}
}
