package advisory

import (
	"testing"
	"time"
)

func testSnapshot() Snapshot {
	return Snapshot{
		AdvisoryID:   "ADV-1",
		Bias:         BiasLong,
		Mode:         "trend-follow",
		Symbol:       "BTCUSDT",
		Price:        150.0,
		SLOffsetPct:  -0.02,
		TPOffsetPct:  0.03,
		PositionSize: 1.5,
		ExpirationTS: time.Now().Add(10 * time.Minute),
		CreatedAt:    time.Now(),
	}
}

func TestValidateStructural(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr error
	}{
		{"valid", func(s *Snapshot) {}, nil},
		{"missing id", func(s *Snapshot) { s.AdvisoryID = "" }, ErrMissingAdvisoryID},
		{"missing bias", func(s *Snapshot) { s.Bias = "" }, ErrMissingBias},
		{"missing mode", func(s *Snapshot) { s.Mode = "" }, ErrMissingMode},
		{"missing expiration", func(s *Snapshot) { s.ExpirationTS = time.Time{} }, ErrMissingExpiration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot()
			tt.mutate(&snap)
			if err := snap.ValidateStructural(); err != tt.wantErr {
				t.Fatalf("ValidateStructural() = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestFreezeCarriesAllFields(t *testing.T) {
	snap := testSnapshot()
	frozen := Freeze(snap)

	if frozen.AdvisoryID() != snap.AdvisoryID {
		t.Errorf("AdvisoryID=%q, expected %q", frozen.AdvisoryID(), snap.AdvisoryID)
	}
	if frozen.Bias() != snap.Bias {
		t.Errorf("Bias=%q, expected %q", frozen.Bias(), snap.Bias)
	}
	if frozen.Mode() != snap.Mode {
		t.Errorf("Mode=%q, expected %q", frozen.Mode(), snap.Mode)
	}
	if frozen.Symbol() != snap.Symbol {
		t.Errorf("Symbol=%q, expected %q", frozen.Symbol(), snap.Symbol)
	}
	if frozen.ReferencePrice() != snap.Price {
		t.Errorf("ReferencePrice=%v, expected %v", frozen.ReferencePrice(), snap.Price)
	}
	if frozen.SLOffsetPct() != snap.SLOffsetPct {
		t.Errorf("SLOffsetPct=%v, expected %v", frozen.SLOffsetPct(), snap.SLOffsetPct)
	}
	if frozen.TPOffsetPct() != snap.TPOffsetPct {
		t.Errorf("TPOffsetPct=%v, expected %v", frozen.TPOffsetPct(), snap.TPOffsetPct)
	}
	if frozen.PositionSize() != snap.PositionSize {
		t.Errorf("PositionSize=%v, expected %v", frozen.PositionSize(), snap.PositionSize)
	}
	if !frozen.ExpirationTS().Equal(snap.ExpirationTS) {
		t.Errorf("ExpirationTS=%v, expected %v", frozen.ExpirationTS(), snap.ExpirationTS)
	}
}

// Mutating the source snapshot after freezing must not affect the contract.
func TestFrozenIsIndependentOfSource(t *testing.T) {
	snap := testSnapshot()
	frozen := Freeze(snap)
	before := frozen.ContentHash()

	snap.Price = 999
	snap.PositionSize = 42
	snap.AdvisoryID = "ADV-OTHER"

	if frozen.AdvisoryID() != "ADV-1" {
		t.Fatalf("frozen contract changed after source mutation")
	}
	if frozen.ContentHash() != before {
		t.Fatalf("content hash changed after source mutation")
	}
}

func TestContentHashStableAndDistinct(t *testing.T) {
	a := Freeze(testSnapshot())
	b := Freeze(testSnapshot())
	if a.ContentHash() != b.ContentHash() {
		t.Fatalf("identical contracts produced different hashes")
	}

	other := testSnapshot()
	other.PositionSize = 2.0
	c := Freeze(other)
	if c.ContentHash() == a.ContentHash() {
		t.Fatalf("distinct contracts produced identical hashes")
	}
}

func TestExpired(t *testing.T) {
	snap := testSnapshot()
	snap.ExpirationTS = time.Now().Add(-time.Second)
	frozen := Freeze(snap)
	if !frozen.Expired(time.Now()) {
		t.Fatalf("contract with past expiration not reported expired")
	}
	if frozen.Expired(snap.ExpirationTS) {
		t.Fatalf("expiration instant itself should not count as expired")
	}
}
