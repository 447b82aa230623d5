// Package advisory defines the advisory snapshot produced upstream and the
// frozen execution contract derived from it on approval. The frozen contract
// is the only input the execution engine accepts.
package advisory

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Bias denotes the directional bias of an advisory.
type Bias string

const (
	BiasLong  Bias = "LONG"
	BiasShort Bias = "SHORT"
)

// Snapshot is an advisory awaiting human disposition. It is produced by an
// upstream collaborator and read-only to this core; the expiration timestamp
// is pre-computed externally and never recomputed here.
type Snapshot struct {
	AdvisoryID    string
	Bias          Bias
	Mode          string // reasoning mode chosen upstream
	Symbol        string
	Price         float64 // reference price at advisory creation
	SLOffsetPct   float64 // fractional, expected in (-1, 0)
	TPOffsetPct   float64 // fractional, expected in (0, 1)
	PositionSize  float64
	ExpirationTS  time.Time
	CreatedAt     time.Time
	ReasoningNote string // free-form context, forensic only
}

// Expired reports whether the advisory is stale at the given instant.
func (s Snapshot) Expired(now time.Time) bool {
	return now.After(s.ExpirationTS)
}

var (
	ErrMissingAdvisoryID = errors.New("advisory: missing advisory id")
	ErrMissingBias       = errors.New("advisory: missing directional bias")
	ErrMissingMode       = errors.New("advisory: missing reasoning mode")
	ErrMissingExpiration = errors.New("advisory: missing expiration timestamp")
)

// ValidateStructural checks the fields the approval gate requires to be
// present. Absence is a programming/integration error, not an outcome.
func (s Snapshot) ValidateStructural() error {
	if s.AdvisoryID == "" {
		return ErrMissingAdvisoryID
	}
	if s.Bias == "" {
		return ErrMissingBias
	}
	if s.Mode == "" {
		return ErrMissingMode
	}
	if s.ExpirationTS.IsZero() {
		return ErrMissingExpiration
	}
	return nil
}

// Frozen is the immutable execution contract. Fields are set once at
// construction and exposed only through read accessors; there are no
// setters and the struct is always passed by value. The reference price is
// informational only: stop-loss and take-profit are computed from the actual
// fill price at execution time, never from it.
type Frozen struct {
	advisoryID     string
	bias           Bias
	mode           string
	symbol         string
	referencePrice float64
	slOffsetPct    float64
	tpOffsetPct    float64
	positionSize   float64
	expirationTS   time.Time
	createdAt      time.Time
}

// Freeze builds the execution contract from an approved advisory.
func Freeze(s Snapshot) Frozen {
	return Frozen{
		advisoryID:     s.AdvisoryID,
		bias:           s.Bias,
		mode:           s.Mode,
		symbol:         s.Symbol,
		referencePrice: s.Price,
		slOffsetPct:    s.SLOffsetPct,
		tpOffsetPct:    s.TPOffsetPct,
		positionSize:   s.PositionSize,
		expirationTS:   s.ExpirationTS,
		createdAt:      s.CreatedAt,
	}
}

func (f Frozen) AdvisoryID() string      { return f.advisoryID }
func (f Frozen) Bias() Bias              { return f.bias }
func (f Frozen) Mode() string            { return f.mode }
func (f Frozen) Symbol() string          { return f.symbol }
func (f Frozen) ReferencePrice() float64 { return f.referencePrice }
func (f Frozen) SLOffsetPct() float64    { return f.slOffsetPct }
func (f Frozen) TPOffsetPct() float64    { return f.tpOffsetPct }
func (f Frozen) PositionSize() float64   { return f.positionSize }
func (f Frozen) ExpirationTS() time.Time { return f.expirationTS }
func (f Frozen) CreatedAt() time.Time    { return f.createdAt }

// Expired reports whether the contract is stale at the given instant.
func (f Frozen) Expired(now time.Time) bool {
	return now.After(f.expirationTS)
}

// IsZero reports whether the contract was never constructed.
func (f Frozen) IsZero() bool {
	return f.advisoryID == ""
}

// ContentHash returns a SHA-256 digest over a canonical rendering of every
// contract field, used for forensic linkage in the execution log.
func (f Frozen) ContentHash() string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%.10f|%.10f|%.10f|%.10f|%d|%d",
		f.advisoryID, f.bias, f.mode, f.symbol,
		f.referencePrice, f.slOffsetPct, f.tpOffsetPct, f.positionSize,
		f.expirationTS.UTC().UnixNano(), f.createdAt.UTC().UnixNano(),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
