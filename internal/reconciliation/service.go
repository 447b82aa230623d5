// Package reconciliation compares internally-expected execution state
// against freshly queried broker state. It detects and flags; it never
// corrects. A mismatch requires a human.
package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/events"
	"execution-core/pkg/broker"
	"execution-core/pkg/db"
)

// sizeTolerance absorbs float noise in broker-reported quantities.
const sizeTolerance = 0.001

// Service performs a single-pass reconciliation per execution flow.
type Service struct {
	adapter  broker.Adapter
	database *db.Database // optional durable report mirror
	bus      *events.Bus  // optional mismatch notifications
}

// NewService creates a reconciliation service.
func NewService(adapter broker.Adapter, database *db.Database, bus *events.Bus) *Service {
	return &Service{adapter: adapter, database: database, bus: bus}
}

// Reconcile issues exactly two broker queries — order status once, open
// positions once — and compares them against the expected state. A failed
// query is itself a discrepancy: the state could not be verified, so the
// report is flagged for manual resolution.
func (s *Service) Reconcile(ctx context.Context, req Request) Report {
	report := Report{
		AdvisoryID: req.AdvisoryID,
		Timestamp:  time.Now().UTC(),
		Status:     StatusMatched,
	}

	status, err := s.adapter.GetOrderStatus(ctx, req.OrderID)
	if err != nil {
		report.addMismatch(StatusMismatch, fmt.Sprintf("order status query failed: %v", err))
	} else {
		report.ObservedOrderState = string(status.State)
		report.ObservedFillSize = status.FilledSize
		if req.ExpectedPositionSize > 0 && status.State == broker.StateFilled &&
			math.Abs(status.FilledSize-req.ExpectedPositionSize) > sizeTolerance {
			report.addMismatch(StatusMismatch, fmt.Sprintf(
				"order fill size %.6f differs from expected %.6f", status.FilledSize, req.ExpectedPositionSize))
		}
	}

	positions, err := s.adapter.GetPositions(ctx)
	if err != nil {
		report.addMismatch(StatusMismatch, fmt.Sprintf("positions query failed: %v", err))
	} else {
		s.comparePosition(req, positions, &report)
	}

	s.record(ctx, req, &report)
	return report
}

func (s *Service) comparePosition(req Request, positions []broker.Position, report *Report) {
	var found *broker.Position
	for i := range positions {
		if positions[i].Symbol == req.Symbol {
			found = &positions[i]
			break
		}
	}

	if found == nil {
		if req.ExpectedPositionSize > 0 {
			report.addMismatch(StatusMissingPosition, fmt.Sprintf(
				"expected position of %.6f %s, broker reports none", req.ExpectedPositionSize, req.Symbol))
		}
		return
	}

	report.ObservedPositionSize = found.Size
	report.ObservedSL = found.StopLoss
	report.ObservedTP = found.TakeProfit

	if req.ExpectedPositionSize == 0 {
		report.addMismatch(StatusPhantomPosition, fmt.Sprintf(
			"broker reports unexpected position of %.6f %s", found.Size, req.Symbol))
		return
	}

	if math.Abs(math.Abs(found.Size)-req.ExpectedPositionSize) > sizeTolerance {
		report.addMismatch(StatusMismatch, fmt.Sprintf(
			"position size %.6f differs from expected %.6f", found.Size, req.ExpectedPositionSize))
	}

	if req.ExpectedSL > 0 {
		switch {
		case found.StopLoss == 0:
			report.addMismatch(StatusMissingSLTP, fmt.Sprintf(
				"stop-loss missing, expected %.6f", req.ExpectedSL))
		case math.Abs(found.StopLoss-req.ExpectedSL) > sizeTolerance:
			report.addMismatch(StatusMismatch, fmt.Sprintf(
				"stop-loss %.6f differs from expected %.6f", found.StopLoss, req.ExpectedSL))
		}
	}
	if req.ExpectedTP > 0 {
		switch {
		case found.TakeProfit == 0:
			report.addMismatch(StatusMissingSLTP, fmt.Sprintf(
				"take-profit missing, expected %.6f", req.ExpectedTP))
		case math.Abs(found.TakeProfit-req.ExpectedTP) > sizeTolerance:
			report.addMismatch(StatusMismatch, fmt.Sprintf(
				"take-profit %.6f differs from expected %.6f", found.TakeProfit, req.ExpectedTP))
		}
	}
}

// addMismatch records one discrepancy. The first specific status (phantom,
// missing position, missing SL/TP) wins over the generic MISMATCH.
func (r *Report) addMismatch(status Status, description string) {
	r.Mismatches = append(r.Mismatches, description)
	r.RequiresManualResolution = true
	if r.Status == StatusMatched || r.Status == StatusMismatch {
		r.Status = status
	}
}

func (s *Service) record(ctx context.Context, req Request, report *Report) {
	if report.RequiresManualResolution {
		log.Printf("reconciliation: %s %s (%d discrepancies), manual resolution required",
			req.AdvisoryID, report.Status, len(report.Mismatches))
		if s.bus != nil {
			s.bus.Publish(events.EventReconciliationMismatch, *report)
		}
	} else {
		log.Printf("reconciliation: %s MATCHED", req.AdvisoryID)
	}

	if s.database != nil {
		mismatches, _ := json.Marshal(report.Mismatches)
		if err := s.database.CreateReconciliationReport(ctx, db.ReconciliationRow{
			ID:                       uuid.NewString(),
			AdvisoryID:               req.AdvisoryID,
			Status:                   string(report.Status),
			RequiresManualResolution: report.RequiresManualResolution,
			Mismatches:               string(mismatches),
			CreatedAt:                report.Timestamp,
		}); err != nil {
			log.Printf("reconciliation: persist report failed: %v", err)
		}
	}
}
