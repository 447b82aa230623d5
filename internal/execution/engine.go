// Package execution drives a frozen execution contract through submission,
// fill-wait, settlement, and reconciliation under strict safety
// enforcement: kill-switch gating, an immutable 30-second budget, and a
// single reconciliation pass per flow.
package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/advisory"
	"execution-core/internal/events"
	"execution-core/internal/killswitch"
	"execution-core/internal/monitor"
	"execution-core/internal/reconciliation"
	"execution-core/pkg/broker"
	"execution-core/pkg/db"
)

// defaultPollInterval is the fill-wait poll cadence.
const defaultPollInterval = 100 * time.Millisecond

// Engine consumes frozen contracts and produces terminal results. All
// collaborators are explicit constructor dependencies; the engine holds no
// process-wide state, so independent instances are independently testable.
type Engine struct {
	adapter  broker.Adapter
	switches *killswitch.Manager
	recon    *reconciliation.Service
	logger   *Logger
	bus      *events.Bus            // optional
	database *db.Database           // optional terminal-result mirror
	metrics  *monitor.SystemMetrics // optional

	pollInterval time.Duration
	now          func() time.Time
	sizeLimits   map[string]float64 // per-symbol position size caps, wired at startup

	mu    sync.Mutex
	flows map[string]struct{} // claimed advisory ids, never released
}

// NewEngine creates an execution engine.
func NewEngine(adapter broker.Adapter, switches *killswitch.Manager, recon *reconciliation.Service, logger *Logger, bus *events.Bus, database *db.Database, metrics *monitor.SystemMetrics) *Engine {
	return &Engine{
		adapter:      adapter,
		switches:     switches,
		recon:        recon,
		logger:       logger,
		bus:          bus,
		database:     database,
		metrics:      metrics,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		sizeLimits:   make(map[string]float64),
		flows:        make(map[string]struct{}),
	}
}

// SetSizeLimit caps the position size accepted for a symbol. Limits are
// wiring-time configuration, applied before the first flow; zero or
// negative values are ignored.
func (e *Engine) SetSizeLimit(symbol string, max float64) {
	if max <= 0 {
		return
	}
	e.sizeLimits[symbol] = max
}

// Execute runs one flow for a frozen contract. It never returns an error:
// every failure path terminates in a typed Result with a populated Error.
// At most one flow ever runs per advisory id; the frozen contract is read
// exactly once and never altered.
func (e *Engine) Execute(ctx context.Context, frozen advisory.Frozen) Result {
	advisoryID := frozen.AdvisoryID()
	result := Result{
		AdvisoryID:      advisoryID,
		KillSwitchState: string(e.switches.GetState(frozen.Symbol())),
	}
	flowStart := e.now()

	if !e.claim(advisoryID) {
		result.Stage = StageRejected
		result.Error = fmt.Sprintf("execution already started for advisory %s", advisoryID)
		return result
	}

	e.logger.Record(advisoryID, LogExecutionStart, map[string]any{
		"content_hash": frozen.ContentHash(),
		"symbol":       frozen.Symbol(),
		"bias":         string(frozen.Bias()),
	})
	if e.metrics != nil {
		e.metrics.IncrementFlows()
	}

	// 1. Preconditions. A failed contract never reaches the broker.
	if err := e.validate(frozen); err != nil {
		result.Stage = StageRejected
		result.Error = err.Error()
		e.finish(&result, flowStart)
		return result
	}

	// 2. Kill-switch pre-check: zero broker calls when any scope is active.
	if e.switches.IsActive(frozen.Symbol()) {
		reason := e.switches.ActiveReason(frozen.Symbol())
		e.logger.Record(advisoryID, LogKillSwitchAbort, map[string]any{
			"scope": string(reason),
			"phase": "pre_submission",
		})
		result.Stage = StageRejected
		result.Error = fmt.Sprintf("kill switch active (%s)", reason)
		e.finish(&result, flowStart)
		return result
	}

	// 3. Submission.
	attempt := Attempt{OrderID: "exec-" + uuid.NewString()}
	req := broker.OrderRequest{
		Symbol:   frozen.Symbol(),
		Side:     sideForBias(frozen.Bias()),
		Type:     broker.OrderTypeMarket,
		Qty:      frozen.PositionSize(),
		ClientID: attempt.OrderID,
	}

	tc := newTimeoutController(e.now)
	tc.Start() // T=0 at first broker submission; the call itself burns budget
	attempt.SubmittedAt = e.now()
	submitted, err := e.adapter.SubmitOrder(ctx, req)

	if err != nil {
		attempt.RetryReasons = append(attempt.RetryReasons, err.Error())
		result.Stage = StageFailed
		result.Error = fmt.Sprintf("order submission failed: %v", err)
		result.Attempts = append(result.Attempts, attempt)
		e.finish(&result, flowStart)
		return result
	}
	if submitted.OrderID != "" {
		attempt.OrderID = submitted.OrderID
	}
	result.OrderID = attempt.OrderID

	e.logger.Record(advisoryID, LogOrderSubmitted, map[string]any{
		"order_id": attempt.OrderID,
		"qty":      frozen.PositionSize(),
		"side":     string(req.Side),
	})
	if e.bus != nil {
		e.bus.Publish(events.EventOrderSubmitted, result)
	}

	// 4. Fill-wait loop, bounded by the immutable budget.
	status, stage := e.pollForFill(ctx, frozen, tc, &attempt)

	switch stage {
	case StageFilled, StageExecutedFullLate:
		e.settleFill(frozen, status, stage, &attempt, &result)
	case StageCancelled:
		e.cancelBestEffort(ctx, &attempt)
		result.Stage = StageCancelled
		if result.Error == "" {
			result.Error = "execution flow cancelled"
		}
	case StageFailedTimeout:
		e.cancelBestEffort(ctx, &attempt)
		e.logger.Record(advisoryID, LogTimeout, map[string]any{
			"order_id":        attempt.OrderID,
			"elapsed_seconds": tc.ElapsedSeconds(),
		})
		result.Stage = StageFailedTimeout
		result.Error = "no fill within execution budget"
		if status.State == broker.StateFilled {
			// Too late to accept, but the fill happened. Keep the
			// forensic record; reconciliation flags the position.
			attempt.FilledAt = e.now()
			attempt.FillPrice = status.FillPrice
			attempt.FillSize = status.FilledSize
			result.Error = "fill arrived beyond grace window"
		}
	case StageFailed:
		result.Stage = StageFailed
		if result.Error == "" {
			result.Error = "broker rejected order"
		}
	}
	result.Attempts = append(result.Attempts, attempt)

	// 5. Reconciliation: exactly once per flow, on every post-submission
	// branch. Expected state is zero unless the flow produced a fill, so a
	// timed-out order that filled anyway surfaces as a phantom position.
	reconReq := reconciliation.Request{
		AdvisoryID: advisoryID,
		Symbol:     frozen.Symbol(),
		OrderID:    attempt.OrderID,
	}
	if result.Stage == StageFilled || result.Stage == StageExecutedFullLate {
		reconReq.ExpectedPositionSize = result.FillSize
		reconReq.ExpectedSL = result.StopLoss
		reconReq.ExpectedTP = result.TakeProfit
	}
	report := e.recon.Reconcile(ctx, reconReq)
	result.Reconciliation = &report

	e.finish(&result, flowStart)
	return result
}

// claim reserves the advisory id for this flow. Claims are permanent: a
// frozen contract is read at most once, ever.
func (e *Engine) claim(advisoryID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.flows[advisoryID]; exists {
		return false
	}
	e.flows[advisoryID] = struct{}{}
	return true
}

func (e *Engine) validate(frozen advisory.Frozen) error {
	if frozen.AdvisoryID() == "" || frozen.Symbol() == "" {
		return fmt.Errorf("invalid contract: missing identifiers")
	}
	if frozen.Bias() != advisory.BiasLong && frozen.Bias() != advisory.BiasShort {
		return fmt.Errorf("invalid contract: unknown bias %q", frozen.Bias())
	}
	if frozen.Expired(e.now()) {
		return fmt.Errorf("contract expired at %s", frozen.ExpirationTS().UTC().Format(time.RFC3339))
	}
	if frozen.PositionSize() <= 0 {
		return fmt.Errorf("invalid contract: position size %.6f must be positive", frozen.PositionSize())
	}
	if max, ok := e.sizeLimits[frozen.Symbol()]; ok && frozen.PositionSize() > max {
		return fmt.Errorf("invalid contract: position size %.6f exceeds %s limit %.6f", frozen.PositionSize(), frozen.Symbol(), max)
	}
	if sl := frozen.SLOffsetPct(); sl >= 0 || sl <= -1 {
		return fmt.Errorf("invalid contract: sl offset %.4f must be in (-1, 0)", sl)
	}
	if tp := frozen.TPOffsetPct(); tp <= 0 || tp >= 1 {
		return fmt.Errorf("invalid contract: tp offset %.4f must be in (0, 1)", tp)
	}
	return nil
}

// pollForFill waits for a fill on a fixed cadence inside the budget, then
// gives the grace window one post-loop status check. It returns the last
// observed status and the stage the flow reached.
func (e *Engine) pollForFill(ctx context.Context, frozen advisory.Frozen, tc *TimeoutController, attempt *Attempt) (broker.OrderStatus, Stage) {
	advisoryID := frozen.AdvisoryID()

	for !tc.IsExpired() {
		select {
		case <-ctx.Done():
			return broker.OrderStatus{}, StageCancelled
		case <-time.After(e.pollInterval):
		}

		// Mid-flight kill-switch activation cancels the pending order. A
		// switch never touches a position that already filled.
		if e.switches.IsActive(frozen.Symbol()) {
			e.logger.Record(advisoryID, LogKillSwitchAbort, map[string]any{
				"scope": string(e.switches.ActiveReason(frozen.Symbol())),
				"phase": "fill_wait",
			})
			return broker.OrderStatus{}, StageCancelled
		}

		status, err := e.adapter.GetOrderStatus(ctx, attempt.OrderID)
		if err != nil {
			// Transient status failures burn budget but do not abort:
			// the order may still fill.
			attempt.RetryCount++
			attempt.RetryReasons = append(attempt.RetryReasons, err.Error())
			continue
		}

		switch status.State {
		case broker.StateFilled:
			if !tc.IsExpired() {
				return status, StageFilled
			}
			return status, lateOrTimedOut(tc)
		case broker.StateRejected, broker.StateCancelled:
			return status, StageFailed
		}
	}

	// Budget spent. One grace check, not a loop extension.
	status, err := e.adapter.GetOrderStatus(ctx, attempt.OrderID)
	if err != nil {
		attempt.RetryCount++
		attempt.RetryReasons = append(attempt.RetryReasons, err.Error())
		return broker.OrderStatus{}, StageFailedTimeout
	}
	if status.State == broker.StateFilled {
		return status, lateOrTimedOut(tc)
	}
	return status, StageFailedTimeout
}

// lateOrTimedOut classifies a fill observed after the budget: inside the
// one-second grace window it is a valid late execution, beyond it the flow
// is timed out and reconciliation will flag the position for a human.
func lateOrTimedOut(tc *TimeoutController) Stage {
	if tc.InGraceWindow() {
		return StageExecutedFullLate
	}
	return StageFailedTimeout
}

// settleFill computes risk levels from the actual fill price. The reference
// price feeds only the forensic slippage figure, never SL/TP.
func (e *Engine) settleFill(frozen advisory.Frozen, status broker.OrderStatus, stage Stage, attempt *Attempt, result *Result) {
	fillPrice := status.FillPrice

	attempt.FilledAt = e.now()
	attempt.FillPrice = fillPrice
	attempt.FillSize = status.FilledSize
	attempt.StopLoss = fillPrice * (1 + frozen.SLOffsetPct())
	attempt.TakeProfit = fillPrice * (1 + frozen.TPOffsetPct())
	if ref := frozen.ReferencePrice(); ref > 0 {
		attempt.SlippagePct = (fillPrice - ref) / ref * 100
	}

	result.Stage = stage
	result.FillPrice = fillPrice
	result.FillSize = status.FilledSize
	result.StopLoss = attempt.StopLoss
	result.TakeProfit = attempt.TakeProfit
	result.SlippagePct = attempt.SlippagePct

	e.logger.Record(frozen.AdvisoryID(), LogOrderFilled, map[string]any{
		"order_id":     attempt.OrderID,
		"fill_price":   fillPrice,
		"fill_size":    status.FilledSize,
		"stop_loss":    attempt.StopLoss,
		"take_profit":  attempt.TakeProfit,
		"slippage_pct": attempt.SlippagePct,
		"late":         stage == StageExecutedFullLate,
	})
	if e.bus != nil {
		e.bus.Publish(events.EventOrderFilled, *result)
	}
}

// cancelBestEffort attempts a broker-side cancel of the pending order.
// Failure is recorded, not escalated; reconciliation verifies the truth.
func (e *Engine) cancelBestEffort(ctx context.Context, attempt *Attempt) {
	ok, err := e.adapter.CancelOrder(ctx, attempt.OrderID)
	if err != nil {
		attempt.RetryReasons = append(attempt.RetryReasons, fmt.Sprintf("cancel failed: %v", err))
		return
	}
	if !ok {
		attempt.RetryReasons = append(attempt.RetryReasons, "cancel rejected by broker")
	}
}

// finish stamps duration, writes the terminal log entry, and mirrors the
// result durably.
func (e *Engine) finish(result *Result, flowStart time.Time) {
	result.Duration = e.now().Sub(flowStart)

	e.logger.Record(result.AdvisoryID, LogExecutionResult, map[string]any{
		"stage":       string(result.Stage),
		"order_id":    result.OrderID,
		"duration_ms": result.Duration.Milliseconds(),
		"error":       result.Error,
	})
	log.Printf("execution: %s finished %s in %s", result.AdvisoryID, result.Stage, result.Duration)

	if e.metrics != nil {
		e.metrics.CountStage(string(result.Stage))
		e.metrics.FlowLatency.RecordDuration(result.Duration)
		if result.Reconciliation != nil && result.Reconciliation.RequiresManualResolution {
			e.metrics.IncrementReconMismatches()
		}
	}

	if e.database != nil {
		row := db.ExecutionResultRow{
			AdvisoryID:      result.AdvisoryID,
			Stage:           string(result.Stage),
			OrderID:         result.OrderID,
			FillPrice:       result.FillPrice,
			FillSize:        result.FillSize,
			StopLoss:        result.StopLoss,
			TakeProfit:      result.TakeProfit,
			SlippagePct:     result.SlippagePct,
			DurationMs:      result.Duration.Milliseconds(),
			KillSwitchState: result.KillSwitchState,
			Error:           result.Error,
		}
		if result.Reconciliation != nil {
			row.ReconStatus = string(result.Reconciliation.Status)
			row.RequiresManualResolution = result.Reconciliation.RequiresManualResolution
		}
		// Terminal records persist even when the flow context is gone.
		if err := e.database.CreateExecutionResult(context.Background(), row); err != nil {
			log.Printf("execution: persist result failed: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.EventExecutionResult, *result)
	}
}

func sideForBias(b advisory.Bias) broker.Side {
	if b == advisory.BiasShort {
		return broker.SideSell
	}
	return broker.SideBuy
}
