package db

import (
	"context"
	"time"
)

// User represents an operator account for the control API.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ApprovalAuditRow is one immutable approval decision record.
type ApprovalAuditRow struct {
	ID          string
	AdvisoryID  string
	ApproverID  string
	Outcome     string
	Rationale   string
	RequestedAt time.Time
	DecidedAt   time.Time
	DecisionMs  int64
	FrozenHash  string
	FrozenState string // JSON rendering of the frozen contract, forensic only
	CreatedAt   time.Time
}

// ExecutionLogRow is one immutable execution log record.
type ExecutionLogRow struct {
	ID         string
	AdvisoryID string
	Event      string
	Details    string // JSON payload
	CreatedAt  time.Time
}

// ExecutionResultRow stores the terminal result of an execution flow.
type ExecutionResultRow struct {
	AdvisoryID               string
	Stage                    string
	OrderID                  string
	FillPrice                float64
	FillSize                 float64
	StopLoss                 float64
	TakeProfit               float64
	SlippagePct              float64
	DurationMs               int64
	KillSwitchState          string
	ReconStatus              string
	RequiresManualResolution bool
	Error                    string
	CreatedAt                time.Time
}

// KillSwitchEventRow is one immutable kill-switch transition record.
type KillSwitchEventRow struct {
	ID         int64
	SwitchType string
	State      string
	Target     string
	Reason     string
	CreatedAt  time.Time
}

// ReconciliationRow stores one reconciliation report.
type ReconciliationRow struct {
	ID                       string
	AdvisoryID               string
	Status                   string
	RequiresManualResolution bool
	Mismatches               string // JSON array of descriptions
	CreatedAt                time.Time
}

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

// GetUserByEmail looks up a user for login.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// AppendApprovalAudit inserts one approval audit row.
func (d *Database) AppendApprovalAudit(ctx context.Context, r ApprovalAuditRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO approval_audit (
			id, advisory_id, approver_id, outcome, rationale,
			requested_at, decided_at, decision_ms, frozen_hash, frozen_state, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		r.ID, r.AdvisoryID, r.ApproverID, r.Outcome, r.Rationale,
		r.RequestedAt, r.DecidedAt, r.DecisionMs, r.FrozenHash, r.FrozenState, r.CreatedAt,
	)
	return err
}

// ListApprovalAudit returns audit rows, oldest first. An empty advisoryID
// returns the full trail.
func (d *Database) ListApprovalAudit(ctx context.Context, advisoryID string, limit int) ([]ApprovalAuditRow, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		SELECT id, advisory_id, approver_id, outcome, rationale,
		       requested_at, decided_at, decision_ms, frozen_hash, frozen_state, created_at
		FROM approval_audit`
	args := []any{}
	if advisoryID != "" {
		query += ` WHERE advisory_id = ?`
		args = append(args, advisoryID)
	}
	query += ` ORDER BY decided_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovalAuditRow
	for rows.Next() {
		var r ApprovalAuditRow
		if err := rows.Scan(
			&r.ID, &r.AdvisoryID, &r.ApproverID, &r.Outcome, &r.Rationale,
			&r.RequestedAt, &r.DecidedAt, &r.DecisionMs, &r.FrozenHash, &r.FrozenState, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendExecutionLog inserts one execution log row.
func (d *Database) AppendExecutionLog(ctx context.Context, r ExecutionLogRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO execution_logs (id, advisory_id, event, details, created_at)
		VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, r.ID, r.AdvisoryID, r.Event, r.Details, r.CreatedAt)
	return err
}

// ListExecutionLogs returns log rows, oldest first. An empty advisoryID
// returns all rows.
func (d *Database) ListExecutionLogs(ctx context.Context, advisoryID string, limit int) ([]ExecutionLogRow, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT id, advisory_id, event, details, created_at FROM execution_logs`
	args := []any{}
	if advisoryID != "" {
		query += ` WHERE advisory_id = ?`
		args = append(args, advisoryID)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionLogRow
	for rows.Next() {
		var r ExecutionLogRow
		if err := rows.Scan(&r.ID, &r.AdvisoryID, &r.Event, &r.Details, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateExecutionResult inserts the terminal result for an advisory. The
// primary key enforces at-most-one result per advisory.
func (d *Database) CreateExecutionResult(ctx context.Context, r ExecutionResultRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO execution_results (
			advisory_id, stage, order_id, fill_price, fill_size,
			stop_loss, take_profit, slippage_pct, duration_ms,
			kill_switch_state, recon_status, requires_manual_resolution, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		r.AdvisoryID, r.Stage, r.OrderID, r.FillPrice, r.FillSize,
		r.StopLoss, r.TakeProfit, r.SlippagePct, r.DurationMs,
		r.KillSwitchState, r.ReconStatus, boolToInt(r.RequiresManualResolution), r.Error, r.CreatedAt,
	)
	return err
}

// GetExecutionResult fetches the stored result for one advisory.
func (d *Database) GetExecutionResult(ctx context.Context, advisoryID string) (*ExecutionResultRow, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT advisory_id, stage, order_id, fill_price, fill_size,
		       stop_loss, take_profit, slippage_pct, duration_ms,
		       kill_switch_state, recon_status, requires_manual_resolution, error, created_at
		FROM execution_results WHERE advisory_id = ?
	`, advisoryID)

	var r ExecutionResultRow
	var manual int
	if err := row.Scan(
		&r.AdvisoryID, &r.Stage, &r.OrderID, &r.FillPrice, &r.FillSize,
		&r.StopLoss, &r.TakeProfit, &r.SlippagePct, &r.DurationMs,
		&r.KillSwitchState, &r.ReconStatus, &manual, &r.Error, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.RequiresManualResolution = manual == 1
	return &r, nil
}

// ListExecutionResults returns stored results, oldest first.
func (d *Database) ListExecutionResults(ctx context.Context, limit int) ([]ExecutionResultRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT advisory_id, stage, order_id, fill_price, fill_size,
		       stop_loss, take_profit, slippage_pct, duration_ms,
		       kill_switch_state, recon_status, requires_manual_resolution, error, created_at
		FROM execution_results ORDER BY created_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionResultRow
	for rows.Next() {
		var r ExecutionResultRow
		var manual int
		if err := rows.Scan(
			&r.AdvisoryID, &r.Stage, &r.OrderID, &r.FillPrice, &r.FillSize,
			&r.StopLoss, &r.TakeProfit, &r.SlippagePct, &r.DurationMs,
			&r.KillSwitchState, &r.ReconStatus, &manual, &r.Error, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.RequiresManualResolution = manual == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendKillSwitchEvent inserts one kill-switch transition row.
func (d *Database) AppendKillSwitchEvent(ctx context.Context, r KillSwitchEventRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO kill_switch_events (switch_type, state, target, reason, created_at)
		VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, r.SwitchType, r.State, r.Target, r.Reason, r.CreatedAt)
	return err
}

// ListKillSwitchEvents returns transition rows, oldest first.
func (d *Database) ListKillSwitchEvents(ctx context.Context, limit int) ([]KillSwitchEventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, switch_type, state, target, reason, created_at
		FROM kill_switch_events ORDER BY id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KillSwitchEventRow
	for rows.Next() {
		var r KillSwitchEventRow
		if err := rows.Scan(&r.ID, &r.SwitchType, &r.State, &r.Target, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReconciliationReport inserts one reconciliation report row.
func (d *Database) CreateReconciliationReport(ctx context.Context, r ReconciliationRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO reconciliation_reports (
			id, advisory_id, status, requires_manual_resolution, mismatches, created_at
		) VALUES (?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, r.ID, r.AdvisoryID, r.Status, boolToInt(r.RequiresManualResolution), r.Mismatches, r.CreatedAt)
	return err
}

// ListReconciliationReports returns report rows, oldest first.
func (d *Database) ListReconciliationReports(ctx context.Context, limit int) ([]ReconciliationRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, advisory_id, status, requires_manual_resolution, mismatches, created_at
		FROM reconciliation_reports ORDER BY created_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReconciliationRow
	for rows.Next() {
		var r ReconciliationRow
		var manual int
		if err := rows.Scan(&r.ID, &r.AdvisoryID, &r.Status, &manual, &r.Mismatches, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.RequiresManualResolution = manual == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
