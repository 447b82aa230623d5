package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS approval_audit (
    id TEXT PRIMARY KEY,
    advisory_id TEXT NOT NULL,
    approver_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    rationale TEXT,
    requested_at DATETIME NOT NULL,
    decided_at DATETIME NOT NULL,
    decision_ms INTEGER NOT NULL,
    frozen_hash TEXT,
    frozen_state TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_approval_audit_advisory ON approval_audit(advisory_id);

CREATE TABLE IF NOT EXISTS execution_logs (
    id TEXT PRIMARY KEY,
    advisory_id TEXT NOT NULL,
    event TEXT NOT NULL,
    details TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_execution_logs_advisory ON execution_logs(advisory_id);

CREATE TABLE IF NOT EXISTS execution_results (
    advisory_id TEXT PRIMARY KEY,
    stage TEXT NOT NULL,
    order_id TEXT,
    fill_price REAL,
    fill_size REAL,
    stop_loss REAL,
    take_profit REAL,
    slippage_pct REAL,
    duration_ms INTEGER,
    kill_switch_state TEXT,
    recon_status TEXT,
    requires_manual_resolution INTEGER DEFAULT 0,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS kill_switch_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    switch_type TEXT NOT NULL,
    state TEXT NOT NULL,
    target TEXT,
    reason TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reconciliation_reports (
    id TEXT PRIMARY KEY,
    advisory_id TEXT NOT NULL,
    status TEXT NOT NULL,
    requires_manual_resolution INTEGER DEFAULT 0,
    mismatches TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_recon_reports_advisory ON reconciliation_reports(advisory_id);
`

// ApplyMigrations bootstraps the schema; keep lightweight for fast startup.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
