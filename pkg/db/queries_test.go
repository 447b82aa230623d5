package db

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestApprovalAuditAppendAndList(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	rows := []ApprovalAuditRow{
		{ID: "a-1", AdvisoryID: "ADV-1", ApproverID: "op", Outcome: "APPROVED", RequestedAt: now, DecidedAt: now, DecisionMs: 5, FrozenHash: "h1"},
		{ID: "a-2", AdvisoryID: "ADV-2", ApproverID: "op", Outcome: "REJECTED", RequestedAt: now.Add(time.Second), DecidedAt: now.Add(time.Second), DecisionMs: 3},
	}
	for _, r := range rows {
		if err := database.AppendApprovalAudit(ctx, r); err != nil {
			t.Fatalf("AppendApprovalAudit: %v", err)
		}
	}

	all, err := database.ListApprovalAudit(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListApprovalAudit: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("rows=%d, expected 2", len(all))
	}
	if all[0].ID != "a-1" || all[1].ID != "a-2" {
		t.Fatalf("rows not in chronological order: %s, %s", all[0].ID, all[1].ID)
	}

	filtered, err := database.ListApprovalAudit(ctx, "ADV-2", 0)
	if err != nil {
		t.Fatalf("ListApprovalAudit filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].AdvisoryID != "ADV-2" {
		t.Fatalf("filtered=%+v, expected only ADV-2", filtered)
	}
}

func TestExecutionResultAtMostOnePerAdvisory(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	row := ExecutionResultRow{
		AdvisoryID: "ADV-1",
		Stage:      "FILLED",
		OrderID:    "ord-1",
		FillPrice:  152.0,
		FillSize:   1.5,
		StopLoss:   148.96,
		TakeProfit: 156.56,
	}
	if err := database.CreateExecutionResult(ctx, row); err != nil {
		t.Fatalf("CreateExecutionResult: %v", err)
	}

	// Second insert for the same advisory must fail on the primary key.
	if err := database.CreateExecutionResult(ctx, row); err == nil {
		t.Fatal("second result for the same advisory was accepted")
	}

	got, err := database.GetExecutionResult(ctx, "ADV-1")
	if err != nil {
		t.Fatalf("GetExecutionResult: %v", err)
	}
	if got.Stage != "FILLED" || got.StopLoss != 148.96 || got.TakeProfit != 156.56 {
		t.Fatalf("stored result mismatch: %+v", got)
	}
}

func TestKillSwitchEventsAreOrdered(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	events := []KillSwitchEventRow{
		{SwitchType: "GLOBAL", State: "ACTIVE", Reason: "drill"},
		{SwitchType: "GLOBAL", State: "OFF", Reason: "drill over"},
		{SwitchType: "SYMBOL_LEVEL", State: "ACTIVE", Target: "BTCUSDT", Reason: "volatility"},
	}
	for _, e := range events {
		if err := database.AppendKillSwitchEvent(ctx, e); err != nil {
			t.Fatalf("AppendKillSwitchEvent: %v", err)
		}
	}

	got, err := database.ListKillSwitchEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ListKillSwitchEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("events=%d, expected 3", len(got))
	}
	for i, e := range got {
		if e.SwitchType != events[i].SwitchType || e.State != events[i].State {
			t.Fatalf("event %d out of order: %+v", i, e)
		}
	}
}

func TestExecutionLogRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.AppendExecutionLog(ctx, ExecutionLogRow{
		ID: "l-1", AdvisoryID: "ADV-1", Event: "execution_start", Details: `{"hash":"abc"}`,
	}); err != nil {
		t.Fatalf("AppendExecutionLog: %v", err)
	}

	logs, err := database.ListExecutionLogs(ctx, "ADV-1", 0)
	if err != nil {
		t.Fatalf("ListExecutionLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "execution_start" {
		t.Fatalf("logs=%+v", logs)
	}
}

func TestUserRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.CreateUser(ctx, User{ID: "u-1", Email: "op@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err := database.GetUserByEmail(ctx, "op@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != "u-1" {
		t.Fatalf("user=%+v", u)
	}
}
