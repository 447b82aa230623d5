package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"execution-core/internal/advisory"
	"execution-core/internal/approval"
	"execution-core/internal/killswitch"
)

// advisoryRequest is the wire form of an incoming advisory snapshot.
type advisoryRequest struct {
	AdvisoryID    string    `json:"advisory_id"`
	Bias          string    `json:"bias"`
	Mode          string    `json:"mode"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	SLOffsetPct   float64   `json:"sl_offset_pct"`
	TPOffsetPct   float64   `json:"tp_offset_pct"`
	PositionSize  float64   `json:"position_size"`
	ExpirationTS  time.Time `json:"expiration_ts"`
	ReasoningNote string    `json:"reasoning_note"`
}

// submitAdvisory registers an upstream advisory as pending human decision.
// Nothing is frozen or executable until an operator decides.
func (s *Server) submitAdvisory(c *gin.Context) {
	var req advisoryRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	snap := advisory.Snapshot{
		AdvisoryID:    strings.TrimSpace(req.AdvisoryID),
		Bias:          advisory.Bias(strings.ToUpper(req.Bias)),
		Mode:          strings.ToUpper(req.Mode),
		Symbol:        strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Price:         req.Price,
		SLOffsetPct:   req.SLOffsetPct,
		TPOffsetPct:   req.TPOffsetPct,
		PositionSize:  req.PositionSize,
		ExpirationTS:  req.ExpirationTS,
		CreatedAt:     time.Now(),
		ReasoningNote: req.ReasoningNote,
	}
	if err := snap.ValidateStructural(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_ADVISORY",
			"error": err.Error(),
		})
		return
	}

	s.pendingMu.Lock()
	if _, exists := s.pending[snap.AdvisoryID]; exists {
		s.pendingMu.Unlock()
		c.JSON(http.StatusConflict, gin.H{
			"code":  "ADVISORY_EXISTS",
			"error": "advisory already pending decision",
		})
		return
	}
	s.pending[snap.AdvisoryID] = snap
	s.pendingMu.Unlock()

	c.JSON(http.StatusCreated, gin.H{
		"advisory_id":   snap.AdvisoryID,
		"status":        "PENDING",
		"expiration_ts": snap.ExpirationTS.UTC().Format(time.RFC3339),
	})
}

func (s *Server) listPendingAdvisories(c *gin.Context) {
	s.pendingMu.RLock()
	out := make([]gin.H, 0, len(s.pending))
	for _, snap := range s.pending {
		out = append(out, gin.H{
			"advisory_id":    snap.AdvisoryID,
			"bias":           string(snap.Bias),
			"symbol":         snap.Symbol,
			"price":          snap.Price,
			"position_size":  snap.PositionSize,
			"expiration_ts":  snap.ExpirationTS.UTC().Format(time.RFC3339),
			"reasoning_note": snap.ReasoningNote,
		})
	}
	s.pendingMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"advisories": out})
}

// decideAdvisory applies the binary human decision. An APPROVED outcome
// freezes the contract and hands it to the execution engine asynchronously;
// the response never waits for the flow to finish.
func (s *Server) decideAdvisory(c *gin.Context) {
	advisoryID := c.Param("id")

	var req struct {
		Approve   bool   `json:"approve"`
		Rationale string `json:"rationale"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	s.pendingMu.RLock()
	snap, exists := s.pending[advisoryID]
	s.pendingMu.RUnlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "ADVISORY_NOT_FOUND",
			"error": "no pending advisory with that id",
		})
		return
	}

	outcome, err := s.Approvals.Approve(snap, CurrentUserID(c), req.Approve, req.Rationale)
	if err != nil {
		status := http.StatusBadRequest
		code := "INVALID_ADVISORY"
		if strings.Contains(err.Error(), "already decided") {
			status = http.StatusConflict
			code = "ALREADY_DECIDED"
		}
		c.JSON(status, gin.H{"code": code, "error": err.Error()})
		return
	}

	// A decided advisory is no longer pending, whatever the outcome.
	s.pendingMu.Lock()
	delete(s.pending, advisoryID)
	s.pendingMu.Unlock()

	resp := gin.H{
		"advisory_id": advisoryID,
		"outcome":     string(outcome),
	}

	if outcome == approval.OutcomeApproved && s.Engine != nil {
		if frozen, ok := s.Approvals.Frozen(advisoryID); ok {
			go s.Engine.Execute(context.Background(), frozen)
			resp["execution"] = "STARTED"
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getAuditTrail(c *gin.Context) {
	advisoryID := c.Param("id")
	trail := s.Approvals.AuditTrail(advisoryID)

	out := make([]gin.H, 0, len(trail))
	for _, e := range trail {
		entry := gin.H{
			"id":                e.ID,
			"advisory_id":       e.AdvisoryID,
			"approver_id":       e.ApproverID,
			"outcome":           string(e.Outcome),
			"rationale":         e.Rationale,
			"requested_at":      e.RequestedAt.UTC().Format(time.RFC3339Nano),
			"decided_at":        e.DecidedAt.UTC().Format(time.RFC3339Nano),
			"decision_duration": e.DecisionDuration.String(),
		}
		if e.FrozenHash != "" {
			entry["frozen_hash"] = e.FrozenHash
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"advisory_id": advisoryID, "entries": out})
}

func (s *Server) listExecutions(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	rows, err := s.DB.ListExecutionResults(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": rows})
}

func (s *Server) getExecution(c *gin.Context) {
	row, err := s.DB.GetExecutionResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "EXECUTION_NOT_FOUND",
			"error": "no execution result for that advisory",
		})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) getExecutionLog(c *gin.Context) {
	advisoryID := c.Param("id")
	rows, err := s.DB.ListExecutionLogs(c.Request.Context(), advisoryID, queryInt(c, "limit", 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advisory_id": advisoryID, "entries": rows})
}

func (s *Server) getKillSwitch(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	state := s.Switches.GetState(symbol)
	resp := gin.H{
		"symbol": symbol,
		"state":  string(state),
		"active": s.Switches.IsActive(symbol),
	}
	if s.Switches.IsActive(symbol) {
		resp["reason"] = string(s.Switches.ActiveReason(symbol))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) setKillSwitch(c *gin.Context) {
	var req struct {
		Type   string `json:"type"`
		State  string `json:"state"`
		Target string `json:"target"`
		Reason string `json:"reason"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	typ := killswitch.Type(strings.ToUpper(req.Type))
	state := killswitch.State(strings.ToUpper(req.State))
	switch typ {
	case killswitch.TypeGlobal, killswitch.TypeSymbolLevel, killswitch.TypeRiskLimit, killswitch.TypeManual:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_SWITCH_TYPE",
			"error": "unknown kill switch type",
		})
		return
	}
	switch state {
	case killswitch.StateOff, killswitch.StateWarning, killswitch.StateActive:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_SWITCH_STATE",
			"error": "unknown kill switch state",
		})
		return
	}
	if typ == killswitch.TypeSymbolLevel && strings.TrimSpace(req.Target) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_TARGET",
			"error": "symbol-level switch requires a target symbol",
		})
		return
	}

	activation := s.Switches.Set(typ, state, strings.ToUpper(req.Target), req.Reason)
	c.JSON(http.StatusOK, gin.H{
		"type":   string(activation.Type),
		"state":  string(activation.State),
		"target": activation.Target,
		"reason": activation.Reason,
	})
}

func (s *Server) getKillSwitchHistory(c *gin.Context) {
	history := s.Switches.History()
	out := make([]gin.H, 0, len(history))
	for _, a := range history {
		out = append(out, gin.H{
			"type":      string(a.Type),
			"state":     string(a.State),
			"target":    a.Target,
			"reason":    a.Reason,
			"timestamp": a.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (s *Server) listReconciliations(c *gin.Context) {
	rows, err := s.DB.ListReconciliationReports(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": rows})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	s.pendingMu.RLock()
	pendingCount := len(s.pending)
	s.pendingMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"broker_mode":        s.Meta.BrokerMode,
		"symbols":            s.Meta.Symbols,
		"version":            s.Meta.Version,
		"pending_advisories": pendingCount,
		"global_kill_switch": string(s.Switches.GetState("")),
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}
