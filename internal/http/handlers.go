package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"budgetkeeper/internal/core"
	"budgetkeeper/internal/ledger"
	"budgetkeeper/internal/log"
	"budgetkeeper/internal/services"
	"budgetkeeper/internal/storage"
)

type (
	createTransactionRequest struct {
		Kind        string `json:"kind"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Timestamp   string `json:"timestamp"`
		Interval    string `json:"interval"`
	}

	createBudgetRequest struct {
		Name        string `json:"name"`
		Interval    string `json:"interval"`
		Limit       string `json:"limit"`
		Description string `json:"description"`
	}

	messageRequest struct {
		Text       string `json:"text"`
		Timestamp  string `json:"timestamp"`
		Source     string `json:"source"`
		ExternalID string `json:"external_id"`
	}

	triggerRequest struct {
		Now string `json:"now"`
	}
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"balance": s.svc.Account().Balance().StringFixed()})
}

// handleListTransactions lists the ledger, optionally filtered by ?category=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.svc.Account().Transactions()
	if category := sanitizeInput(r.URL.Query().Get("category")); category != "" {
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.InCategory(category) {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var interval core.Interval
	if kind.Recurring() {
		if interval, err = core.ParseInterval(req.Interval); err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	ts, err := parseOptionalTime(req.Timestamp)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var opts []ledger.TxOption
	if !ts.IsZero() {
		opts = append(opts, ledger.WithTimestamp(ts))
	}
	if category := sanitizeInput(req.Category); category != "" {
		opts = append(opts, ledger.WithCategory(category))
	}

	tx, err := s.svc.Record(r.Context(), kind, amount, sanitizeInput(req.Description), interval, opts...)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogTransactionRecorded(r.Context(), tx)
	WriteJSON(w, http.StatusCreated, map[string]any{
		"transaction": tx,
		"balance":     s.svc.Account().Balance().StringFixed(),
	})
}

// handleBudgetReport reports every budget for the period ending at ?now=
// (default: current time).
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	now, err := parseOptionalTime(r.URL.Query().Get("now"))
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if now.IsZero() {
		now = s.now()
	}
	WriteJSON(w, http.StatusOK, map[string]any{"budgets": s.svc.Account().BudgetReport(now)})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	limit, err := core.ParseMoney(req.Limit)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var interval core.Interval
	if req.Interval != "" {
		if interval, err = core.ParseInterval(req.Interval); err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	b, err := s.svc.Account().AddBudget(sanitizeInput(req.Name), interval, limit, sanitizeInput(req.Description))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"budget": b})
}

func (s *Server) handleBudgetTotals(w http.ResponseWriter, r *http.Request) {
	totals := s.svc.Account().BudgetTotals()
	out := make(map[string]string, len(totals))
	for name, m := range totals {
		out[name] = m.StringFixed()
	}
	WriteJSON(w, http.StatusOK, map[string]any{"totals": out})
}

// handleMessage parses free text into purchases. A message nothing could be
// parsed from returns 200 with an empty list.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	ts, err := parseOptionalTime(req.Timestamp)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if ts.IsZero() {
		ts = s.now()
	}

	res, err := s.svc.Ingest(r.Context(), services.Message{
		Source:     sanitizeInput(req.Source),
		ExternalID: sanitizeInput(req.ExternalID),
		Text:       req.Text,
		ReceivedAt: ts,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": res.Transactions,
		"duplicate":    res.Duplicate,
	})
}

func (s *Server) handleTriggerRecurring(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeJSON(r, &req, true); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	now, err := parseOptionalTime(req.Now)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if now.IsZero() {
		now = s.now()
	}

	txs, err := s.svc.TriggerRecurring(r.Context(), now)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// handleUpcoming lists the next occurrence of every recurring transaction.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"upcoming": s.svc.Account().Upcoming()})
}

func (s *Server) handleMisses(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Misses(r.Context(), parseLimit(r, 50, 500))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleInboxMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := s.svc.InboxMessage(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, msg)
}

func (s *Server) handleInboxStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.InboxStats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sources": counts})
}

// writeDomainError maps validation failures to 422 and everything else to
// 5xx.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidInterval),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyBudgetName),
		errors.Is(err, services.ErrEmptyText):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNoJournal):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, r.URL.Path, nil)
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
