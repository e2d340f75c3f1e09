package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finance/internal/core"
	flog "finance/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
	}).Write(w)
}

// handleReady runs the list query to prove the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.service.ListTransactions(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["cache"] = map[string]any{
		"entries": s.reports.Entries(),
		"status":  "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var b strings.Builder
	fmt.Fprintf(&b, "# HELP finance_requests_total Total HTTP requests\n")
	fmt.Fprintf(&b, "finance_requests_total %d\n", s.tracer.TotalRequests())
	fmt.Fprintf(&b, "# HELP finance_rate_limited_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(&b, "finance_rate_limited_total %d\n", s.limiter.Hits())
	fmt.Fprintf(&b, "# HELP finance_suspicious_requests_total Requests flagged as suspicious\n")
	fmt.Fprintf(&b, "finance_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	fmt.Fprintf(&b, "# HELP finance_report_cache_entries Cached report datasets\n")
	fmt.Fprintf(&b, "finance_report_cache_entries %d\n", s.reports.Entries())
	fmt.Fprintf(&b, "# HELP finance_uptime_seconds Process uptime\n")
	fmt.Fprintf(&b, "finance_uptime_seconds %.0f\n", time.Since(s.startTime).Seconds())

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.ListTransactions(r.Context())
	if err != nil {
		writeServiceError(w, r, flog.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := ParseTransactionRequest(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := req.ValidateType(); err != nil {
		writeServiceError(w, r, flog.OpCreate, &core.ValidationError{Field: "type", Err: core.ErrInvalidType})
		return
	}

	typ := core.TransactionType(req.Type)
	id, err := s.service.AddTransaction(r.Context(), typ, req.Amount, req.Category, req.Date, req.Description)
	if err != nil {
		writeServiceError(w, r, flog.OpCreate, err)
		return
	}
	s.reports.Invalidate()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", id)).
		Body(MessageBody{ID: id, Message: successMessage(typ)}).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	tx, err := s.service.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, flog.OpRead, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req, err := ParseTransactionRequest(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.service.UpdateTransaction(r.Context(), id, req.Amount, req.Category, req.Date, req.Description); err != nil {
		writeServiceError(w, r, flog.OpUpdate, err)
		return
	}
	s.reports.Invalidate()

	NewJSONResponse().Message("Transaction updated successfully!").Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.service.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, r, flog.OpDelete, err)
		return
	}
	s.reports.Invalidate()

	NewJSONResponse().Message("Transaction deleted successfully!").Write(w)
}

// handleIncomeVsExpense serves the line chart dataset, one point per date.
func (s *Server) handleIncomeVsExpense(w http.ResponseWriter, r *http.Request) {
	gen := s.reports.Generation()
	if series, ok := s.reports.Series(); ok {
		NewJSONResponse().Header("X-Cache", "HIT").Body(series).Write(w)
		return
	}

	series, err := s.service.IncomeVsExpenseSeries(r.Context())
	if err != nil {
		writeServiceError(w, r, flog.OpReport, err)
		return
	}
	if series == nil {
		series = []core.DailyTotals{}
	}
	s.reports.SetSeries(gen, series)

	NewJSONResponse().Header("X-Cache", "MISS").Body(series).Write(w)
}

// handleExpensesByCategory serves the pie chart dataset.
func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	gen := s.reports.Generation()
	if totals, ok := s.reports.Breakdown(); ok {
		NewJSONResponse().Header("X-Cache", "HIT").Body(totals).Write(w)
		return
	}

	totals, err := s.service.ExpenseBreakdown(r.Context())
	if err != nil {
		writeServiceError(w, r, flog.OpReport, err)
		return
	}
	if totals == nil {
		totals = []core.CategoryTotal{}
	}
	s.reports.SetBreakdown(gen, totals)

	NewJSONResponse().Header("X-Cache", "MISS").Body(totals).Write(w)
}
