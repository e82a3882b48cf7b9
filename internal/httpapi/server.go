// Package httpapi exposes the escrow and the accounts ledger over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/crowdfunding-escrow/internal/clock"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/escrow"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/ledger"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/metrics"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

type Server struct {
	escrow   *escrow.Escrow
	accounts *ledger.Ledger
	metrics  *metrics.Metrics
	log      logrus.FieldLogger

	// manual is set only when the service runs on a harness clock.
	manual *clock.Manual
}

func NewServer(e *escrow.Escrow, accounts *ledger.Ledger, m *metrics.Metrics, manual *clock.Manual, log logrus.FieldLogger) *Server {
	return &Server{escrow: e, accounts: accounts, metrics: m, manual: manual, log: log}
}

// Handler returns the routed handler for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/escrow", s.status)
	mux.HandleFunc("/escrow/contributors", s.contributor)
	mux.HandleFunc("/escrow/contribute", s.contribute)
	mux.HandleFunc("/escrow/refund", s.refund)
	mux.HandleFunc("/accounts/fund", s.fund)
	mux.HandleFunc("/accounts/balance", s.balance)
	mux.HandleFunc("/ledgerEntries", s.ledgerEntries)
	if s.manual != nil {
		mux.HandleFunc("/clock/advance", s.advanceClock)
	}
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// maxAdvanceSeconds keeps the advance duration within time.Duration.
const maxAdvanceSeconds = int64(math.MaxInt64 / int64(time.Second))

type amountRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type accountAmount struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := s.escrow.Snapshot()
	snap.Contributors = nil
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) contributor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, accountAmount{AccountID: accountID, Amount: s.escrow.Contributors(accountID)})
}

func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := s.escrow.Contribute(r.Context(), req.AccountID, req.Amount)
	s.metrics.Observe("contribute", outcome(err))
	if err != nil {
		s.fail(w, "contribute", err)
		return
	}
	s.recordTotals()
	writeJSON(w, http.StatusCreated, accountAmount{AccountID: req.AccountID, Amount: s.escrow.Contributors(req.AccountID)})
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	refunded, err := s.escrow.Refund(r.Context(), req.AccountID)
	s.metrics.Observe("refund", outcome(err))
	if err != nil {
		s.fail(w, "refund", err)
		return
	}
	s.metrics.Refunded(refunded)
	s.recordTotals()
	writeJSON(w, http.StatusOK, accountAmount{AccountID: req.AccountID, Amount: refunded})
}

func (s *Server) fund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == s.escrow.Custody() || req.AccountID == models.MintAccount {
		http.Error(w, "account cannot be funded", http.StatusBadRequest)
		return
	}
	if err := s.accounts.Fund(r.Context(), req.AccountID, req.Amount); err != nil {
		s.fail(w, "fund", err)
		return
	}
	balance, err := s.accounts.GetBalance(r.Context(), req.AccountID)
	if err != nil {
		s.fail(w, "fund", err)
		return
	}
	writeJSON(w, http.StatusCreated, accountAmount{AccountID: req.AccountID, Amount: balance})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
		return
	}
	balance, err := s.accounts.GetBalance(r.Context(), accountID)
	if err != nil {
		s.fail(w, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Balance   decimal.Decimal `json:"balance"`
	}{accountID, balance})
}

func (s *Server) ledgerEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.accounts.GetLedgerEntries(r.Context())
	if err != nil {
		s.fail(w, "ledgerEntries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) advanceClock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Seconds int64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seconds < 0 || req.Seconds > maxAdvanceSeconds {
		http.Error(w, fmt.Sprintf("seconds must be between 0 and %d", maxAdvanceSeconds), http.StatusBadRequest)
		return
	}
	now, err := s.manual.Advance(time.Duration(req.Seconds) * time.Second)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"now": now, "state": s.escrow.State().String()})
}

// recordTotals reads both gauges from one consistent snapshot.
func (s *Server) recordTotals() {
	snap := s.escrow.Snapshot()
	s.metrics.SetTotals(snap.RaisedAmount, snap.NoOfContributors)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("operation", op).Error("request failed")
	}
	http.Error(w, err.Error(), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, escrow.ErrDeadlinePassed),
		errors.Is(err, escrow.ErrNotYetRefundable),
		errors.Is(err, escrow.ErrGoalReached):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrNothingToRefund):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidIdentity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrMissingAccount),
		errors.Is(err, ledger.ErrSameAccount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, escrow.ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, escrow.ErrNotYetRefundable):
		return "not_yet_refundable"
	case errors.Is(err, escrow.ErrNothingToRefund):
		return "nothing_to_refund"
	case errors.Is(err, escrow.ErrGoalReached):
		return "goal_reached"
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrInvalidIdentity):
		return "invalid"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
