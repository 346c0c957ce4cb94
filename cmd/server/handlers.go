package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/bank-ledger-service/internal/auth"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/health"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/ledger"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

type submitter interface {
	PostTransaction(ctx context.Context, token string, tx models.Transaction) (ledger.Receipt, error)
}

type accountReader interface {
	Balance(ctx context.Context, account string) (int64, error)
	History(ctx context.Context, account string) ([]models.Transaction, error)
}

type server struct {
	ledger   submitter
	accounts accountReader
	verifier interfaces.TokenVerifier
	health   *health.Checker
	log      *logger.L
}

func newServer(l submitter, accounts accountReader, verifier interfaces.TokenVerifier, checker *health.Checker) *server {
	return &server{
		ledger:   l,
		accounts: accounts,
		verifier: verifier,
		health:   checker,
		log:      logger.New("http"),
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ready", s.health.ReadyHandler)
	mux.HandleFunc("/healthy", s.health.LiveHandler)
	mux.HandleFunc("/transactions", s.postTransaction)
	mux.HandleFunc("/accounts/balance", s.balance)
	mux.HandleFunc("/accounts/history", s.history)
	return mux
}

type transactionRequest struct {
	FromAccount string `json:"from_account"`
	FromRouting string `json:"from_routing"`
	ToAccount   string `json:"to_account"`
	ToRouting   string `json:"to_routing"`
	Amount      int64  `json:"amount"`
	RequestKey  string `json:"request_key"`
}

func (s *server) postTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.RequestKey
	}
	if key == "" {
		key = uuid.New().String()
	}

	receipt, err := s.ledger.PostTransaction(r.Context(), auth.BearerToken(r.Header.Get("Authorization")), models.Transaction{
		FromAccount: req.FromAccount,
		FromRouting: req.FromRouting,
		ToAccount:   req.ToAccount,
		ToRouting:   req.ToRouting,
		Amount:      req.Amount,
		RequestKey:  key,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, struct {
		ledger.Receipt
		RequestKey string `json:"request_key"`
	}{receipt, key})
}

func (s *server) balance(w http.ResponseWriter, r *http.Request) {
	account, ok := s.authorisedAccount(w, r)
	if !ok {
		return
	}

	balance, err := s.accounts.Balance(r.Context(), account)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID    string          `json:"account_id"`
		Balance      int64           `json:"balance"`
		BalanceMajor decimal.Decimal `json:"balance_major"`
	}{
		AccountID:    account,
		Balance:      balance,
		BalanceMajor: decimal.New(balance, -2),
	})
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	account, ok := s.authorisedAccount(w, r)
	if !ok {
		return
	}

	history, err := s.accounts.History(r.Context(), account)
	if err != nil {
		s.fail(w, err)
		return
	}
	if history == nil {
		history = []models.Transaction{}
	}

	writeJSON(w, http.StatusOK, struct {
		AccountID    string               `json:"account_id"`
		Transactions []models.Transaction `json:"transactions"`
	}{account, history})
}

// authorisedAccount checks the query and the bearer token; on failure the
// response has been written.
func (s *server) authorisedAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}

	account := r.URL.Query().Get("account_id")
	if account == "" {
		writeError(w, http.StatusBadRequest, "account_id is a mandatory field")
		return "", false
	}
	if !ledger.ValidAccount(account) {
		s.fail(w, fault.ErrInvalidAccountDetails)
		return "", false
	}

	claim, err := s.verifier.VerifyToken(auth.BearerToken(r.Header.Get("Authorization")))
	if err != nil || claim.Account != account {
		s.fail(w, fault.ErrUnauthorized)
		return "", false
	}
	return account, true
}

func (s *server) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Warnf("request failed: %s", err)
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case fault.IsErrUnauthorized(err), errors.Is(err, fault.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, fault.ErrDuplicateRequest):
		return http.StatusConflict
	case fault.IsErrInvalid(err):
		return http.StatusBadRequest
	case fault.IsErrTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{reason})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
