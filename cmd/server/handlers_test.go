package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/sheikh-saqib/bank-ledger-service/internal/accountcache"
	"github.com/sheikh-saqib/bank-ledger-service/internal/auth"
	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/health"
	"github.com/sheikh-saqib/bank-ledger-service/internal/idempotency"
	"github.com/sheikh-saqib/bank-ledger-service/internal/ledger"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage/memory"
	"github.com/sheikh-saqib/bank-ledger-service/internal/tailer"
)

const (
	local   = "123456789"
	foreign = "987654321"
	alice   = "1234567890"
	bob     = "2222222222"
)

type harness struct {
	store   *memory.MemoryLedgerStore
	tail    *tailer.Tailer
	handler http.Handler
	signer  *auth.Signer
}

func newHarness(t *testing.T) *harness {
	cfg := config.Default()
	cfg.LocalRoutingNumber = local
	cfg.PollInterval = time.Millisecond

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	store := memory.NewMemoryLedgerStore()
	_, err = store.Append(context.Background(), models.Transaction{
		FromAccount: "9999999999", FromRouting: foreign,
		ToAccount: alice, ToRouting: local,
		Amount: 1000,
	})
	require.NoError(t, err)

	cache, err := accountcache.New(store, cfg)
	require.NoError(t, err)
	tail := tailer.New(store, cfg)
	checker := health.New(tail)
	require.NoError(t, tail.Start(context.Background(), cache))
	checker.MarkReady()

	l := ledger.NewLedger(store, verifier, cache, idempotency.New(cfg.DedupTTL), nil, cfg)
	return &harness{
		store:   store,
		tail:    tail,
		handler: newServer(l, cache, verifier, checker).routes(),
		signer:  auth.NewSigner(priv),
	}
}

func (h *harness) token(t *testing.T, account string) string {
	token, err := h.signer.Sign(account, "", time.Hour)
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, target, token string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func payment(amount int64) transactionRequest {
	return transactionRequest{
		FromAccount: alice, FromRouting: local,
		ToAccount: bob, ToRouting: local,
		Amount: amount,
	}
}

func TestPostTransactionAndReplay(t *testing.T) {
	h := newHarness(t)
	defer h.tail.Stop()
	token := h.token(t, alice)
	key := map[string]string{"Idempotency-Key": "abc"}

	rec := h.do(t, http.MethodPost, "/transactions", token, payment(300), key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		TransactionID int64  `json:"transaction_id"`
		Replayed      bool   `json:"replayed"`
		RequestKey    string `json:"request_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(2), created.TransactionID)
	assert.Equal(t, "abc", created.RequestKey)

	rec = h.do(t, http.MethodPost, "/transactions", token, payment(300), key)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"replayed":true`)

	rec = h.do(t, http.MethodPost, "/transactions", token, payment(301), key)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the tailer brings the cached balance up to date
	assert.Eventually(t, func() bool {
		rec := h.do(t, http.MethodGet, "/accounts/balance?account_id="+alice, token, nil, nil)
		return rec.Code == http.StatusOK && bytes.Contains(rec.Body.Bytes(), []byte(`"balance":700`))
	}, 2*time.Second, 5*time.Millisecond)

	rec = h.do(t, http.MethodGet, "/accounts/history?account_id="+alice, token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Transactions, 2)
	assert.Equal(t, int64(2), history.Transactions[0].ID)
}

func TestPostTransactionErrors(t *testing.T) {
	h := newHarness(t)
	defer h.tail.Stop()
	token := h.token(t, alice)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
	}{
		{"no token", "", payment(1), http.StatusUnauthorized},
		{"bad body", token, "not an object", http.StatusBadRequest},
		{"zero amount", token, payment(0), http.StatusBadRequest},
		{"overdraw", token, payment(1001), http.StatusBadRequest},
		{"someone else's account", h.token(t, bob), payment(1), http.StatusUnauthorized},
		{"bad account", token, transactionRequest{FromAccount: "1", FromRouting: local, ToAccount: bob, ToRouting: local, Amount: 1}, http.StatusBadRequest},
	}
	for _, test := range tests {
		rec := h.do(t, http.MethodPost, "/transactions", test.token, test.body, nil)
		assert.Equal(t, test.status, rec.Code, test.name)
		assert.Contains(t, rec.Body.String(), `"error"`, test.name)
	}

	rec := h.do(t, http.MethodGet, "/transactions", token, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadsRequireMatchingToken(t *testing.T) {
	h := newHarness(t)
	defer h.tail.Stop()

	rec := h.do(t, http.MethodGet, "/accounts/balance?account_id="+alice, h.token(t, alice), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance_major":"10"`)

	rec = h.do(t, http.MethodGet, "/accounts/balance?account_id="+alice, h.token(t, bob), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/accounts/history?account_id="+alice, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/accounts/balance", h.token(t, alice), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/accounts/balance?account_id=12", h.token(t, alice), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProbes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/ready", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, "/healthy", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a truncated ledger stops the tailer for good
	h.store.Reset()
	assert.Eventually(t, func() bool {
		return h.do(t, http.MethodGet, "/healthy", "", nil, nil).Code == http.StatusServiceUnavailable
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/ready", "", nil, nil).Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusOf(fault.ErrUnauthorized))
	assert.Equal(t, http.StatusUnauthorized, statusOf(fault.ErrNotAuthenticated))
	assert.Equal(t, http.StatusConflict, statusOf(fault.ErrDuplicateRequest))
	assert.Equal(t, http.StatusBadRequest, statusOf(fault.ErrSendToSelf))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(fault.Unavailable(errors.New("dial tcp"))))
	assert.Equal(t, http.StatusInternalServerError, statusOf(fault.ErrConstraintViolation))
}

func TestEnvFileFromArgs(t *testing.T) {
	assert.Equal(t, "", envFileFromArgs(nil))
	assert.Equal(t, "a.env", envFileFromArgs([]string{"--env-file", "a.env"}))
	assert.Equal(t, "b.env", envFileFromArgs([]string{"-listen", ":1", "-env-file=b.env"}))
	assert.Equal(t, "", envFileFromArgs([]string{"env-file", "c.env"}))
}
