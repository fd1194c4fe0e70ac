package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/case-service/wallet"
	"github.com/radieske/slotbox-platform-poc/internal/wallet-service/repo"
)

type reservation struct {
	userID string
	amount int64
	status string
}

// memRepo reproduz as regras do repo Postgres em memória
type memRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	resv     map[string]*reservation
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[string]int64{}, resv: map[string]*reservation{}}
}

func (m *memRepo) GetOrCreateWallet(_ context.Context, userID string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = 0
	}
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) Deposit(_ context.Context, userID string, amount int64, _ string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return "", 0, repo.ErrNotFound
	}
	m.balances[userID] += amount
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) Reserve(_ context.Context, userID string, amount int64, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok {
		return "", repo.ErrNotFound
	}
	if _, ok := m.resv[ref]; ok {
		return "r-" + ref, nil
	}
	if bal < amount {
		return "", repo.ErrInsufficientFunds
	}
	m.balances[userID] -= amount
	m.resv[ref] = &reservation{userID: userID, amount: amount, status: "PENDING"}
	return "r-" + ref, nil
}

func (m *memRepo) settle(userID, ref, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resv[ref]
	if !ok || r.userID != userID {
		return repo.ErrNotFound
	}
	if r.status != "PENDING" {
		return nil
	}
	if to == "REFUNDED" {
		m.balances[userID] += r.amount
	}
	r.status = to
	return nil
}

func (m *memRepo) Commit(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, "COMMITTED")
}

func (m *memRepo) Refund(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, "REFUNDED")
}

func TestWallet_ReserveCommitRefundWithCaseClient(t *testing.T) {
	mem := newMemRepo()
	mem.balances["user-1"] = 1000
	srv := httptest.NewServer(NewServer(zap.NewNop(), mem).Router())
	defer srv.Close()

	ctx := context.Background()
	cli := wallet.New(srv.URL)

	resID, err := cli.Reserve(ctx, "user-1", 150, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "r-op-1", resID)
	assert.Equal(t, int64(850), mem.balances["user-1"])

	// mesma referência não debita de novo
	_, err = cli.Reserve(ctx, "user-1", 150, "op-1")
	require.NoError(t, err)
	assert.Equal(t, int64(850), mem.balances["user-1"])

	require.NoError(t, cli.Commit(ctx, "user-1", "op-1"))
	// refund depois do commit é no-op
	require.NoError(t, cli.Refund(ctx, "user-1", "op-1"))
	assert.Equal(t, int64(850), mem.balances["user-1"])

	_, err = cli.Reserve(ctx, "user-1", 200, "op-2")
	require.NoError(t, err)
	require.NoError(t, cli.Refund(ctx, "user-1", "op-2"))
	assert.Equal(t, int64(850), mem.balances["user-1"])
}

func TestWallet_RejectionsMapToClientError(t *testing.T) {
	mem := newMemRepo()
	mem.balances["poor"] = 10
	srv := httptest.NewServer(NewServer(zap.NewNop(), mem).Router())
	defer srv.Close()

	ctx := context.Background()
	cli := wallet.New(srv.URL)

	_, err := cli.Reserve(ctx, "poor", 150, "op-1")
	assert.ErrorIs(t, err, wallet.ErrRejected)

	_, err = cli.Reserve(ctx, "ghost", 150, "op-2")
	assert.ErrorIs(t, err, wallet.ErrRejected)

	assert.ErrorIs(t, cli.Commit(ctx, "poor", "unknown"), wallet.ErrRejected)
}

func TestWallet_GetAndDeposit(t *testing.T) {
	mem := newMemRepo()
	h := NewServer(zap.NewNop(), mem).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet?userId=user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"user-1","walletId":"w-user-1","balance_cents":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wallet/deposit",
		strings.NewReader(`{"userId":"user-1","amount_cents":500}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance_cents":500`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wallet/deposit", strings.NewReader(`{"userId":"user-1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
