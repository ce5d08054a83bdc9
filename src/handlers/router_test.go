package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security"
	"github.com/username/ledgercore/src/services"
)

const (
	testSecret       = "0123456789abcdef0123456789abcdef"
	actor      int64 = 7
	otherActor int64 = 99
)

type apiClient struct {
	t      *testing.T
	router chi.Router
	auth   *security.AuthService
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	conn, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, database.Migrate(conn, path))

	auditLog := services.NewDBAuditSink(conn)
	ledger := services.NewLedger(
		conn,
		cache.New(time.Minute, 0),
		services.NewOwnershipPermissions(conn, nil),
		services.MultiAuditSink{auditLog, services.LogAuditSink{}},
		services.NewOverdraftPolicy([]string{"liability"}),
		"EUR",
	)
	auth := security.NewAuthService(testSecret, time.Minute)
	router := NewRouter(Services{
		Accounts:   services.NewAccountStore(ledger),
		Ledger:     services.NewTransactionLedger(ledger),
		Transfers:  services.NewTransferCoordinator(ledger),
		Reversals:  services.NewReversalHandler(ledger),
		Reconciler: services.NewReconciler(ledger),
		Categories: services.NewCategoryStore(ledger),
		Audit:      auditLog,
	}, auth)
	return &apiClient{t: t, router: router, auth: auth}
}

func (c *apiClient) do(actorID int64, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if actorID > 0 {
		token, err := c.auth.GenerateToken(strconv.FormatInt(actorID, 10))
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (c *apiClient) createAccount(actorID int64, body map[string]any) models.Account {
	c.t.Helper()
	rec := c.do(actorID, http.MethodPost, "/api/accounts", body)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Account](c.t, rec)
}

func TestRouter_Authentication(t *testing.T) {
	api := newAPI(t)

	rec := api.do(0, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = api.do(0, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(0, http.MethodGet, "/api/accounts", nil, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := security.NewAuthService("ffffffffffffffffffffffffffffffff", time.Minute)
	forged, err := other.GenerateToken("7")
	require.NoError(t, err)
	rec = api.do(0, http.MethodGet, "/api/accounts", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	nonNumeric, err := api.auth.GenerateToken("alice")
	require.NoError(t, err)
	rec = api.do(0, http.MethodGet, "/api/accounts", nil, "Authorization", "Bearer "+nonNumeric)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(actor, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequestIDIsPropagated(t *testing.T) {
	api := newAPI(t)
	id := "3f1c2d8e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"

	rec := api.do(0, http.MethodGet, "/", nil, "X-Request-ID", id)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	rec = api.do(0, http.MethodGet, "/", nil, "X-Request-ID", "<script>")
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestRouter_LedgerFlow(t *testing.T) {
	api := newAPI(t)

	checking := api.createAccount(actor, map[string]any{"name": "Checking", "account_type": "asset", "initial_balance": "100.00"})
	savings := api.createAccount(actor, map[string]any{"name": "Savings", "account_type": "asset", "initial_balance": 0})
	assert.Equal(t, models.MustMoney("100.00"), checking.Balance)

	rec := api.do(actor, http.MethodPost, "/api/transactions", map[string]any{
		"account_id":       checking.ID,
		"transaction_type": "expense",
		"amount":           "30.00",
		"transaction_date": "2026-01-10",
		"description":      "Groceries",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	expense := decode[models.Transaction](t, rec)
	assert.Equal(t, models.MustMoney("-30.00"), expense.Amount)

	rec = api.do(actor, http.MethodPost, "/api/transfers", map[string]any{
		"from_account_id": checking.ID,
		"to_account_id":   savings.ID,
		"amount":          "20.00",
		"transfer_date":   "2026-01-11",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	transfer := decode[models.TransferResult](t, rec)
	assert.NotZero(t, transfer.TransferID)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/transactions/%d/transfer", transfer.ToTransactionID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	record := decode[models.TransferRecord](t, rec)
	assert.Equal(t, transfer.TransferID, record.ID)
	assert.Equal(t, transfer.FromTransactionID, record.FromTransactionID)
	assert.Equal(t, models.MustMoney("20.00"), record.Amount)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/transactions/%d/transfer", expense.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d", checking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MustMoney("50.00"), decode[models.Account](t, rec).Balance)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d/transactions", checking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Transaction](t, rec), 2)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/transactions?account_id=%d&type=transfer_in", savings.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	legs := decode[[]models.Transaction](t, rec)
	require.Len(t, legs, 1)
	assert.Equal(t, transfer.ToTransactionID, legs[0].ID)

	rec = api.do(actor, http.MethodPost, fmt.Sprintf("/api/transactions/%d/reverse", expense.ID), map[string]any{"reason": "refunded"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reversal := decode[models.Transaction](t, rec)
	assert.Equal(t, models.MustMoney("30.00"), reversal.Amount)
	require.NotNil(t, reversal.ReversesTransactionID)
	assert.Equal(t, expense.ID, *reversal.ReversesTransactionID)

	rec = api.do(actor, http.MethodPost, fmt.Sprintf("/api/transactions/%d/reverse", expense.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d/summary?start_date=2026-01-01&end_date=2026-01-31", checking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[models.TransactionSummary](t, rec)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, models.MustMoney("-50.00"), summary.Net)

	rec = api.do(actor, http.MethodPost, fmt.Sprintf("/api/accounts/%d/reconcile", checking.ID), map[string]any{
		"start_date": "2000-01-01",
		"end_date":   "2100-12-31",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[models.ReconciliationResult](t, rec)
	assert.True(t, result.IsBalanced)
	assert.Equal(t, models.MustMoney("80.00"), result.ActualBalance)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d/reconciliations", checking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ReconciliationLog](t, rec), 1)

	rec = api.do(actor, http.MethodGet, "/api/audit?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[[]models.AuditEntry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, services.OpReconcile, entries[0].OperationType)
	assert.Equal(t, actor, entries[0].ActorID)
	assert.Greater(t, entries[0].ID, entries[1].ID)

	rec = api.do(actor+1, http.MethodGet, "/api/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.AuditEntry](t, rec))

	rec = api.do(actor, http.MethodGet, "/api/audit?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_TransactionEditing(t *testing.T) {
	api := newAPI(t)
	acct := api.createAccount(actor, map[string]any{"name": "Wallet", "account_type": "asset", "initial_balance": "10.00"})

	rec := api.do(actor, http.MethodPost, "/api/transactions", map[string]any{
		"account_id":       acct.ID,
		"transaction_type": "income",
		"amount":           "5.00",
		"transaction_date": "2026-02-01",
		"description":      "Gift",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	income := decode[models.Transaction](t, rec)

	rec = api.do(actor, http.MethodPut, fmt.Sprintf("/api/transactions/%d", income.ID), map[string]any{
		"account_id":       acct.ID,
		"transaction_type": "income",
		"amount":           "7.50",
		"transaction_date": "2026-02-01",
		"description":      "Gift",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.MustMoney("7.50"), decode[models.Transaction](t, rec).Amount)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	assert.Equal(t, models.MustMoney("17.50"), decode[models.Account](t, rec).Balance)

	rec = api.do(actor, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", income.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/transactions/%d", income.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	assert.Equal(t, models.MustMoney("10.00"), decode[models.Account](t, rec).Balance)
}

func TestRouter_ErrorMapping(t *testing.T) {
	api := newAPI(t)
	checking := api.createAccount(actor, map[string]any{"name": "Checking", "account_type": "asset", "initial_balance": "10.00"})
	savings := api.createAccount(actor, map[string]any{"name": "Savings", "account_type": "asset"})
	private := api.createAccount(otherActor, map[string]any{"name": "Private", "account_type": "asset", "user_id": otherActor})

	rec := api.do(actor, http.MethodPost, "/api/transactions", map[string]any{
		"account_id":       checking.ID,
		"transaction_type": "expense",
		"amount":           "1.00",
		"transaction_date": "2026-03-01",
		"description":      "Coffee",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing account", http.MethodGet, "/api/accounts/9999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/accounts/abc", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/accounts", map[string]any{"name": "X", "account_type": "asset", "colour": "red"}, http.StatusBadRequest},
		{"invalid account type", http.MethodPost, "/api/accounts", map[string]any{"name": "X", "account_type": "stock"}, http.StatusBadRequest},
		{"duplicate name", http.MethodPost, "/api/accounts", map[string]any{"name": "checking", "account_type": "asset"}, http.StatusConflict},
		{"insufficient funds", http.MethodPost, "/api/transfers", map[string]any{"from_account_id": checking.ID, "to_account_id": savings.ID, "amount": "500.00"}, http.StatusUnprocessableEntity},
		{"same account transfer", http.MethodPost, "/api/transfers", map[string]any{"from_account_id": checking.ID, "to_account_id": checking.ID, "amount": "1.00"}, http.StatusBadRequest},
		{"permission denied", http.MethodPost, "/api/transactions", map[string]any{"account_id": private.ID, "transaction_type": "income", "amount": "1.00", "transaction_date": "2026-03-01", "description": "x"}, http.StatusForbidden},
		{"delete with history", http.MethodDelete, fmt.Sprintf("/api/accounts/%d", checking.ID), nil, http.StatusConflict},
		{"summary without range", http.MethodGet, fmt.Sprintf("/api/accounts/%d/summary", checking.ID), nil, http.StatusBadRequest},
		{"bad query date", http.MethodGet, "/api/transactions?start_date=2026-13-01", nil, http.StatusBadRequest},
		{"bad reconcile date", http.MethodPost, fmt.Sprintf("/api/accounts/%d/reconcile", checking.ID), map[string]any{"start_date": "yesterday", "end_date": "2026-01-01"}, http.StatusBadRequest},
		{"unknown api route", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(actor, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if rec.Code >= 400 {
				body := decode[map[string]string](t, rec)
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestRouter_AccountUpdateAndDelete(t *testing.T) {
	api := newAPI(t)
	acct := api.createAccount(actor, map[string]any{"name": "Old", "account_type": "asset"})

	rec := api.do(actor, http.MethodPatch, fmt.Sprintf("/api/accounts/%d", acct.ID), map[string]any{"name": "New", "status": "inactive"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Account](t, rec)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, models.AccountStatusInactive, updated.Status)

	rec = api.do(actor, http.MethodGet, "/api/accounts?status=inactive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Account](t, rec), 1)

	rec = api.do(actor, http.MethodPost, "/api/transactions", map[string]any{
		"account_id":       acct.ID,
		"transaction_type": "income",
		"amount":           "1.00",
		"transaction_date": "2026-03-01",
		"description":      "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(actor, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(actor, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acct.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_BalanceSummaryETag(t *testing.T) {
	api := newAPI(t)
	api.createAccount(actor, map[string]any{"name": "Cash", "account_type": "asset", "initial_balance": "40.00"})
	api.createAccount(actor, map[string]any{"name": "Card", "account_type": "liability", "initial_balance": "15.00"})

	rec := api.do(actor, http.MethodGet, "/api/accounts/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	summary := decode[models.BalanceSummary](t, rec)
	assert.Equal(t, models.MustMoney("25.00"), summary.NetWorth)

	rec = api.do(actor, http.MethodGet, "/api/accounts/summary", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	api.createAccount(actor, map[string]any{"name": "Jar", "account_type": "asset", "initial_balance": "1.00"})
	rec = api.do(actor, http.MethodGet, "/api/accounts/summary", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestRouter_Categories(t *testing.T) {
	api := newAPI(t)

	rec := api.do(actor, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "category_type": "expense"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(actor, http.MethodPost, "/api/categories", map[string]any{"name": "Salary", "category_type": "income"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(actor, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "category_type": "expense"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(actor, http.MethodGet, "/api/categories?type=expense", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]models.Category](t, rec)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name)

	rec = api.do(actor, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Category](t, rec), 2)
}
