package handlers

import (
	"net/http"
	"time"

	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

type AccountHandler struct {
	accounts   services.AccountStore
	ledger     services.TransactionLedger
	reconciler services.Reconciler
}

func NewAccountHandler(accounts services.AccountStore, ledger services.TransactionLedger, reconciler services.Reconciler) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger, reconciler: reconciler}
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req models.NewAccount
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), req, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, account, http.StatusCreated)
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accounts, err := h.accounts.List(r.Context(), models.AccountFilter{
		AccountType: models.AccountType(q.Get("type")),
		Status:      models.AccountStatus(q.Get("status")),
		NamePattern: q.Get("name"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, account, http.StatusOK)
}

func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req models.AccountUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Update(r.Context(), id, req, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, account, http.StatusOK)
}

func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), id, actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetBalanceSummary serves the per-type totals with an ETag so clients can
// revalidate cheaply.
func (h *AccountHandler) HandleGetBalanceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.accounts.BalanceSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	etag, etagErr := utils.GenerateETag(summary)
	if etagErr != nil {
		logger.FromContext(r.Context()).Error("Failed to generate ETag for balance summary", "error", etagErr)
	} else {
		w.Header().Set("ETag", "\""+etag+"\"")
		if utils.ETagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *AccountHandler) HandleGetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	start, end, err := requiredDateRange(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := h.accounts.TransactionSummary(r.Context(), id, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *AccountHandler) HandleListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.accounts.Get(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter, page, err := transactionQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter.AccountID = id
	writeTransactions(w, r, h.ledger, filter, page)
}

type reconcileRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *AccountHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req reconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		writeServiceError(w, r, &services.ValidationError{Field: "start_date", Message: "expected YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		writeServiceError(w, r, &services.ValidationError{Field: "end_date", Message: "expected YYYY-MM-DD"})
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), id, start, end, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *AccountHandler) HandleListReconciliations(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	logs, err := h.reconciler.Logs(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, logs, http.StatusOK)
}
