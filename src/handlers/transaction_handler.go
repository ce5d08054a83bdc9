// src/handlers/transaction_handler.go
package handlers

import (
	"net/http"

	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

type TransactionHandler struct {
	ledger    services.TransactionLedger
	reversals services.ReversalHandler
}

func NewTransactionHandler(ledger services.TransactionLedger, reversals services.ReversalHandler) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, reversals: reversals}
}

func (h *TransactionHandler) HandlePostTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req models.TransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.ledger.Post(r.Context(), req, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, page, err := transactionQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeTransactions(w, r, h.ledger, filter, page)
}

func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	tx, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req models.TransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.ledger.Update(r.Context(), id, req, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.ledger.Delete(r.Context(), id, actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reverseRequest struct {
	Reason string `json:"reason"`
}

func (h *TransactionHandler) HandleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	reversal, err := h.reversals.Reverse(r.Context(), id, req.Reason, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, reversal, http.StatusCreated)
}

// writeTransactions drains one page of the ledger query into the response.
func writeTransactions(w http.ResponseWriter, r *http.Request, ledger services.TransactionLedger, filter models.TransactionFilter, page models.Page) {
	txs := []models.Transaction{}
	for tx, err := range ledger.Query(r.Context(), filter, page) {
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		txs = append(txs, tx)
	}
	utils.SendJSON(w, txs, http.StatusOK)
}
