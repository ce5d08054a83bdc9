package handlers

import (
	"net/http"

	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

type TransferHandler struct {
	transfers services.TransferCoordinator
}

func NewTransferHandler(transfers services.TransferCoordinator) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

func (h *TransferHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req models.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transfers.Transfer(r.Context(), req, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, result, http.StatusCreated)
}

func (h *TransferHandler) HandleGetTransferForTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	record, err := h.transfers.ForTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, record, http.StatusOK)
}
