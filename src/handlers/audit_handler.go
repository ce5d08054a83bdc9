package handlers

import (
	"net/http"

	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

type AuditHandler struct {
	log services.AuditLog
}

func NewAuditHandler(log services.AuditLog) *AuditHandler {
	return &AuditHandler{log: log}
}

// HandleListAuditEntries lists the caller's own audit history, newest first.
func (h *AuditHandler) HandleListAuditEntries(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	entries, err := h.log.Recent(r.Context(), actorID, int(min(limit, maxPageLimit)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, entries, http.StatusOK)
}
