package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/security/validation"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

const (
	maxRequestBodyBytes = 1 << 20
	defaultPageLimit    = 100
	maxPageLimit        = 1000
)

// writeServiceError maps a ledger error kind to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrHasDependentRecords):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "internal error", status)
		return
	}
	utils.SendJSONError(w, err.Error(), status)
}

func requireActor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID, ok := GetActorIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
	}
	return actorID, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		utils.SendJSONError(w, fmt.Sprintf("invalid %s", name), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, &services.ValidationError{Field: key, Message: fmt.Sprintf("%q is not a valid number", raw)}
	}
	return v, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := validation.ValidateDateString(raw, key)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

func requiredDateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := queryDate(r, "start_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryDate(r, "end_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, &services.ValidationError{Field: "start_date", Message: "start_date and end_date are required"}
	}
	return start, end, nil
}

func transactionQuery(r *http.Request) (models.TransactionFilter, models.Page, error) {
	var f models.TransactionFilter
	var err error
	if f.AccountID, err = queryInt64(r, "account_id"); err != nil {
		return f, models.Page{}, err
	}
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return f, models.Page{}, err
	}
	if f.StartDate, err = queryDate(r, "start_date"); err != nil {
		return f, models.Page{}, err
	}
	if f.EndDate, err = queryDate(r, "end_date"); err != nil {
		return f, models.Page{}, err
	}
	f.TransactionType = models.TransactionType(r.URL.Query().Get("type"))
	f.Search = r.URL.Query().Get("search")

	limit, err := queryInt64(r, "limit")
	if err != nil {
		return f, models.Page{}, err
	}
	offset, err := queryInt64(r, "offset")
	if err != nil {
		return f, models.Page{}, err
	}
	page := models.Page{Limit: int(limit), Offset: int(offset)}
	if page.Limit == 0 {
		page.Limit = defaultPageLimit
	}
	page.Limit = min(page.Limit, maxPageLimit)
	return f, page, nil
}
