package handlers

import (
	"net/http"

	"github.com/username/ledgercore/src/models"
	"github.com/username/ledgercore/src/services"
	"github.com/username/ledgercore/src/utils"
)

type CategoryHandler struct {
	categories services.CategoryStore
}

func NewCategoryHandler(categories services.CategoryStore) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type createCategoryRequest struct {
	Name         string              `json:"name"`
	CategoryType models.CategoryType `json:"category_type"`
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := h.categories.Create(r.Context(), req.Name, req.CategoryType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, category, http.StatusCreated)
}

func (h *CategoryHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), models.CategoryType(r.URL.Query().Get("type")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, categories, http.StatusOK)
}
