package handlers

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/models"
	"pocketledger/internal/repository"
	"pocketledger/internal/services"
)

// CategoryHandler handles budgeting category routes.
type CategoryHandler struct {
	categoryRepo *repository.CategoryRepository
	spending     *services.SpendingService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryRepo *repository.CategoryRepository, spending *services.SpendingService) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo, spending: spending}
}

type categoryRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=64"`
	Color       string   `json:"color" validate:"omitempty,hexcolor"`
	WeeklyLimit *float64 `json:"weekly_limit" validate:"omitempty,gt=0"`
}

// List returns all of the user's categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	categories, err := h.categoryRepo.GetByUserID(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading categories", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// Create adds a new category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)

	exists, err := h.categoryRepo.NameExists(user.ID, name, 0)
	if err != nil {
		respondError(w, apperrors.Internal("checking category name", err))
		return
	}
	if exists {
		respondError(w, apperrors.Conflict("category name already exists"))
		return
	}

	category := &models.Category{
		UserID:      user.ID,
		Name:        name,
		Color:       req.Color,
		WeeklyLimit: req.WeeklyLimit,
	}
	id, err := h.categoryRepo.Create(category)
	if err != nil {
		respondError(w, apperrors.Internal("creating category", err))
		return
	}

	created, err := h.categoryRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading category", err))
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Update renames or reconfigures a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	category, err := h.categoryRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading category", err))
		return
	}
	if category == nil || category.UserID != user.ID {
		respondError(w, apperrors.NotFound("category"))
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)

	exists, err := h.categoryRepo.NameExists(user.ID, name, id)
	if err != nil {
		respondError(w, apperrors.Internal("checking category name", err))
		return
	}
	if exists {
		respondError(w, apperrors.Conflict("category name already exists"))
		return
	}

	category.Name = name
	if req.Color != "" {
		category.Color = req.Color
	}
	category.WeeklyLimit = req.WeeklyLimit

	if err := h.categoryRepo.Update(category); err != nil {
		respondError(w, apperrors.Internal("updating category", err))
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// Delete removes a category. Linked transactions survive, unlinked.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	category, err := h.categoryRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading category", err))
		return
	}
	if category == nil || category.UserID != user.ID {
		respondError(w, apperrors.NotFound("category"))
		return
	}

	if err := h.categoryRepo.Delete(id); err != nil {
		respondError(w, apperrors.Internal("deleting category", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// Spending returns the per-category spending summary for a lookback window.
func (h *CategoryHandler) Spending(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	summary, err := h.spending.Summary(user.ID, days)
	if err != nil {
		respondError(w, apperrors.Internal("computing spending summary", err))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
