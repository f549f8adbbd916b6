package handlers

import (
	"net/http"
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/models"
	"pocketledger/internal/repository"
)

// GoalHandler handles savings goal routes.
type GoalHandler struct {
	goalRepo *repository.GoalRepository
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalRepo *repository.GoalRepository) *GoalHandler {
	return &GoalHandler{goalRepo: goalRepo}
}

type goalRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=120"`
	TargetAmount  float64 `json:"target_amount" validate:"required,gt=0"`
	CurrentAmount float64 `json:"current_amount" validate:"gte=0"`
	TargetDate    *string `json:"target_date"`
	Status        string  `json:"status" validate:"omitempty,oneof=active reached abandoned"`
}

func (req *goalRequest) validateTargetDate() error {
	if req.TargetDate == nil || *req.TargetDate == "" {
		req.TargetDate = nil
		return nil
	}
	if _, err := time.Parse("2006-01-02", *req.TargetDate); err != nil {
		return apperrors.Validation("target_date must be YYYY-MM-DD")
	}
	return nil
}

// goalView decorates a goal with its computed progress.
type goalView struct {
	*models.SavingsGoal
	Progress float64 `json:"progress"`
}

// List returns all of the user's savings goals.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	goals, err := h.goalRepo.GetByUserID(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading goals", err))
		return
	}

	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, goalView{SavingsGoal: g, Progress: g.Progress()})
	}
	respondJSON(w, http.StatusOK, map[string]any{"goals": views})
}

// Create adds a new savings goal.
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validateTargetDate(); err != nil {
		respondError(w, err)
		return
	}

	goal := &models.SavingsGoal{
		UserID:        user.ID,
		Name:          strings.TrimSpace(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    req.TargetDate,
		Status:        req.Status,
	}
	id, err := h.goalRepo.Create(goal)
	if err != nil {
		respondError(w, apperrors.Internal("creating goal", err))
		return
	}

	created, err := h.goalRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading goal", err))
		return
	}
	respondJSON(w, http.StatusCreated, goalView{SavingsGoal: created, Progress: created.Progress()})
}

// Update modifies an existing goal.
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	goal, err := h.goalRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading goal", err))
		return
	}
	if goal == nil || goal.UserID != user.ID {
		respondError(w, apperrors.NotFound("goal"))
		return
	}

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validateTargetDate(); err != nil {
		respondError(w, err)
		return
	}

	goal.Name = strings.TrimSpace(req.Name)
	goal.TargetAmount = req.TargetAmount
	goal.CurrentAmount = req.CurrentAmount
	goal.TargetDate = req.TargetDate
	if req.Status != "" {
		goal.Status = req.Status
	}

	if err := h.goalRepo.Update(goal); err != nil {
		respondError(w, apperrors.Internal("updating goal", err))
		return
	}
	respondJSON(w, http.StatusOK, goalView{SavingsGoal: goal, Progress: goal.Progress()})
}

// Delete removes a goal.
func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	goal, err := h.goalRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading goal", err))
		return
	}
	if goal == nil || goal.UserID != user.ID {
		respondError(w, apperrors.NotFound("goal"))
		return
	}

	if err := h.goalRepo.Delete(id); err != nil {
		respondError(w, apperrors.Internal("deleting goal", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "goal deleted"})
}
