package handlers

import (
	"net/http"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/models"
	"pocketledger/internal/repository"
)

// SettingsHandler handles user notification settings.
type SettingsHandler struct {
	settingsRepo *repository.SettingsRepository
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsRepo *repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo}
}

type settingsRequest struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	PushNotifications  bool `json:"push_notifications"`
}

// Get returns the user's settings, falling back to defaults if never saved.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	settings, err := h.settingsRepo.GetByUserID(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading settings", err))
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// Update saves the user's settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	settings := &models.UserSettings{
		UserID:             user.ID,
		EmailNotifications: req.EmailNotifications,
		SMSNotifications:   req.SMSNotifications,
		PushNotifications:  req.PushNotifications,
	}
	if err := h.settingsRepo.Upsert(settings); err != nil {
		respondError(w, apperrors.Internal("saving settings", err))
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
