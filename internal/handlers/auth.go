package handlers

import (
	"net/http"
	"strings"

	"pocketledger/internal/auth"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/repository"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	userRepo *repository.UserRepository
	tokens   *auth.TokenManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userRepo *repository.UserRepository, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, tokens: tokens}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=1"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new user and returns a bearer token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := h.userRepo.EmailExists(req.Email)
	if err != nil {
		respondError(w, apperrors.Internal("checking email", err))
		return
	}
	if exists {
		respondError(w, apperrors.Conflict("email already registered"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, apperrors.Internal("hashing password", err))
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
	}
	id, err := h.userRepo.Create(user)
	if err != nil {
		respondError(w, apperrors.Internal("creating user", err))
		return
	}
	user.ID = id

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		respondError(w, apperrors.Internal("issuing token", err))
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, apperrors.Internal("finding user", err))
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, apperrors.Unauthorized("invalid email or password"))
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		respondError(w, apperrors.Internal("issuing token", err))
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
