package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/provider"
	"pocketledger/internal/repository"
	"pocketledger/internal/sync"
)

// LinkHandler handles provider linking: token exchange, sync, teardown.
type LinkHandler struct {
	client      provider.Client
	syncService *sync.Service
	accountRepo *repository.AccountRepository
	holdingRepo *repository.HoldingRepository
	jobRepo     *repository.SyncJobRepository
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(
	client provider.Client,
	syncService *sync.Service,
	accountRepo *repository.AccountRepository,
	holdingRepo *repository.HoldingRepository,
	jobRepo *repository.SyncJobRepository,
) *LinkHandler {
	return &LinkHandler{
		client:      client,
		syncService: syncService,
		accountRepo: accountRepo,
		holdingRepo: holdingRepo,
		jobRepo:     jobRepo,
	}
}

type exchangeRequest struct {
	PublicToken string `json:"public_token" validate:"required"`
	AccountType string `json:"account_type" validate:"required,oneof=bank investment"`
}

type refreshRequest struct {
	AccountType string `json:"account_type" validate:"required,oneof=bank investment"`
}

type unlinkRequest struct {
	AccountType string `json:"account_type" validate:"omitempty,oneof=bank investment"`
}

// CreateLinkToken creates a short-lived provider link token for the client.
func (h *LinkHandler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	resp, err := h.client.CreateLinkToken(user.ID)
	if err != nil {
		respondError(w, apperrors.Provider("creating link token", err))
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// LinkTokenQR returns the link token as a QR PNG for mobile handoff.
func (h *LinkHandler) LinkTokenQR(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	resp, err := h.client.CreateLinkToken(user.ID)
	if err != nil {
		respondError(w, apperrors.Provider("creating link token", err))
		return
	}

	png, err := qrcode.Encode(resp.LinkToken, qrcode.Medium, 256)
	if err != nil {
		respondError(w, apperrors.Internal("encoding QR code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Exchange swaps a public token for an access token, stores it encrypted and
// schedules the initial sync. Responds 202 with a pollable job id.
func (h *LinkHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	jobID, err := h.syncService.Link(user.ID, req.PublicToken, req.AccountType)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "sync_started",
		"message": "account linked, initial sync running",
		"job_id":  jobID,
	})
}

// Refresh re-runs the sync pipeline synchronously.
func (h *LinkHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.syncService.Refresh(user.ID, req.AccountType)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":             "sync complete",
		"job_id":              result.JobID,
		"accounts_synced":     result.AccountsSynced,
		"transactions_synced": result.TransactionsSynced,
		"holdings_synced":     result.HoldingsSynced,
	})
}

// SyncStatus returns the state of one sync job.
func (h *LinkHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		respondError(w, apperrors.Validation("invalid job id"))
		return
	}

	job, err := h.jobRepo.GetByID(jobID, user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading sync job", err))
		return
	}
	if job == nil {
		respondError(w, apperrors.NotFound("sync job"))
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Accounts returns the live provider account list without persisting it.
func (h *LinkHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	accounts, err := h.syncService.LiveAccounts(user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Investments returns the stored investment accounts with nested holdings.
func (h *LinkHandler) Investments(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	accounts, err := h.accountRepo.GetInvestmentsByUserID(user.ID)
	if err != nil {
		respondError(w, apperrors.Internal("loading investment accounts", err))
		return
	}

	totalValue := 0.0
	for _, account := range accounts {
		holdings, err := h.holdingRepo.GetByAccountID(account.ID)
		if err != nil {
			respondError(w, apperrors.Internal("loading holdings", err))
			return
		}
		account.Holdings = holdings
		for _, holding := range holdings {
			totalValue += holding.Value
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"accounts":    accounts,
		"total_value": totalValue,
	})
}

// Unlink tears down connections and all data ingested through them. Without
// a body (or without account_type) every connection goes; with one, only that
// connection.
func (h *LinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req unlinkRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	if req.AccountType == "" {
		if err := h.syncService.UnlinkAll(user.ID); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"message": "all connections removed",
		})
		return
	}

	if err := h.syncService.Unlink(user.ID, req.AccountType); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": req.AccountType + " connection removed",
	})
}
