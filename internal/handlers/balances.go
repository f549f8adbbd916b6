package handlers

import (
	"log"
	"net/http"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/repository"
	"pocketledger/internal/sync"
)

// BalanceHandler handles aggregate balance routes.
type BalanceHandler struct {
	syncService *sync.Service
	accountRepo *repository.AccountRepository
	userRepo    *repository.UserRepository
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(syncService *sync.Service, accountRepo *repository.AccountRepository, userRepo *repository.UserRepository) *BalanceHandler {
	return &BalanceHandler{syncService: syncService, accountRepo: accountRepo, userRepo: userRepo}
}

type cashBalanceRequest struct {
	CashBalance float64 `json:"cash_balance" validate:"gte=0"`
}

// Get returns current account balances plus the user's manual cash balance.
// Balances come live from the provider when a connection is linked; when the
// provider is unreachable or nothing is linked, the last synced balances are
// served instead.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	source := "live"
	var total float64
	accounts := make([]map[string]any, 0)

	live, err := h.syncService.LiveAccounts(user.ID)
	if err == nil {
		for _, acc := range live {
			accounts = append(accounts, map[string]any{
				"provider_account_id": acc.AccountID,
				"name":                acc.Name,
				"account_type":        acc.Type,
				"current_balance":     acc.Balances.Current,
				"currency":            acc.Balances.ISOCurrencyCode,
			})
			total += acc.Balances.Current
		}
	} else {
		if !apperrors.IsNotLinked(err) {
			log.Printf("[HTTP] Live balances unavailable for user %d, serving stored: %v", user.ID, err)
		}
		source = "stored"
		stored, err := h.accountRepo.GetByUserID(user.ID)
		if err != nil {
			respondError(w, apperrors.Internal("loading accounts", err))
			return
		}
		for _, acc := range stored {
			accounts = append(accounts, map[string]any{
				"provider_account_id": acc.ProviderAccountID,
				"name":                acc.Name,
				"account_type":        acc.AccountType,
				"current_balance":     acc.CurrentBalance,
				"currency":            acc.Currency,
			})
			total += acc.CurrentBalance
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"accounts":      accounts,
		"source":        source,
		"total_balance": total,
		"cash_balance":  user.CashBalance,
		"net_worth":     total + user.CashBalance,
	})
}

// UpdateCash sets the user's manually tracked cash balance.
func (h *BalanceHandler) UpdateCash(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req cashBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.userRepo.UpdateCashBalance(user.ID, req.CashBalance); err != nil {
		respondError(w, apperrors.Internal("updating cash balance", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cash_balance": req.CashBalance})
}
