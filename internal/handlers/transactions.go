package handlers

import (
	"net/http"
	"strconv"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/middleware"
	"pocketledger/internal/repository"
)

// TransactionHandler handles ingested transaction routes.
type TransactionHandler struct {
	transactionRepo *repository.TransactionRepository
	categoryRepo    *repository.CategoryRepository
	accountRepo     *repository.AccountRepository
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionRepo *repository.TransactionRepository,
	categoryRepo *repository.CategoryRepository,
	accountRepo *repository.AccountRepository,
) *TransactionHandler {
	return &TransactionHandler{
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		accountRepo:     accountRepo,
	}
}

// List returns the user's stored transactions, newest first, paginated.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	p := repository.NewPagination(limit, offset)

	result, err := h.transactionRepo.GetByUserIDPaginated(user.ID, p)
	if err != nil {
		respondError(w, apperrors.Internal("loading transactions", err))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type recategorizeRequest struct {
	CategoryID int64 `json:"category_id" validate:"required,gt=0"`
}

// Recategorize moves a transaction to a different category, overriding the
// classifier's original link.
func (h *TransactionHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := urlID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.transactionRepo.GetByID(id)
	if err != nil {
		respondError(w, apperrors.Internal("loading transaction", err))
		return
	}
	if txn == nil {
		respondError(w, apperrors.NotFound("transaction"))
		return
	}
	account, err := h.accountRepo.GetByID(txn.AccountID)
	if err != nil {
		respondError(w, apperrors.Internal("loading account", err))
		return
	}
	if account == nil || account.UserID != user.ID {
		respondError(w, apperrors.NotFound("transaction"))
		return
	}

	var req recategorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	category, err := h.categoryRepo.GetByID(req.CategoryID)
	if err != nil {
		respondError(w, apperrors.Internal("loading category", err))
		return
	}
	if category == nil || category.UserID != user.ID {
		respondError(w, apperrors.NotFound("category"))
		return
	}

	if err := h.transactionRepo.RelinkCategory(id, req.CategoryID); err != nil {
		respondError(w, apperrors.Internal("relinking transaction", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "transaction recategorized"})
}
