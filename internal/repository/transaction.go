package repository

import (
	"database/sql"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// TransactionRepository handles transaction database operations.
type TransactionRepository struct {
	db database.Queryer
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// InsertIgnore inserts a transaction unless its provider transaction id is
// already present. Existing rows are never updated; re-syncing an overlapping
// window is a no-op for rows already ingested. Returns whether a row was
// actually written.
func (r *TransactionRepository) InsertIgnore(txn *models.Transaction) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO transactions (account_id, provider_transaction_id, amount, currency, category_label, merchant_name, posted_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_transaction_id) DO NOTHING
	`, txn.AccountID, txn.ProviderTransactionID, txn.Amount, txn.Currency,
		txn.CategoryLabel, txn.MerchantName, txn.PostedOn)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// GetByProviderTransactionID retrieves a transaction by its provider id.
func (r *TransactionRepository) GetByProviderTransactionID(providerTxnID string) (*models.Transaction, error) {
	row := r.db.QueryRow(`
		SELECT id, account_id, provider_transaction_id, amount, currency, category_label, merchant_name, posted_on, created_at
		FROM transactions
		WHERE provider_transaction_id = ?
	`, providerTxnID)

	return r.scanTransaction(row)
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(id int64) (*models.Transaction, error) {
	row := r.db.QueryRow(`
		SELECT id, account_id, provider_transaction_id, amount, currency, category_label, merchant_name, posted_on, created_at
		FROM transactions
		WHERE id = ?
	`, id)

	return r.scanTransaction(row)
}

// GetByAccountID retrieves transactions for an account with pagination,
// newest first.
func (r *TransactionRepository) GetByAccountID(accountID int64, limit, offset int) ([]*models.Transaction, error) {
	return r.queryTransactions(`
		SELECT id, account_id, provider_transaction_id, amount, currency, category_label, merchant_name, posted_on, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY posted_on DESC, id DESC
		LIMIT ? OFFSET ?
	`, accountID, limit, offset)
}

// GetByUserID retrieves transactions for a user across all linked accounts.
func (r *TransactionRepository) GetByUserID(userID int64, limit, offset int) ([]*models.Transaction, error) {
	return r.queryTransactions(`
		SELECT t.id, t.account_id, t.provider_transaction_id, t.amount, t.currency, t.category_label, t.merchant_name, t.posted_on, t.created_at
		FROM transactions t
		JOIN linked_accounts a ON t.account_id = a.id
		WHERE a.user_id = ?
		ORDER BY t.posted_on DESC, t.id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
}

// GetByUserIDPaginated retrieves all user transactions with full pagination info.
func (r *TransactionRepository) GetByUserIDPaginated(userID int64, p Pagination) (*PaginatedResult[*models.Transaction], error) {
	var total int64
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM transactions t
		JOIN linked_accounts a ON t.account_id = a.id
		WHERE a.user_id = ?
	`, userID).Scan(&total)
	if err != nil {
		return nil, err
	}

	items, err := r.GetByUserID(userID, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}

	result := NewPaginatedResult(items, total, p)
	return &result, nil
}

// GetByCategoryID retrieves a user's transactions linked to a category,
// newest first.
func (r *TransactionRepository) GetByCategoryID(userID, categoryID int64, limit, offset int) ([]*models.Transaction, error) {
	return r.queryTransactions(`
		SELECT t.id, t.account_id, t.provider_transaction_id, t.amount, t.currency, t.category_label, t.merchant_name, t.posted_on, t.created_at
		FROM transactions t
		JOIN linked_accounts a ON t.account_id = a.id
		JOIN category_links cl ON cl.transaction_id = t.id
		WHERE a.user_id = ? AND cl.category_id = ?
		ORDER BY t.posted_on DESC, t.id DESC
		LIMIT ? OFFSET ?
	`, userID, categoryID, limit, offset)
}

// SpendRow is one spending line for the summary aggregation: a positive
// transaction amount with the category it resolved to.
type SpendRow struct {
	CategoryID   int64
	CategoryName string
	WeeklyLimit  *float64
	Amount       float64
}

// GetSpendingSince returns every outflow since the given date (inclusive,
// YYYY-MM-DD) together with its linked category. Inflows (negative provider
// amounts) are excluded.
func (r *TransactionRepository) GetSpendingSince(userID int64, since string) ([]SpendRow, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.name, c.weekly_limit, t.amount
		FROM transactions t
		JOIN linked_accounts a ON t.account_id = a.id
		JOIN category_links cl ON cl.transaction_id = t.id
		JOIN categories c ON c.id = cl.category_id
		WHERE a.user_id = ? AND t.posted_on >= ? AND t.amount > 0
		ORDER BY c.name ASC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]SpendRow, 0)
	for rows.Next() {
		var row SpendRow
		var weeklyLimit sql.NullFloat64
		if err := rows.Scan(&row.CategoryID, &row.CategoryName, &weeklyLimit, &row.Amount); err != nil {
			return nil, err
		}
		if weeklyLimit.Valid {
			row.WeeklyLimit = &weeklyLimit.Float64
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// LinkCategory associates a transaction with a category. A transaction keeps
// its first link; a second attempt is a no-op.
func (r *TransactionRepository) LinkCategory(transactionID, categoryID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO category_links (transaction_id, category_id)
		VALUES (?, ?)
		ON CONFLICT(transaction_id) DO NOTHING
	`, transactionID, categoryID)
	return err
}

// RelinkCategory moves a transaction to a different category, for manual
// recategorization.
func (r *TransactionRepository) RelinkCategory(transactionID, categoryID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO category_links (transaction_id, category_id)
		VALUES (?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET category_id = excluded.category_id
	`, transactionID, categoryID)
	return err
}

// CountByAccountID returns the number of transactions for an account.
func (r *TransactionRepository) CountByAccountID(accountID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM transactions WHERE account_id = ?
	`, accountID).Scan(&count)
	return count, err
}

// CountByUserID returns the number of transactions across a user's accounts.
func (r *TransactionRepository) CountByUserID(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM transactions t
		JOIN linked_accounts a ON t.account_id = a.id
		WHERE a.user_id = ?
	`, userID).Scan(&count)
	return count, err
}

// queryTransactions is a helper to query multiple transactions.
func (r *TransactionRepository) queryTransactions(query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		txn := &models.Transaction{}
		var currency, categoryLabel, merchantName sql.NullString

		err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.ProviderTransactionID,
			&txn.Amount,
			&currency,
			&categoryLabel,
			&merchantName,
			&txn.PostedOn,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if currency.Valid {
			txn.Currency = currency.String
		}
		if categoryLabel.Valid {
			txn.CategoryLabel = categoryLabel.String
		}
		if merchantName.Valid {
			txn.MerchantName = merchantName.String
		}

		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// scanTransaction scans a single row into a Transaction.
func (r *TransactionRepository) scanTransaction(row *sql.Row) (*models.Transaction, error) {
	txn := &models.Transaction{}
	var currency, categoryLabel, merchantName sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.ProviderTransactionID,
		&txn.Amount,
		&currency,
		&categoryLabel,
		&merchantName,
		&txn.PostedOn,
		&txn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if currency.Valid {
		txn.Currency = currency.String
	}
	if categoryLabel.Valid {
		txn.CategoryLabel = categoryLabel.String
	}
	if merchantName.Valid {
		txn.MerchantName = merchantName.String
	}

	return txn, nil
}
