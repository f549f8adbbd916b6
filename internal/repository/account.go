package repository

import (
	"database/sql"
	"errors"
	"time"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// AccountRepository handles linked account database operations.
type AccountRepository struct {
	db database.Queryer
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AccountRepository) WithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

// Upsert inserts a linked account or refreshes its mutable fields. The
// provider account id and account type are fixed at first insert; later
// syncs only overwrite name, subtype, balances and the sync timestamp.
func (r *AccountRepository) Upsert(account *models.LinkedAccount) error {
	_, err := r.db.Exec(`
		INSERT INTO linked_accounts (user_id, provider_account_id, name, account_type, subtype, current_balance, available_balance, currency, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), 'USD'), ?)
		ON CONFLICT(provider_account_id) DO UPDATE SET
			name = excluded.name,
			subtype = excluded.subtype,
			current_balance = excluded.current_balance,
			available_balance = excluded.available_balance,
			currency = excluded.currency,
			last_synced_at = excluded.last_synced_at
	`, account.UserID, account.ProviderAccountID, account.Name, account.AccountType,
		account.Subtype, account.CurrentBalance, account.AvailableBalance, account.Currency, time.Now())
	return err
}

// GetByID retrieves a linked account by ID.
func (r *AccountRepository) GetByID(id int64) (*models.LinkedAccount, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, provider_account_id, name, account_type, subtype, current_balance, available_balance, currency, last_synced_at, created_at
		FROM linked_accounts
		WHERE id = ?
	`, id)

	return r.scanAccount(row)
}

// GetByProviderAccountID retrieves a linked account by its provider id.
func (r *AccountRepository) GetByProviderAccountID(providerAccountID string) (*models.LinkedAccount, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, provider_account_id, name, account_type, subtype, current_balance, available_balance, currency, last_synced_at, created_at
		FROM linked_accounts
		WHERE provider_account_id = ?
	`, providerAccountID)

	return r.scanAccount(row)
}

// GetByUserID retrieves all linked accounts for a user, sorted by name.
func (r *AccountRepository) GetByUserID(userID int64) ([]*models.LinkedAccount, error) {
	return r.queryAccounts(`
		SELECT id, user_id, provider_account_id, name, account_type, subtype, current_balance, available_balance, currency, last_synced_at, created_at
		FROM linked_accounts
		WHERE user_id = ?
		ORDER BY name ASC
	`, userID)
}

// GetInvestmentsByUserID retrieves only investment accounts for a user.
func (r *AccountRepository) GetInvestmentsByUserID(userID int64) ([]*models.LinkedAccount, error) {
	return r.queryAccounts(`
		SELECT id, user_id, provider_account_id, name, account_type, subtype, current_balance, available_balance, currency, last_synced_at, created_at
		FROM linked_accounts
		WHERE user_id = ? AND account_type = 'investment'
		ORDER BY name ASC
	`, userID)
}

// DeleteByUserAndItemType removes the accounts that belong to one connection
// type. Investment connections own the investment accounts; the bank
// connection owns everything else. Transactions, holdings and category links
// go with them through foreign key cascades.
func (r *AccountRepository) DeleteByUserAndItemType(userID int64, itemType string) error {
	var err error
	if itemType == models.ItemTypeInvestment {
		_, err = r.db.Exec(`
			DELETE FROM linked_accounts WHERE user_id = ? AND account_type = 'investment'
		`, userID)
	} else {
		_, err = r.db.Exec(`
			DELETE FROM linked_accounts WHERE user_id = ? AND account_type != 'investment'
		`, userID)
	}
	return err
}

// Delete removes a linked account by ID.
func (r *AccountRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM linked_accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("linked account not found")
	}
	return nil
}

// CountByUserID returns the number of linked accounts for a user.
func (r *AccountRepository) CountByUserID(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM linked_accounts WHERE user_id = ?
	`, userID).Scan(&count)
	return count, err
}

// TotalBalanceByUserID returns the sum of current balances across a user's
// linked accounts.
func (r *AccountRepository) TotalBalanceByUserID(userID int64) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT SUM(current_balance) FROM linked_accounts WHERE user_id = ?
	`, userID).Scan(&total)
	if err != nil {
		return 0, err
	}
	if total.Valid {
		return total.Float64, nil
	}
	return 0, nil
}

// scanAccount scans a single row into a LinkedAccount.
func (r *AccountRepository) scanAccount(row *sql.Row) (*models.LinkedAccount, error) {
	account := &models.LinkedAccount{}
	var subtype sql.NullString
	var availableBalance sql.NullFloat64
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.ProviderAccountID,
		&account.Name,
		&account.AccountType,
		&subtype,
		&account.CurrentBalance,
		&availableBalance,
		&account.Currency,
		&lastSyncedAt,
		&account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if subtype.Valid {
		account.Subtype = subtype.String
	}
	if availableBalance.Valid {
		account.AvailableBalance = &availableBalance.Float64
	}
	if lastSyncedAt.Valid {
		account.LastSyncedAt = &lastSyncedAt.Time
	}

	return account, nil
}

// queryAccounts is a helper to query multiple linked accounts.
func (r *AccountRepository) queryAccounts(query string, args ...any) ([]*models.LinkedAccount, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*models.LinkedAccount, 0)
	for rows.Next() {
		account := &models.LinkedAccount{}
		var subtype sql.NullString
		var availableBalance sql.NullFloat64
		var lastSyncedAt sql.NullTime

		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.ProviderAccountID,
			&account.Name,
			&account.AccountType,
			&subtype,
			&account.CurrentBalance,
			&availableBalance,
			&account.Currency,
			&lastSyncedAt,
			&account.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if subtype.Valid {
			account.Subtype = subtype.String
		}
		if availableBalance.Valid {
			account.AvailableBalance = &availableBalance.Float64
		}
		if lastSyncedAt.Valid {
			account.LastSyncedAt = &lastSyncedAt.Time
		}

		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
