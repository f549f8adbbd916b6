package repository

import (
	"database/sql"
	"errors"
	"time"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// HoldingRepository handles holding database operations.
type HoldingRepository struct {
	db database.Queryer
}

// NewHoldingRepository creates a new HoldingRepository.
func NewHoldingRepository(db *database.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{db: tx}
}

// Upsert inserts or refreshes a holding keyed by (account_id, security_id).
// Unlike transactions, holdings are mutable snapshots: every sync is
// authoritative for the current state of the position.
func (r *HoldingRepository) Upsert(holding *models.Holding) error {
	_, err := r.db.Exec(`
		INSERT INTO holdings (account_id, security_id, external_id, symbol, name, quantity, price, value, currency, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), 'USD'), ?)
		ON CONFLICT(account_id, security_id) DO UPDATE SET
			external_id = excluded.external_id,
			symbol = excluded.symbol,
			name = excluded.name,
			quantity = excluded.quantity,
			price = excluded.price,
			value = excluded.value,
			currency = excluded.currency,
			last_updated = excluded.last_updated
	`, holding.AccountID, holding.SecurityID, holding.ExternalID, holding.Symbol,
		holding.Name, holding.Quantity, holding.Price, holding.Value,
		holding.Currency, time.Now())
	return err
}

// GetByID retrieves a holding by ID.
func (r *HoldingRepository) GetByID(id int64) (*models.Holding, error) {
	row := r.db.QueryRow(`
		SELECT id, account_id, security_id, external_id, symbol, name, quantity, price, value, currency, last_updated, created_at
		FROM holdings
		WHERE id = ?
	`, id)

	return r.scanHolding(row)
}

// GetByAccountID retrieves all holdings for an account, largest first.
func (r *HoldingRepository) GetByAccountID(accountID int64) ([]*models.Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, account_id, security_id, external_id, symbol, name, quantity, price, value, currency, last_updated, created_at
		FROM holdings
		WHERE account_id = ?
		ORDER BY value DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanHoldings(rows)
}

// GetTotalValueByAccountID returns the total value of all holdings for an account.
func (r *HoldingRepository) GetTotalValueByAccountID(accountID int64) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT SUM(value) FROM holdings WHERE account_id = ?
	`, accountID).Scan(&total)
	if err != nil {
		return 0, err
	}
	if total.Valid {
		return total.Float64, nil
	}
	return 0, nil
}

// Delete removes a holding by ID.
func (r *HoldingRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("holding not found")
	}
	return nil
}

// DeleteByAccountID removes all holdings for an account.
func (r *HoldingRepository) DeleteByAccountID(accountID int64) error {
	_, err := r.db.Exec(`DELETE FROM holdings WHERE account_id = ?`, accountID)
	return err
}

// DeleteStale removes positions the provider stopped reporting, identified by
// an update timestamp older than the sync that just completed.
func (r *HoldingRepository) DeleteStale(accountID int64, since time.Time) error {
	_, err := r.db.Exec(`DELETE FROM holdings WHERE account_id = ? AND last_updated < ?`, accountID, since)
	return err
}

// CountByAccountID returns the number of holdings for an account.
func (r *HoldingRepository) CountByAccountID(accountID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM holdings WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}

// scanHolding scans a single row into a Holding.
func (r *HoldingRepository) scanHolding(row *sql.Row) (*models.Holding, error) {
	holding := &models.Holding{}
	var externalID, symbol, name sql.NullString
	var price sql.NullFloat64

	err := row.Scan(
		&holding.ID,
		&holding.AccountID,
		&holding.SecurityID,
		&externalID,
		&symbol,
		&name,
		&holding.Quantity,
		&price,
		&holding.Value,
		&holding.Currency,
		&holding.LastUpdated,
		&holding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		holding.ExternalID = externalID.String
	}
	if symbol.Valid {
		holding.Symbol = symbol.String
	}
	if name.Valid {
		holding.Name = name.String
	}
	if price.Valid {
		holding.Price = price.Float64
	}

	return holding, nil
}

// scanHoldings scans multiple rows into Holdings.
func (r *HoldingRepository) scanHoldings(rows *sql.Rows) ([]*models.Holding, error) {
	holdings := make([]*models.Holding, 0)

	for rows.Next() {
		holding := &models.Holding{}
		var externalID, symbol, name sql.NullString
		var price sql.NullFloat64

		err := rows.Scan(
			&holding.ID,
			&holding.AccountID,
			&holding.SecurityID,
			&externalID,
			&symbol,
			&name,
			&holding.Quantity,
			&price,
			&holding.Value,
			&holding.Currency,
			&holding.LastUpdated,
			&holding.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if externalID.Valid {
			holding.ExternalID = externalID.String
		}
		if symbol.Valid {
			holding.Symbol = symbol.String
		}
		if name.Valid {
			holding.Name = name.String
		}
		if price.Valid {
			holding.Price = price.Float64
		}

		holdings = append(holdings, holding)
	}

	return holdings, rows.Err()
}
