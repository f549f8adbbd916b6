package repository

import (
	"database/sql"
	"errors"
	"time"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// ItemRepository handles provider item (linked connection) database operations.
// The access token column only ever holds ciphertext.
type ItemRepository struct {
	db database.Queryer
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ItemRepository) WithTx(tx *sql.Tx) *ItemRepository {
	return &ItemRepository{db: tx}
}

// Upsert stores the encrypted access token for a (user, item type) pair.
// Re-linking the same connection type rotates the stored token in place.
func (r *ItemRepository) Upsert(item *models.ProviderItem) error {
	_, err := r.db.Exec(`
		INSERT INTO provider_items (user_id, item_type, access_token, token_nonce, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, item_type) DO UPDATE SET
			access_token = excluded.access_token,
			token_nonce = excluded.token_nonce,
			updated_at = excluded.updated_at
	`, item.UserID, item.ItemType, item.AccessToken, item.TokenNonce, time.Now())
	return err
}

// GetByUserAndType retrieves the item for a user and connection type.
// Returns nil if the user has no such connection.
func (r *ItemRepository) GetByUserAndType(userID int64, itemType string) (*models.ProviderItem, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, item_type, access_token, token_nonce,
		       last_sync_at, last_sync_status, last_sync_error, created_at, updated_at
		FROM provider_items
		WHERE user_id = ? AND item_type = ?
	`, userID, itemType)

	return r.scanItem(row)
}

// GetByUserID retrieves all provider items for a user.
func (r *ItemRepository) GetByUserID(userID int64) ([]*models.ProviderItem, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, item_type, access_token, token_nonce,
		       last_sync_at, last_sync_status, last_sync_error, created_at, updated_at
		FROM provider_items
		WHERE user_id = ?
		ORDER BY item_type ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.ProviderItem, 0)
	for rows.Next() {
		item, err := r.scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateSyncStatus records the outcome of the most recent sync on the item.
func (r *ItemRepository) UpdateSyncStatus(id int64, status, errorMsg string) error {
	result, err := r.db.Exec(`
		UPDATE provider_items
		SET last_sync_at = ?, last_sync_status = ?, last_sync_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, time.Now(), status, errorMsg, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("provider item not found")
	}
	return nil
}

// DeleteByUserAndType removes the item for a user and connection type.
func (r *ItemRepository) DeleteByUserAndType(userID int64, itemType string) error {
	_, err := r.db.Exec(`
		DELETE FROM provider_items WHERE user_id = ? AND item_type = ?
	`, userID, itemType)
	return err
}

// scanItem scans a single row into a ProviderItem.
func (r *ItemRepository) scanItem(row *sql.Row) (*models.ProviderItem, error) {
	item := &models.ProviderItem{}
	var lastSyncAt sql.NullTime
	var lastSyncStatus, lastSyncError sql.NullString

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ItemType,
		&item.AccessToken,
		&item.TokenNonce,
		&lastSyncAt,
		&lastSyncStatus,
		&lastSyncError,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastSyncAt.Valid {
		item.LastSyncAt = &lastSyncAt.Time
	}
	if lastSyncStatus.Valid {
		item.LastSyncStatus = lastSyncStatus.String
	}
	if lastSyncError.Valid {
		item.LastSyncError = lastSyncError.String
	}

	return item, nil
}

// scanItemRows scans the current row of a multi-row result set.
func (r *ItemRepository) scanItemRows(rows *sql.Rows) (*models.ProviderItem, error) {
	item := &models.ProviderItem{}
	var lastSyncAt sql.NullTime
	var lastSyncStatus, lastSyncError sql.NullString

	err := rows.Scan(
		&item.ID,
		&item.UserID,
		&item.ItemType,
		&item.AccessToken,
		&item.TokenNonce,
		&lastSyncAt,
		&lastSyncStatus,
		&lastSyncError,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSyncAt.Valid {
		item.LastSyncAt = &lastSyncAt.Time
	}
	if lastSyncStatus.Valid {
		item.LastSyncStatus = lastSyncStatus.String
	}
	if lastSyncError.Valid {
		item.LastSyncError = lastSyncError.String
	}

	return item, nil
}
