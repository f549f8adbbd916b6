package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// SyncJobRepository handles sync job database operations. Jobs give
// background syncs a durable, pollable outcome instead of failing silently.
type SyncJobRepository struct {
	db database.Queryer
}

// NewSyncJobRepository creates a new SyncJobRepository.
func NewSyncJobRepository(db *database.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Start creates a new sync job with status "started" and returns its ID.
func (r *SyncJobRepository) Start(userID int64, itemType, trigger string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`
		INSERT INTO sync_jobs (id, user_id, item_type, trigger_kind, status, started_at)
		VALUES (?, ?, ?, ?, 'started', ?)
	`, id, userID, itemType, trigger, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// Complete marks a sync job as successful with the ingestion counts.
func (r *SyncJobRepository) Complete(id string, accountsSynced, transactionsSynced, holdingsSynced int) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE sync_jobs
		SET status = 'success', accounts_synced = ?, transactions_synced = ?, holdings_synced = ?,
		    completed_at = ?, duration_ms = (julianday(?) - julianday(started_at)) * 86400000
		WHERE id = ?
	`, accountsSynced, transactionsSynced, holdingsSynced, now, now, id)
	return err
}

// Fail marks a sync job as failed with an error message.
func (r *SyncJobRepository) Fail(id string, errorMsg string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE sync_jobs
		SET status = 'error', error_message = ?, completed_at = ?,
		    duration_ms = (julianday(?) - julianday(started_at)) * 86400000
		WHERE id = ?
	`, errorMsg, now, now, id)
	return err
}

// GetByID retrieves a sync job by ID, scoped to its owning user.
func (r *SyncJobRepository) GetByID(id string, userID int64) (*models.SyncJob, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, item_type, trigger_kind, status, accounts_synced, transactions_synced, holdings_synced, error_message, started_at, completed_at, duration_ms
		FROM sync_jobs
		WHERE id = ? AND user_id = ?
	`, id, userID)

	return r.scanJob(row)
}

// GetRecentByUserID retrieves a user's most recent sync jobs.
func (r *SyncJobRepository) GetRecentByUserID(userID int64, limit int) ([]*models.SyncJob, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, item_type, trigger_kind, status, accounts_synced, transactions_synced, holdings_synced, error_message, started_at, completed_at, duration_ms
		FROM sync_jobs
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*models.SyncJob, 0)
	for rows.Next() {
		job, err := r.scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteOlderThan removes sync jobs started before the given time.
func (r *SyncJobRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sync_jobs WHERE started_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanJob scans a single row into a SyncJob.
func (r *SyncJobRepository) scanJob(row *sql.Row) (*models.SyncJob, error) {
	job := &models.SyncJob{}
	var errorMsg sql.NullString
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ItemType,
		&job.Trigger,
		&job.Status,
		&job.AccountsSynced,
		&job.TransactionsSynced,
		&job.HoldingsSynced,
		&errorMsg,
		&job.StartedAt,
		&completedAt,
		&durationMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if errorMsg.Valid {
		job.ErrorMessage = errorMsg.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		job.DurationMs = durationMs.Int64
	}

	return job, nil
}

// scanJobRows scans the current row of a multi-row result set.
func (r *SyncJobRepository) scanJobRows(rows *sql.Rows) (*models.SyncJob, error) {
	job := &models.SyncJob{}
	var errorMsg sql.NullString
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := rows.Scan(
		&job.ID,
		&job.UserID,
		&job.ItemType,
		&job.Trigger,
		&job.Status,
		&job.AccountsSynced,
		&job.TransactionsSynced,
		&job.HoldingsSynced,
		&errorMsg,
		&job.StartedAt,
		&completedAt,
		&durationMs,
	)
	if err != nil {
		return nil, err
	}

	if errorMsg.Valid {
		job.ErrorMessage = errorMsg.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		job.DurationMs = durationMs.Int64
	}

	return job, nil
}
