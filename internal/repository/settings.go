package repository

import (
	"database/sql"
	"time"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// SettingsRepository handles user settings database operations.
type SettingsRepository struct {
	db database.Queryer
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByUserID retrieves a user's settings, falling back to defaults when the
// user has never saved any.
func (r *SettingsRepository) GetByUserID(userID int64) (*models.UserSettings, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, email_notifications, sms_notifications, push_notifications, updated_at
		FROM user_settings
		WHERE user_id = ?
	`, userID)

	settings := &models.UserSettings{}
	var email, sms, push int
	err := row.Scan(
		&settings.ID,
		&settings.UserID,
		&email,
		&sms,
		&push,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return &models.UserSettings{
			UserID:             userID,
			EmailNotifications: true,
			SMSNotifications:   false,
			PushNotifications:  true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	settings.EmailNotifications = email == 1
	settings.SMSNotifications = sms == 1
	settings.PushNotifications = push == 1
	return settings, nil
}

// Upsert saves a user's settings, creating the row on first save.
func (r *SettingsRepository) Upsert(settings *models.UserSettings) error {
	_, err := r.db.Exec(`
		INSERT INTO user_settings (user_id, email_notifications, sms_notifications, push_notifications, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email_notifications = excluded.email_notifications,
			sms_notifications = excluded.sms_notifications,
			push_notifications = excluded.push_notifications,
			updated_at = excluded.updated_at
	`, settings.UserID,
		boolToInt(settings.EmailNotifications),
		boolToInt(settings.SMSNotifications),
		boolToInt(settings.PushNotifications),
		time.Now())
	return err
}

// boolToInt converts a boolean to SQLite integer (0 or 1).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
