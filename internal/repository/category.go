package repository

import (
	"database/sql"
	"errors"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// CategoryRepository handles category database operations.
type CategoryRepository struct {
	db database.Queryer
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CategoryRepository) WithTx(tx *sql.Tx) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

// Create inserts a new category and returns its ID.
func (r *CategoryRepository) Create(category *models.Category) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO categories (user_id, name, color, weekly_limit)
		VALUES (?, ?, COALESCE(NULLIF(?, ''), '#6366f1'), ?)
	`, category.UserID, category.Name, category.Color, category.WeeklyLimit)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Resolve returns the ID of the user's category with the given name, creating
// it if it does not exist. The insert tolerates the unique (user_id, name)
// conflict, so two concurrent resolvers for the same name both land on the
// single surviving row.
func (r *CategoryRepository) Resolve(userID int64, name string) (int64, error) {
	_, err := r.db.Exec(`
		INSERT INTO categories (user_id, name)
		VALUES (?, ?)
		ON CONFLICT(user_id, name) DO NOTHING
	`, userID, name)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(`
		SELECT id FROM categories WHERE user_id = ? AND name = ?
	`, userID, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(id int64) (*models.Category, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, color, weekly_limit, created_at
		FROM categories
		WHERE id = ?
	`, id)

	category := &models.Category{}
	var weeklyLimit sql.NullFloat64
	err := row.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Color,
		&weeklyLimit,
		&category.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if weeklyLimit.Valid {
		category.WeeklyLimit = &weeklyLimit.Float64
	}
	return category, nil
}

// GetByUserID retrieves all categories for a user, sorted by name.
func (r *CategoryRepository) GetByUserID(userID int64) ([]*models.Category, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, color, weekly_limit, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		category := &models.Category{}
		var weeklyLimit sql.NullFloat64
		err := rows.Scan(
			&category.ID,
			&category.UserID,
			&category.Name,
			&category.Color,
			&weeklyLimit,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if weeklyLimit.Valid {
			category.WeeklyLimit = &weeklyLimit.Float64
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Update updates an existing category.
func (r *CategoryRepository) Update(category *models.Category) error {
	result, err := r.db.Exec(`
		UPDATE categories
		SET name = ?, color = ?, weekly_limit = ?
		WHERE id = ?
	`, category.Name, category.Color, category.WeeklyLimit, category.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("category not found")
	}
	return nil
}

// Delete removes a category by ID. Category links cascade away; the
// transactions themselves are untouched.
func (r *CategoryRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("category not found")
	}
	return nil
}

// CountByUserID returns the number of categories for a user.
func (r *CategoryRepository) CountByUserID(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM categories WHERE user_id = ?
	`, userID).Scan(&count)
	return count, err
}

// NameExists checks if a category name already exists for a user.
// Pass excludeID > 0 to exclude a specific category (useful for updates).
func (r *CategoryRepository) NameExists(userID int64, name string, excludeID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ?`
	args := []any{userID, name}

	if excludeID > 0 {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	err := r.db.QueryRow(query, args...).Scan(&count)
	return count > 0, err
}
