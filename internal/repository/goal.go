package repository

import (
	"database/sql"
	"errors"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

// GoalRepository handles savings goal database operations.
type GoalRepository struct {
	db database.Queryer
}

// NewGoalRepository creates a new GoalRepository.
func NewGoalRepository(db *database.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create inserts a new goal and returns its ID.
func (r *GoalRepository) Create(goal *models.SavingsGoal) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO savings_goals (user_id, name, target_amount, current_amount, target_date, status)
		VALUES (?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), 'active'))
	`, goal.UserID, goal.Name, goal.TargetAmount, goal.CurrentAmount, goal.TargetDate, goal.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves a goal by ID.
func (r *GoalRepository) GetByID(id int64) (*models.SavingsGoal, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, target_amount, current_amount, target_date, status, created_at
		FROM savings_goals
		WHERE id = ?
	`, id)

	goal := &models.SavingsGoal{}
	var targetDate sql.NullString

	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Name,
		&goal.TargetAmount,
		&goal.CurrentAmount,
		&targetDate,
		&goal.Status,
		&goal.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if targetDate.Valid {
		goal.TargetDate = &targetDate.String
	}

	return goal, nil
}

// GetByUserID retrieves all goals for a user, soonest deadline first.
func (r *GoalRepository) GetByUserID(userID int64) ([]*models.SavingsGoal, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, target_amount, current_amount, target_date, status, created_at
		FROM savings_goals
		WHERE user_id = ?
		ORDER BY COALESCE(target_date, '9999-12-31') ASC, name ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]*models.SavingsGoal, 0)
	for rows.Next() {
		goal := &models.SavingsGoal{}
		var targetDate sql.NullString

		err := rows.Scan(
			&goal.ID,
			&goal.UserID,
			&goal.Name,
			&goal.TargetAmount,
			&goal.CurrentAmount,
			&targetDate,
			&goal.Status,
			&goal.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if targetDate.Valid {
			goal.TargetDate = &targetDate.String
		}

		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// Update updates an existing goal.
func (r *GoalRepository) Update(goal *models.SavingsGoal) error {
	result, err := r.db.Exec(`
		UPDATE savings_goals
		SET name = ?, target_amount = ?, current_amount = ?, target_date = ?, status = ?
		WHERE id = ?
	`, goal.Name, goal.TargetAmount, goal.CurrentAmount, goal.TargetDate, goal.Status, goal.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("goal not found")
	}
	return nil
}

// Delete removes a goal by ID.
func (r *GoalRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errors.New("goal not found")
	}
	return nil
}

// CountByUserID returns the number of goals for a user.
func (r *GoalRepository) CountByUserID(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM savings_goals WHERE user_id = ?
	`, userID).Scan(&count)
	return count, err
}
