package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoreau/tether/internal/habit"
	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/points"
)

type HabitStore struct {
	db *sql.DB
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db}
}

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	var active int

	err := scanner.Scan(
		&h.ID, &h.Title, &h.Description, &h.Frequency, &h.PointsValue,
		&h.AssignedTo, &h.CreatedBy, &active, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.IsActive = active != 0
	return &h, nil
}

const habitCols = `id, title, description, frequency, points_value, assigned_to, created_by, is_active, created_at, updated_at`

func (s *HabitStore) Create(title, description string, frequency habit.Frequency, pointsValue int, assignedTo, createdBy int64) (*model.Habit, error) {
	result, err := s.db.Exec(
		`INSERT INTO habits (title, description, frequency, points_value, assigned_to, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, string(frequency), pointsValue, assignedTo, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HabitStore) GetByID(id int64) (*model.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitCols+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *HabitStore) ListByAssignee(userID int64) ([]model.Habit, error) {
	return s.list(`WHERE assigned_to = ?`, userID)
}

func (s *HabitStore) ListByCreator(userID int64) ([]model.Habit, error) {
	return s.list(`WHERE created_by = ?`, userID)
}

func (s *HabitStore) list(where string, args ...any) ([]model.Habit, error) {
	rows, err := s.db.Query(
		`SELECT `+habitCols+` FROM habits `+where+` ORDER BY is_active DESC, title ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// Update edits the habit's descriptive fields. PointsValue changes apply to
// future completions only; past completions keep their earned snapshot.
func (s *HabitStore) Update(id int64, title, description string, frequency habit.Frequency, pointsValue int) (*model.Habit, error) {
	_, err := s.db.Exec(
		`UPDATE habits SET title = ?, description = ?, frequency = ?, points_value = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, string(frequency), pointsValue, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return s.GetByID(id)
}

// SetActive soft-deactivates or reactivates a habit. Habits are never
// hard-deleted once completions exist.
func (s *HabitStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE habits SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		a, id,
	)
	if err != nil {
		return fmt.Errorf("set habit active: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.HabitCompletion, error) {
	var c model.HabitCompletion
	err := scanner.Scan(&c.ID, &c.HabitID, &c.UserID, &c.PointsEarned, &c.Notes, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, habit_id, user_id, points_earned, notes, completed_at`

// Complete marks the habit done for the current frequency window and credits
// the habit's points in one transaction. The duplicate check, completion
// insert, and ledger append either all commit or none do.
func (s *HabitStore) Complete(habitID, userID int64, notes string, now time.Time) (*model.HabitCompletion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+habitCols+` FROM habits WHERE id = ?`, habitID)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	if !h.IsActive {
		return nil, ErrInactive
	}
	if h.AssignedTo != userID {
		return nil, ErrNotAssigned
	}

	windowStart := habit.WindowStart(habit.Frequency(h.Frequency), now)
	var already int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM habit_completions WHERE habit_id = ? AND user_id = ? AND completed_at >= ?`,
		habitID, userID, windowStart.UTC(),
	).Scan(&already)
	if err != nil {
		return nil, fmt.Errorf("check existing completion: %w", err)
	}
	if already > 0 {
		return nil, ErrAlreadyCompleted
	}

	result, err := tx.Exec(
		`INSERT INTO habit_completions (habit_id, user_id, points_earned, notes, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		habitID, userID, h.PointsValue, notes, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	completionID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, userID, h.PointsValue, string(points.TypeBonus),
		fmt.Sprintf("Habit accomplished: %s", h.Title), habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert bonus transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	row = s.db.QueryRow(`SELECT `+completionCols+` FROM habit_completions WHERE id = ?`, completionID)
	return scanCompletion(row)
}

// UndoComplete removes a completion and appends an offsetting negative entry,
// keeping the ledger append-only.
func (s *HabitStore) UndoComplete(completionID, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+completionCols+` FROM habit_completions WHERE id = ? AND user_id = ?`,
		completionID, userID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("get completion: %w", err)
	}

	var title string
	if err := tx.QueryRow(`SELECT title FROM habits WHERE id = ?`, c.HabitID).Scan(&title); err != nil {
		return fmt.Errorf("get habit title: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM habit_completions WHERE id = ?`, completionID); err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, userID, -c.PointsEarned, string(points.TypeBonus),
		fmt.Sprintf("Completion undone: %s", title), c.HabitID,
	)
	if err != nil {
		return fmt.Errorf("insert reversal transaction: %w", err)
	}

	return tx.Commit()
}

func (s *HabitStore) ListCompletionsByHabit(habitID int64) ([]model.HabitCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM habit_completions WHERE habit_id = ? ORDER BY completed_at DESC`,
		habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.HabitCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// LastCompletion returns the user's most recent completion of a habit, or nil.
func (s *HabitStore) LastCompletion(habitID, userID int64) (*model.HabitCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM habit_completions
		 WHERE habit_id = ? AND user_id = ? ORDER BY completed_at DESC LIMIT 1`,
		habitID, userID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completion: %w", err)
	}
	return c, nil
}
