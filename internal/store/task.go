package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/points"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.SharedTask, error) {
	var t model.SharedTask
	err := scanner.Scan(
		&t.ID, &t.PartnershipID, &t.CreatedBy, &t.Title, &t.Description,
		&t.PointsValue, &t.CompletionTarget, &t.CurrentProgress,
		&t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, partnership_id, created_by, title, description, points_value, completion_target, current_progress, due_date, completed_at, created_at, updated_at`

func (s *TaskStore) Create(partnershipID, createdBy int64, title, description string, pointsValue, completionTarget int, dueDate *time.Time) (*model.SharedTask, error) {
	if completionTarget < 1 {
		completionTarget = 1
	}
	result, err := s.db.Exec(
		`INSERT INTO shared_tasks (partnership_id, created_by, title, description, points_value, completion_target, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		partnershipID, createdBy, title, description, pointsValue, completionTarget, dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shared task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.SharedTask, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM shared_tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shared task: %w", err)
	}
	return t, nil
}

// ListByPartnership returns a partnership's tasks, open ones first.
func (s *TaskStore) ListByPartnership(partnershipID int64) ([]model.SharedTask, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM shared_tasks
		 WHERE partnership_id = ?
		 ORDER BY completed_at IS NOT NULL, due_date IS NULL, due_date ASC, created_at DESC`,
		partnershipID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.SharedTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shared task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Contribute records progress toward a shared task. The contribution insert,
// progress update, and any completion payout happen in one transaction: the
// contribution that crosses the target completes the task and credits the
// task's points to both partners exactly once.
func (s *TaskStore) Contribute(taskID, userID int64, amount int, note string) (*model.SharedTask, error) {
	if amount < 1 {
		return nil, fmt.Errorf("contribution amount must be positive, got %d", amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+taskCols+` FROM shared_tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get shared task: %w", err)
	}
	if t.CompletedAt != nil {
		return nil, ErrAlreadyCompleted
	}

	var dominantID, submissiveID int64
	err = tx.QueryRow(
		`SELECT dominant_id, submissive_id FROM partnerships WHERE id = ? AND status = 'accepted'`,
		t.PartnershipID,
	).Scan(&dominantID, &submissiveID)
	if err == sql.ErrNoRows {
		return nil, ErrInactive
	}
	if err != nil {
		return nil, fmt.Errorf("get partnership: %w", err)
	}
	if userID != dominantID && userID != submissiveID {
		return nil, ErrNotAuthorized
	}

	if _, err := tx.Exec(
		`INSERT INTO task_contributions (task_id, user_id, amount, note) VALUES (?, ?, ?, ?)`,
		taskID, userID, amount, note,
	); err != nil {
		return nil, fmt.Errorf("insert contribution: %w", err)
	}

	progress := t.CurrentProgress + amount
	if progress > t.CompletionTarget {
		progress = t.CompletionTarget
	}
	crossed := t.CurrentProgress < t.CompletionTarget && progress >= t.CompletionTarget

	if crossed {
		_, err = tx.Exec(
			`UPDATE shared_tasks SET current_progress = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			progress, taskID,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE shared_tasks SET current_progress = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			progress, taskID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	if crossed {
		reason := fmt.Sprintf("Shared task completed: %s", t.Title)
		for _, memberID := range []int64{dominantID, submissiveID} {
			if _, err := tx.Exec(
				`INSERT INTO points_transactions (user_id, created_by, points, type, reason, reference_id)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				memberID, userID, t.PointsValue, string(points.TypeBonus), reason, taskID,
			); err != nil {
				return nil, fmt.Errorf("insert payout transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(taskID)
}

func (s *TaskStore) ListContributions(taskID int64) ([]model.TaskContribution, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, user_id, amount, note, created_at FROM task_contributions
		 WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []model.TaskContribution
	for rows.Next() {
		var c model.TaskContribution
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Amount, &c.Note, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func (s *TaskStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM shared_tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shared task: %w", err)
	}
	return nil
}
