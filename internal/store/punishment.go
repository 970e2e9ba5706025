package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoreau/tether/internal/model"
	"github.com/jmoreau/tether/internal/punishment"
)

type PunishmentStore struct {
	db *sql.DB
}

func NewPunishmentStore(db *sql.DB) *PunishmentStore {
	return &PunishmentStore{db: db}
}

func scanPunishment(scanner interface{ Scan(...any) error }) (*model.Punishment, error) {
	var p model.Punishment
	var active int

	err := scanner.Scan(
		&p.ID, &p.Title, &p.Description, &p.Severity, &p.Category,
		&p.CreatedBy, &p.ForUser, &active, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.IsActive = active != 0
	return &p, nil
}

const punishmentCols = `id, title, description, severity, category, created_by, for_user, is_active, created_at`

func (s *PunishmentStore) Create(title, description, severity, category string, createdBy, forUser int64) (*model.Punishment, error) {
	result, err := s.db.Exec(
		`INSERT INTO punishments (title, description, severity, category, created_by, for_user)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, severity, category, createdBy, forUser,
	)
	if err != nil {
		return nil, fmt.Errorf("insert punishment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PunishmentStore) GetByID(id int64) (*model.Punishment, error) {
	row := s.db.QueryRow(`SELECT `+punishmentCols+` FROM punishments WHERE id = ?`, id)
	p, err := scanPunishment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get punishment: %w", err)
	}
	return p, nil
}

func (s *PunishmentStore) ListForUser(userID int64) ([]model.Punishment, error) {
	rows, err := s.db.Query(
		`SELECT `+punishmentCols+` FROM punishments WHERE for_user = ? ORDER BY is_active DESC, severity, title`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list punishments: %w", err)
	}
	defer rows.Close()

	var punishments []model.Punishment
	for rows.Next() {
		p, err := scanPunishment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan punishment: %w", err)
		}
		punishments = append(punishments, *p)
	}
	return punishments, rows.Err()
}

func (s *PunishmentStore) Update(id int64, title, description, severity, category string) (*model.Punishment, error) {
	_, err := s.db.Exec(
		`UPDATE punishments SET title = ?, description = ?, severity = ?, category = ? WHERE id = ?`,
		title, description, severity, category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update punishment: %w", err)
	}
	return s.GetByID(id)
}

func (s *PunishmentStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	if _, err := s.db.Exec(`UPDATE punishments SET is_active = ? WHERE id = ?`, a, id); err != nil {
		return fmt.Errorf("set punishment active: %w", err)
	}
	return nil
}

// --- Assignment methods ---

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.PunishmentAssignment, error) {
	var a model.PunishmentAssignment
	err := scanner.Scan(
		&a.ID, &a.PunishmentID, &a.AssignedTo, &a.AssignedBy, &a.Status,
		&a.Notes, &a.AssignedAt, &a.CompletedAt, &a.ValidatedBy, &a.ValidatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const assignmentCols = `id, punishment_id, assigned_to, assigned_by, status, notes, assigned_at, completed_at, validated_by, validated_at`

// Assign opens an assignment of a punishment template against its target
// user. The template must be active, and nobody assigns to themselves.
func (s *PunishmentStore) Assign(punishmentID, assignerID int64, notes string) (*model.PunishmentAssignment, error) {
	p, err := s.GetByID(punishmentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, sql.ErrNoRows
	}
	if !p.IsActive {
		return nil, ErrInactive
	}
	if p.CreatedBy != assignerID || p.ForUser == assignerID {
		return nil, ErrNotAuthorized
	}

	result, err := s.db.Exec(
		`INSERT INTO punishment_assignments (punishment_id, assigned_to, assigned_by, notes)
		 VALUES (?, ?, ?, ?)`,
		punishmentID, p.ForUser, assignerID, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAssignment(id)
}

func (s *PunishmentStore) GetAssignment(id int64) (*model.PunishmentAssignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM punishment_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *PunishmentStore) ListAssignmentsByUser(userID int64) ([]model.PunishmentAssignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM punishment_assignments
		 WHERE assigned_to = ? ORDER BY assigned_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.PunishmentAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// CompleteAssignment moves assigned -> completed, by the assignee only.
func (s *PunishmentStore) CompleteAssignment(assignmentID, userID int64) (*model.PunishmentAssignment, error) {
	result, err := s.db.Exec(
		`UPDATE punishment_assignments SET status = 'completed', completed_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'assigned' AND assigned_to = ?`,
		assignmentID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	if err := s.assignmentTransitionError(result, assignmentID, punishment.StatusCompleted); err != nil {
		return nil, err
	}
	return s.GetAssignment(assignmentID)
}

// ValidateAssignment moves completed -> validated, by the original assigner.
func (s *PunishmentStore) ValidateAssignment(assignmentID, validatorID int64) (*model.PunishmentAssignment, error) {
	result, err := s.db.Exec(
		`UPDATE punishment_assignments SET status = 'validated', validated_by = ?, validated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'completed' AND assigned_by = ?`,
		validatorID, assignmentID, validatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("validate assignment: %w", err)
	}
	if err := s.assignmentTransitionError(result, assignmentID, punishment.StatusValidated); err != nil {
		return nil, err
	}
	return s.GetAssignment(assignmentID)
}

func (s *PunishmentStore) assignmentTransitionError(result sql.Result, assignmentID int64, to punishment.AssignmentStatus) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	a, err := s.GetAssignment(assignmentID)
	if err != nil {
		return err
	}
	if a == nil {
		return sql.ErrNoRows
	}
	if !punishment.CanTransition(punishment.AssignmentStatus(a.Status), to) {
		return ErrInvalidTransition
	}
	return ErrNotAuthorized
}
