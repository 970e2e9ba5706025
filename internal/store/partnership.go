package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoreau/tether/internal/model"
)

type PartnershipStore struct {
	db *sql.DB
}

func NewPartnershipStore(db *sql.DB) *PartnershipStore {
	return &PartnershipStore{db: db}
}

func scanPartnership(scanner interface{ Scan(...any) error }) (*model.Partnership, error) {
	var p model.Partnership
	err := scanner.Scan(
		&p.ID, &p.DominantID, &p.SubmissiveID, &p.CreatedBy, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const partnershipCols = `id, dominant_id, submissive_id, created_by, status, created_at, updated_at`

// Propose creates a pending partnership. At most one live (pending or
// accepted) partnership may exist per ordered pair; a second proposal is
// rejected with ErrPartnershipExists.
func (s *PartnershipStore) Propose(dominantID, submissiveID, createdBy int64) (*model.Partnership, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM partnerships
		 WHERE dominant_id = ? AND submissive_id = ? AND status IN ('pending', 'accepted')`,
		dominantID, submissiveID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check live partnership: %w", err)
	}
	if exists > 0 {
		return nil, ErrPartnershipExists
	}

	result, err := tx.Exec(
		`INSERT INTO partnerships (dominant_id, submissive_id, created_by) VALUES (?, ?, ?)`,
		dominantID, submissiveID, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert partnership: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *PartnershipStore) GetByID(id int64) (*model.Partnership, error) {
	row := s.db.QueryRow(`SELECT `+partnershipCols+` FROM partnerships WHERE id = ?`, id)
	p, err := scanPartnership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partnership: %w", err)
	}
	return p, nil
}

func (s *PartnershipStore) ListByUser(userID int64) ([]model.Partnership, error) {
	rows, err := s.db.Query(
		`SELECT `+partnershipCols+` FROM partnerships
		 WHERE dominant_id = ? OR submissive_id = ? ORDER BY created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list partnerships: %w", err)
	}
	defer rows.Close()

	var partnerships []model.Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partnership: %w", err)
		}
		partnerships = append(partnerships, *p)
	}
	return partnerships, rows.Err()
}

// GetAcceptedForUser returns the user's accepted partnership, or nil.
func (s *PartnershipStore) GetAcceptedForUser(userID int64) (*model.Partnership, error) {
	row := s.db.QueryRow(
		`SELECT `+partnershipCols+` FROM partnerships
		 WHERE (dominant_id = ? OR submissive_id = ?) AND status = 'accepted'
		 ORDER BY updated_at DESC LIMIT 1`,
		userID, userID,
	)
	p, err := scanPartnership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get accepted partnership: %w", err)
	}
	return p, nil
}

// GetAcceptedBetween returns the accepted partnership joining the two users
// in either role order, or nil.
func (s *PartnershipStore) GetAcceptedBetween(userA, userB int64) (*model.Partnership, error) {
	row := s.db.QueryRow(
		`SELECT `+partnershipCols+` FROM partnerships
		 WHERE status = 'accepted'
		   AND ((dominant_id = ? AND submissive_id = ?) OR (dominant_id = ? AND submissive_id = ?))
		 LIMIT 1`,
		userA, userB, userB, userA,
	)
	p, err := scanPartnership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partnership between users: %w", err)
	}
	return p, nil
}

// Accept transitions pending -> accepted. Only the counterparty (a member who
// did not create the proposal) may accept.
func (s *PartnershipStore) Accept(id, userID int64) (*model.Partnership, error) {
	return s.respond(id, userID, "accepted")
}

// Reject transitions pending -> rejected. Only the counterparty may reject.
func (s *PartnershipStore) Reject(id, userID int64) (*model.Partnership, error) {
	return s.respond(id, userID, "rejected")
}

func (s *PartnershipStore) respond(id, userID int64, status string) (*model.Partnership, error) {
	result, err := s.db.Exec(
		`UPDATE partnerships SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending' AND created_by != ?
		   AND (dominant_id = ? OR submissive_id = ?)`,
		status, id, userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update partnership status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionError(id, userID, true)
	}
	return s.GetByID(id)
}

// Dissolve transitions accepted -> dissolved. Either member may dissolve.
func (s *PartnershipStore) Dissolve(id, userID int64) (*model.Partnership, error) {
	result, err := s.db.Exec(
		`UPDATE partnerships SET status = 'dissolved', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'accepted' AND (dominant_id = ? OR submissive_id = ?)`,
		id, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("dissolve partnership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionError(id, userID, false)
	}
	return s.GetByID(id)
}

// transitionError distinguishes an authorization failure from an illegal
// transition after a conditional update matched no rows.
func (s *PartnershipStore) transitionError(id, userID int64, requireCounterparty bool) error {
	p, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if p == nil {
		return sql.ErrNoRows
	}
	if !p.HasMember(userID) {
		return ErrNotAuthorized
	}
	if requireCounterparty && p.CreatedBy == userID {
		return ErrNotAuthorized
	}
	return ErrInvalidTransition
}
