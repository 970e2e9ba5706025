package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoreau/tether/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.DisplayName, &p.Role, &p.Bio, &p.ThemeColor,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const profileCols = `id, user_id, display_name, role, bio, theme_color, created_at, updated_at`

func (s *ProfileStore) Create(userID int64, displayName, role string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT INTO profiles (user_id, display_name, role) VALUES (?, ?, ?)`,
		userID, displayName, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByUserID(userID)
}

func (s *ProfileStore) GetByUserID(userID int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) Update(userID int64, displayName, role, bio, themeColor string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET display_name = ?, role = ?, bio = ?, theme_color = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		displayName, role, bio, themeColor, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByUserID(userID)
}

// Search finds profiles whose display name contains the query, excluding the
// searching user. Used for partner discovery.
func (s *ProfileStore) Search(query string, excludeUserID int64, limit int) ([]model.Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles
		 WHERE display_name LIKE '%' || ? || '%' AND user_id != ?
		 ORDER BY display_name ASC LIMIT ?`,
		query, excludeUserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
