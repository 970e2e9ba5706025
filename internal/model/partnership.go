package model

import "time"

type Partnership struct {
	ID           int64     `json:"id"`
	DominantID   int64     `json:"dominant_id"`
	SubmissiveID int64     `json:"submissive_id"`
	CreatedBy    int64     `json:"created_by"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Partner returns the other member's user id, or 0 if userID is not a member.
func (p Partnership) Partner(userID int64) int64 {
	switch userID {
	case p.DominantID:
		return p.SubmissiveID
	case p.SubmissiveID:
		return p.DominantID
	}
	return 0
}

// HasMember reports whether userID is one of the two partners.
func (p Partnership) HasMember(userID int64) bool {
	return userID == p.DominantID || userID == p.SubmissiveID
}
