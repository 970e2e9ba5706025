package model

import "time"

// Punishment is a template; individual instances are PunishmentAssignments.
type Punishment struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Category    string    `json:"category"`
	CreatedBy   int64     `json:"created_by"`
	ForUser     int64     `json:"for_user"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type PunishmentAssignment struct {
	ID           int64      `json:"id"`
	PunishmentID int64      `json:"punishment_id"`
	AssignedTo   int64      `json:"assigned_to"`
	AssignedBy   int64      `json:"assigned_by"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes"`
	AssignedAt   time.Time  `json:"assigned_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ValidatedBy  *int64     `json:"validated_by"`
	ValidatedAt  *time.Time `json:"validated_at"`
}
