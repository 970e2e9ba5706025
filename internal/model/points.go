package model

import "time"

// PointsTransaction is an immutable ledger entry. A user's balance is the sum
// of the points column over all their transactions; corrections are new
// offsetting rows, never updates.
type PointsTransaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CreatedBy   int64     `json:"created_by"`
	Points      int       `json:"points"`
	Type        string    `json:"type"`
	Reason      string    `json:"reason"`
	ReferenceID *int64    `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type PointBalance struct {
	UserID      int64 `json:"user_id"`
	TotalEarned int   `json:"total_earned"`
	TotalSpent  int   `json:"total_spent"`
	Balance     int   `json:"balance"`
}

// PartnerStats is the per-user summary shown on the partner dashboard.
type PartnerStats struct {
	UserID             int64   `json:"user_id"`
	DisplayName        string  `json:"display_name"`
	Role               string  `json:"role"`
	Balance            int     `json:"balance"`
	TotalEarned        int     `json:"total_earned"`
	TotalSpent         int     `json:"total_spent"`
	HabitsAssigned     int     `json:"habits_assigned"`
	CompletionsToday   int     `json:"completions_today"`
	TotalCompletions   int     `json:"total_completions"`
	WeekCompletionRate float64 `json:"week_completion_rate"`
}
