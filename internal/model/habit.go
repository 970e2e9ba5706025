package model

import "time"

type Habit struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Frequency   string    `json:"frequency"`
	PointsValue int       `json:"points_value"`
	AssignedTo  int64     `json:"assigned_to"`
	CreatedBy   int64     `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type HabitCompletion struct {
	ID           int64     `json:"id"`
	HabitID      int64     `json:"habit_id"`
	UserID       int64     `json:"user_id"`
	PointsEarned int       `json:"points_earned"`
	Notes        string    `json:"notes"`
	CompletedAt  time.Time `json:"completed_at"`
}
