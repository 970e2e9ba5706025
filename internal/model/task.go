package model

import "time"

// SharedTask is a partnership-scoped goal. When contributions push
// current_progress to completion_target, each partner earns points_value.
type SharedTask struct {
	ID               int64      `json:"id"`
	PartnershipID    int64      `json:"partnership_id"`
	CreatedBy        int64      `json:"created_by"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	PointsValue      int        `json:"points_value"`
	CompletionTarget int        `json:"completion_target"`
	CurrentProgress  int        `json:"current_progress"`
	DueDate          *time.Time `json:"due_date"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type TaskContribution struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Amount    int       `json:"amount"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
