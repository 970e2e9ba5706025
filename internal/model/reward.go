package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointsCost  int       `json:"points_cost"`
	Category    string    `json:"category"`
	CreatedBy   int64     `json:"created_by"`
	ForUser     int64     `json:"for_user"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// RewardPurchase records a reward bought with points. PointsSpent is a
// snapshot of the reward's cost at purchase time.
type RewardPurchase struct {
	ID            int64      `json:"id"`
	RewardID      int64      `json:"reward_id"`
	UserID        int64      `json:"user_id"`
	PointsSpent   int        `json:"points_spent"`
	Status        string     `json:"status"`
	RefusalReason string     `json:"refusal_reason,omitempty"`
	PurchasedAt   time.Time  `json:"purchased_at"`
	ValidatedBy   *int64     `json:"validated_by"`
	ValidatedAt   *time.Time `json:"validated_at"`
}
