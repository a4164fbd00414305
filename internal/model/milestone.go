package model

import "time"

// Milestone statuses.
const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusCompleted  = "completed"
)

type Milestone struct {
	ID                int        `json:"id"`
	ProjectID         int        `json:"project_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	DueDate           time.Time  `json:"due_date"`
	PaymentPercentage float64    `json:"payment_percentage"`
	Status            string     `json:"status"` // pending / in_progress / completed
	CompletionDate    *time.Time `json:"completion_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MilestoneUpdate carries a partial update; nil fields are left untouched.
type MilestoneUpdate struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	DueDate           *time.Time `json:"due_date"`
	PaymentPercentage *float64   `json:"payment_percentage"`
}
