package model

import "time"

// Invitation statuses.
const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusRejected  = "rejected"
	InvitationStatusCompleted = "completed"
)

// Invitation links a published project to an eligible provider. At most one
// row exists per (project, provider) pair.
type Invitation struct {
	ID         int       `json:"id"`
	ProjectID  int       `json:"project_id"`
	ProviderID int       `json:"provider_id"`
	Status     string    `json:"status"` // pending / accepted / rejected / completed
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProjectRequest is an invitation joined with its project and the owning
// customer's contact fields, as shown on a provider's request list.
type ProjectRequest struct {
	Invitation
	Project       Project `json:"project"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
}

// RequestStats summarizes a provider's invitation pipeline.
type RequestStats struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}
