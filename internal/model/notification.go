package model

import "time"

// Notification kinds.
const (
	NotificationKindInvited = "invited"
	NotificationKindWon     = "won"
	NotificationKindClosed  = "closed"
)

// Notification is a provider-facing record of a workflow outcome.
type Notification struct {
	ID         int       `json:"id"`
	ProviderID int       `json:"provider_id"`
	ProjectID  int       `json:"project_id"`
	Kind       string    `json:"kind"` // invited / won / closed
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
