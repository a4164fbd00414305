package mq

import "time"

// Routing keys for workflow events on the marketplace exchange.
const (
	RoutingKeyProjectPublished = "project.published"
	RoutingKeyProposalAccepted = "proposal.accepted"
)

// ProjectPublishedPayload is emitted when a customer publishes a project and
// invitations have been fanned out.
type ProjectPublishedPayload struct {
	ProjectID   int       `json:"project_id"`
	CustomerID  int       `json:"customer_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	ProviderIDs []int     `json:"provider_ids"` // newly invited providers
	PublishedAt time.Time `json:"published_at"`
}

// ProposalAcceptedPayload is emitted after the acceptance cascade commits.
type ProposalAcceptedPayload struct {
	ProposalID          int       `json:"proposal_id"`
	ProjectID           int       `json:"project_id"`
	CustomerID          int       `json:"customer_id"`
	AcceptedProviderID  int       `json:"accepted_provider_id"`
	RejectedProviderIDs []int     `json:"rejected_provider_ids"`
	AcceptedAt          time.Time `json:"accepted_at"`
}
