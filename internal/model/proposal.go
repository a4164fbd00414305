package model

import "time"

// Proposal statuses. Accepted and rejected are terminal.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

type Proposal struct {
	ID             int       `json:"id"`
	ProjectID      int       `json:"project_id"`
	ProviderID     int       `json:"provider_id"`
	QuoteAmount    float64   `json:"quote_amount"`
	StartDate      time.Time `json:"start_date"`
	Comments       string    `json:"comments"`
	PortfolioItems []int64   `json:"portfolio_items"`
	Status         string    `json:"status"` // pending / accepted / rejected
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EnrichedProposal is a proposal joined with the submitting provider's public
// profile fields for customer-facing listings.
type EnrichedProposal struct {
	Proposal
	BusinessName  string  `json:"business_name"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}
