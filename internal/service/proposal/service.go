// Package proposal implements proposal submission and resolution, including
// the acceptance cascade.
package proposal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
	"renomarket/internal/repository"
	"renomarket/pkg/metrics"
)

// ProposalStore is the persistence surface the service needs.
type ProposalStore interface {
	Insert(ctx context.Context, p *model.Proposal) (int, error)
	FindByID(ctx context.Context, id int) (*model.Proposal, error)
	ExistsForProject(ctx context.Context, projectID, providerID int) (bool, error)
	ListForProject(ctx context.Context, projectID int, sortField string, descending bool) ([]model.EnrichedProposal, error)
	ListByProvider(ctx context.Context, providerID int) ([]model.Proposal, error)
	RejectIfPending(ctx context.Context, id int) error
	AcceptCascade(ctx context.Context, proposalID, projectID, customerID int) (*repository.CascadeResult, error)
}

// ProjectStore loads projects for validation and ownership checks.
type ProjectStore interface {
	FindByID(ctx context.Context, id int) (*model.Project, error)
}

type Service struct {
	proposals ProposalStore
	projects  ProjectStore
	logger    *zap.Logger
}

func NewService(proposals ProposalStore, projects ProjectStore, logger *zap.Logger) *Service {
	return &Service{proposals: proposals, projects: projects, logger: logger}
}

// SubmitInput holds the fields of a new proposal.
type SubmitInput struct {
	ProjectID      int
	ProviderID     int
	QuoteAmount    float64
	StartDate      time.Time
	Comments       string
	PortfolioItems []int64
}

// AcceptResult reports the outcome of an acceptance cascade.
type AcceptResult struct {
	NoOp                bool  `json:"no_op"`
	AcceptedProviderID  int   `json:"accepted_provider_id"`
	RejectedProviderIDs []int `json:"rejected_provider_ids"`
}

// Sort fields accepted by ListForProject.
var validSortFields = map[string]bool{
	"quote_amount": true,
	"start_date":   true,
	"created_at":   true,
}

// Submit validates and records a new pending proposal. All validation runs
// before the insert; a failed submit writes nothing.
func (s *Service) Submit(ctx context.Context, callerID int, in SubmitInput) (*model.Proposal, error) {
	if callerID != in.ProviderID {
		return nil, apperr.Forbidden(callerID, "a provider may only submit its own proposals")
	}

	project, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	if in.QuoteAmount < project.BudgetMin || in.QuoteAmount > project.BudgetMax {
		metrics.ProposalsSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, apperr.Validation("quote amount must be within project budget range")
	}
	if in.StartDate.Before(project.StartDate) || in.StartDate.After(project.EndDate) {
		metrics.ProposalsSubmitted.WithLabelValues("validation_failed").Inc()
		return nil, apperr.Validation("proposed start date must lie within the project schedule")
	}

	exists, err := s.proposals.ExistsForProject(ctx, in.ProjectID, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if exists {
		metrics.ProposalsSubmitted.WithLabelValues("conflict").Inc()
		return nil, apperr.Conflict("provider %d has already submitted a proposal for project %d", in.ProviderID, in.ProjectID)
	}

	p := &model.Proposal{
		ProjectID:      in.ProjectID,
		ProviderID:     in.ProviderID,
		QuoteAmount:    in.QuoteAmount,
		StartDate:      in.StartDate,
		Comments:       in.Comments,
		PortfolioItems: in.PortfolioItems,
		Status:         model.ProposalStatusPending,
	}

	id, err := s.proposals.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	metrics.ProposalsSubmitted.WithLabelValues("submitted").Inc()

	s.logger.Info("Proposal submitted",
		zap.Int("proposal_id", id),
		zap.Int("project_id", in.ProjectID),
		zap.Int("provider_id", in.ProviderID),
	)
	return p, nil
}

// Accept runs the acceptance cascade: the target proposal becomes accepted,
// the project moves to in_progress, and every sibling proposal is rejected,
// all atomically. Re-accepting the already accepted proposal is an idempotent
// no-op; accepting while a different proposal holds the acceptance fails with
// ConflictError.
func (s *Service) Accept(ctx context.Context, callerID, proposalID, projectID int) (*AcceptResult, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CustomerID != callerID {
		return nil, apperr.Forbidden(callerID, "only the project owner may accept a proposal")
	}

	res, err := s.proposals.AcceptCascade(ctx, proposalID, projectID, project.CustomerID)
	if err != nil {
		if apperr.IsConflict(err) {
			metrics.ProposalCascades.WithLabelValues("conflict").Inc()
		} else {
			metrics.ProposalCascades.WithLabelValues("failed").Inc()
		}
		return nil, err
	}

	if res.NoOp {
		metrics.ProposalCascades.WithLabelValues("noop").Inc()
	} else {
		metrics.ProposalCascades.WithLabelValues("applied").Inc()
	}

	s.logger.Info("Proposal accepted",
		zap.Int("proposal_id", proposalID),
		zap.Int("project_id", projectID),
		zap.Bool("no_op", res.NoOp),
		zap.Int("rejected_siblings", len(res.RejectedProviderIDs)),
	)
	return &AcceptResult{
		NoOp:                res.NoOp,
		AcceptedProviderID:  res.AcceptedProviderID,
		RejectedProviderIDs: res.RejectedProviderIDs,
	}, nil
}

// Reject moves a single pending proposal to rejected. No cascade. Accepted
// and rejected proposals are terminal.
func (s *Service) Reject(ctx context.Context, callerID, proposalID int) error {
	p, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	if project.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may reject a proposal")
	}

	return s.proposals.RejectIfPending(ctx, proposalID)
}

// ListForProject returns a project's proposals enriched with provider profile
// fields, in a caller-specified stable total order. sortField defaults to
// created_at.
func (s *Service) ListForProject(ctx context.Context, projectID int, sortField string, descending bool) ([]model.EnrichedProposal, error) {
	if sortField == "" {
		sortField = "created_at"
	}
	if !validSortFields[sortField] {
		return nil, apperr.Validation("unsupported sort field %q", sortField)
	}
	return s.proposals.ListForProject(ctx, projectID, sortField, descending)
}

// ListMine returns the caller's own proposals, newest first.
func (s *Service) ListMine(ctx context.Context, providerID int) ([]model.Proposal, error) {
	return s.proposals.ListByProvider(ctx, providerID)
}
