// Package project implements project lifecycle operations: draft CRUD,
// publishing with provider fan-out, and unpublishing.
package project

import (
	"context"
	"time"

	"go.uber.org/zap"

	"renomarket/contracts/mq"
	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

// ProjectStore is the persistence surface the service needs.
type ProjectStore interface {
	Insert(ctx context.Context, p *model.Project) (int, error)
	FindByID(ctx context.Context, id int) (*model.Project, error)
	ListByCustomer(ctx context.Context, customerID int) ([]model.Project, error)
	Update(ctx context.Context, id int, u model.ProjectUpdate) error
	Delete(ctx context.Context, id int) error
	MarkPublished(ctx context.Context, projectID int, payload mq.ProjectPublishedPayload) error
	Unpublish(ctx context.Context, projectID int) error
}

// Matcher computes and persists the invitation fan-out.
type Matcher interface {
	FanOut(ctx context.Context, projectID int, category string) ([]int, error)
}

type Service struct {
	store   ProjectStore
	matcher Matcher
	logger  *zap.Logger
}

func NewService(store ProjectStore, matcher Matcher, logger *zap.Logger) *Service {
	return &Service{store: store, matcher: matcher, logger: logger}
}

// CreateInput holds the fields of a new draft project.
type CreateInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Location    string
	Category    string
	BudgetMin   float64
	BudgetMax   float64
}

// PublishResult reports the outcome of a publish. Zero invited providers is
// an informational outcome, not an error.
type PublishResult struct {
	InvitedProviders []int `json:"invited_providers"`
}

func validateDates(start, end time.Time) error {
	if end.Before(start) {
		return apperr.Validation("end date must not be before start date")
	}
	return nil
}

func validateBudget(min, max float64) error {
	if min < 0 || max < 0 {
		return apperr.Validation("budget values must not be negative")
	}
	if max < min {
		return apperr.Validation("budget max must not be less than budget min")
	}
	return nil
}

// Create inserts a new project in draft status. No side effects on other
// entities.
func (s *Service) Create(ctx context.Context, customerID int, in CreateInput) (*model.Project, error) {
	if in.Name == "" {
		return nil, apperr.Validation("project name is required")
	}
	if in.Category == "" {
		return nil, apperr.Validation("project category is required")
	}
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if err := validateBudget(in.BudgetMin, in.BudgetMax); err != nil {
		return nil, err
	}

	p := &model.Project{
		CustomerID:  customerID,
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Location:    in.Location,
		Category:    in.Category,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Status:      model.ProjectStatusDraft,
	}

	id, err := s.store.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	s.logger.Info("Project created",
		zap.Int("project_id", id),
		zap.Int("customer_id", customerID),
	)
	return p, nil
}

// Get loads a single project.
func (s *Service) Get(ctx context.Context, projectID int) (*model.Project, error) {
	return s.store.FindByID(ctx, projectID)
}

// ListMine returns the caller's projects, newest first.
func (s *Service) ListMine(ctx context.Context, customerID int) ([]model.Project, error) {
	return s.store.ListByCustomer(ctx, customerID)
}

// Update applies a partial update. Date and budget invariants are validated
// against the merged state before anything is persisted.
func (s *Service) Update(ctx context.Context, callerID, projectID int, u model.ProjectUpdate) error {
	p, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may update it")
	}

	start, end := p.StartDate, p.EndDate
	if u.StartDate != nil {
		start = *u.StartDate
	}
	if u.EndDate != nil {
		end = *u.EndDate
	}
	if err := validateDates(start, end); err != nil {
		return err
	}

	min, max := p.BudgetMin, p.BudgetMax
	if u.BudgetMin != nil {
		min = *u.BudgetMin
	}
	if u.BudgetMax != nil {
		max = *u.BudgetMax
	}
	if err := validateBudget(min, max); err != nil {
		return err
	}

	return s.store.Update(ctx, projectID, u)
}

// Delete removes the project. Dependent invitations, proposals and milestones
// are cascaded by the store.
func (s *Service) Delete(ctx context.Context, callerID, projectID int) error {
	p, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may delete it")
	}
	return s.store.Delete(ctx, projectID)
}

// Publish fans invitations out to eligible providers and moves the project to
// published. Re-publishing tops up invitations for providers that became
// eligible since the last publish; existing invitations are never duplicated.
func (s *Service) Publish(ctx context.Context, callerID, projectID int) (*PublishResult, error) {
	p, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != callerID {
		return nil, apperr.Forbidden(callerID, "only the project owner may publish it")
	}
	if p.Status != model.ProjectStatusDraft && p.Status != model.ProjectStatusPublished {
		return nil, apperr.Validation("project cannot be published from status %s", p.Status)
	}

	invited, err := s.matcher.FanOut(ctx, projectID, p.Category)
	if err != nil {
		return nil, err
	}

	payload := mq.ProjectPublishedPayload{
		ProjectID:   projectID,
		CustomerID:  p.CustomerID,
		Name:        p.Name,
		Category:    p.Category,
		ProviderIDs: invited,
		PublishedAt: time.Now(),
	}
	if err := s.store.MarkPublished(ctx, projectID, payload); err != nil {
		return nil, err
	}

	s.logger.Info("Project published",
		zap.Int("project_id", projectID),
		zap.Int("invited_providers", len(invited)),
	)
	return &PublishResult{InvitedProviders: invited}, nil
}

// Unpublish discards all invitations for the project and resets it to draft.
// Irreversible with respect to invitation history.
func (s *Service) Unpublish(ctx context.Context, callerID, projectID int) error {
	p, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may unpublish it")
	}
	return s.store.Unpublish(ctx, projectID)
}
