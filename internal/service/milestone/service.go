// Package milestone tracks payment checkpoints for in-progress projects. The
// payment percentages of a project's milestones may never total more than 100.
package milestone

import (
	"context"
	"time"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

// MilestoneStore is the persistence surface the service needs.
type MilestoneStore interface {
	Insert(ctx context.Context, m *model.Milestone) (int, error)
	FindByID(ctx context.Context, id int) (*model.Milestone, error)
	ListByProject(ctx context.Context, projectID int) ([]model.Milestone, error)
	SumPercentages(ctx context.Context, projectID, excludeID int) (float64, error)
	Update(ctx context.Context, id int, u model.MilestoneUpdate) error
	Delete(ctx context.Context, id int) error
	SetStatus(ctx context.Context, id int, status string, completionDate *time.Time) error
}

// ProjectStore loads projects for ownership checks.
type ProjectStore interface {
	FindByID(ctx context.Context, id int) (*model.Project, error)
}

type Service struct {
	milestones MilestoneStore
	projects   ProjectStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(milestones MilestoneStore, projects ProjectStore, logger *zap.Logger) *Service {
	return &Service{
		milestones: milestones,
		projects:   projects,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateInput holds the fields of a new milestone.
type CreateInput struct {
	ProjectID         int
	Title             string
	Description       *string
	DueDate           time.Time
	PaymentPercentage float64
}

func validatePercentage(p float64) error {
	if p <= 0 || p > 100 {
		return apperr.Validation("payment percentage must be between 0 and 100")
	}
	return nil
}

// checkTotal enforces the per-project percentage cap. excludeID skips the
// milestone being updated.
func (s *Service) checkTotal(ctx context.Context, projectID, excludeID int, percentage float64) error {
	total, err := s.milestones.SumPercentages(ctx, projectID, excludeID)
	if err != nil {
		return err
	}
	if total+percentage > 100 {
		return apperr.Validation("total payment percentage cannot exceed 100%%")
	}
	return nil
}

// Create validates the percentage cap against all existing milestones of the
// project and inserts a pending milestone.
func (s *Service) Create(ctx context.Context, callerID int, in CreateInput) (*model.Milestone, error) {
	project, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CustomerID != callerID {
		return nil, apperr.Forbidden(callerID, "only the project owner may manage milestones")
	}

	if in.Title == "" {
		return nil, apperr.Validation("milestone title is required")
	}
	if err := validatePercentage(in.PaymentPercentage); err != nil {
		return nil, err
	}
	if err := s.checkTotal(ctx, in.ProjectID, 0, in.PaymentPercentage); err != nil {
		return nil, err
	}

	m := &model.Milestone{
		ProjectID:         in.ProjectID,
		Title:             in.Title,
		Description:       in.Description,
		DueDate:           in.DueDate,
		PaymentPercentage: in.PaymentPercentage,
		Status:            model.MilestoneStatusPending,
	}

	id, err := s.milestones.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id

	s.logger.Info("Milestone created",
		zap.Int("milestone_id", id),
		zap.Int("project_id", in.ProjectID),
		zap.Float64("payment_percentage", in.PaymentPercentage),
	)
	return m, nil
}

// Update applies a partial update. A changed payment percentage is validated
// against the sum of the project's other milestones before anything is
// persisted.
func (s *Service) Update(ctx context.Context, callerID, milestoneID int, u model.MilestoneUpdate) error {
	m, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	if project.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may manage milestones")
	}

	if u.PaymentPercentage != nil {
		if err := validatePercentage(*u.PaymentPercentage); err != nil {
			return err
		}
		if err := s.checkTotal(ctx, m.ProjectID, milestoneID, *u.PaymentPercentage); err != nil {
			return err
		}
	}

	return s.milestones.Update(ctx, milestoneID, u)
}

// Delete removes a milestone unconditionally.
func (s *Service) Delete(ctx context.Context, callerID, milestoneID int) error {
	m, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	if project.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may manage milestones")
	}

	return s.milestones.Delete(ctx, milestoneID)
}

// SetStatus updates the milestone status. Completing a milestone stamps the
// completion date; any other status clears it, including when a completed
// milestone is moved back.
func (s *Service) SetStatus(ctx context.Context, callerID, milestoneID int, status string) error {
	switch status {
	case model.MilestoneStatusPending, model.MilestoneStatusInProgress, model.MilestoneStatusCompleted:
	default:
		return apperr.Validation("unsupported milestone status %q", status)
	}

	m, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	if project.CustomerID != callerID {
		return apperr.Forbidden(callerID, "only the project owner may manage milestones")
	}

	var completionDate *time.Time
	if status == model.MilestoneStatusCompleted {
		now := s.now()
		completionDate = &now
	}

	return s.milestones.SetStatus(ctx, milestoneID, status, completionDate)
}

// ListForProject returns a project's milestones ordered by due date.
func (s *Service) ListForProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	return s.milestones.ListByProject(ctx, projectID)
}
