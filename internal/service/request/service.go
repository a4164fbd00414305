// Package request serves the provider-side view of invitations: listing
// project requests and responding to them.
package request

import (
	"context"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

// InvitationStore is the persistence surface the service needs.
type InvitationStore interface {
	ListRequestsByProvider(ctx context.Context, providerID int) ([]model.ProjectRequest, error)
	UpdateStatusByPair(ctx context.Context, projectID, providerID int, status string) error
}

type Service struct {
	invitations InvitationStore
	logger      *zap.Logger
}

func NewService(invitations InvitationStore, logger *zap.Logger) *Service {
	return &Service{invitations: invitations, logger: logger}
}

// ListForProvider returns a provider's invitations with their projects, plus
// pipeline stats.
func (s *Service) ListForProvider(ctx context.Context, providerID int) ([]model.ProjectRequest, model.RequestStats, error) {
	requests, err := s.invitations.ListRequestsByProvider(ctx, providerID)
	if err != nil {
		return nil, model.RequestStats{}, err
	}

	var stats model.RequestStats
	for _, r := range requests {
		switch r.Status {
		case model.InvitationStatusPending:
			stats.Pending++
		case model.InvitationStatusAccepted:
			stats.Active++
		case model.InvitationStatusCompleted:
			stats.Completed++
		}
	}

	return requests, stats, nil
}

// Respond records a provider's answer to an invitation. Only the invited
// provider can respond, and only with accepted or rejected.
func (s *Service) Respond(ctx context.Context, providerID, projectID int, status string) error {
	if status != model.InvitationStatusAccepted && status != model.InvitationStatusRejected {
		return apperr.Validation("response status must be accepted or rejected")
	}

	if err := s.invitations.UpdateStatusByPair(ctx, projectID, providerID, status); err != nil {
		return err
	}

	s.logger.Info("Invitation response recorded",
		zap.Int("project_id", projectID),
		zap.Int("provider_id", providerID),
		zap.String("status", status),
	)
	return nil
}
