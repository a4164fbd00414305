// Package notification turns workflow events into provider-facing
// notification rows.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"renomarket/contracts/mq"
	"renomarket/internal/model"
	"renomarket/pkg/metrics"
)

// NotificationStore is the persistence surface the service needs.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) (int, error)
	ListByProvider(ctx context.Context, providerID int, limit int) ([]model.Notification, error)
}

type Service struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewService(store NotificationStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// HandleProjectPublished creates an invited notification for every provider
// the fan-out reached.
func (s *Service) HandleProjectPublished(ctx context.Context, p mq.ProjectPublishedPayload) error {
	for _, providerID := range p.ProviderIDs {
		n := &model.Notification{
			ProviderID: providerID,
			ProjectID:  p.ProjectID,
			Kind:       model.NotificationKindInvited,
			Message:    fmt.Sprintf("You have been invited to bid on project %q (%s)", p.Name, p.Category),
		}
		if _, err := s.store.Insert(ctx, n); err != nil {
			return err
		}
		metrics.NotificationsCreated.WithLabelValues(model.NotificationKindInvited).Inc()
	}

	s.logger.Info("Invitation notifications created",
		zap.Int("project_id", p.ProjectID),
		zap.Int("providers", len(p.ProviderIDs)),
	)
	return nil
}

// ListForProvider returns a provider's most recent notifications.
func (s *Service) ListForProvider(ctx context.Context, providerID, limit int) ([]model.Notification, error) {
	return s.store.ListByProvider(ctx, providerID, limit)
}

// HandleProposalAccepted notifies the winning provider and every provider
// whose proposal was rejected by the cascade.
func (s *Service) HandleProposalAccepted(ctx context.Context, p mq.ProposalAcceptedPayload) error {
	won := &model.Notification{
		ProviderID: p.AcceptedProviderID,
		ProjectID:  p.ProjectID,
		Kind:       model.NotificationKindWon,
		Message:    fmt.Sprintf("Your proposal for project %d was accepted", p.ProjectID),
	}
	if _, err := s.store.Insert(ctx, won); err != nil {
		return err
	}
	metrics.NotificationsCreated.WithLabelValues(model.NotificationKindWon).Inc()

	for _, providerID := range p.RejectedProviderIDs {
		n := &model.Notification{
			ProviderID: providerID,
			ProjectID:  p.ProjectID,
			Kind:       model.NotificationKindClosed,
			Message:    fmt.Sprintf("Project %d selected another proposal", p.ProjectID),
		}
		if _, err := s.store.Insert(ctx, n); err != nil {
			return err
		}
		metrics.NotificationsCreated.WithLabelValues(model.NotificationKindClosed).Inc()
	}

	s.logger.Info("Resolution notifications created",
		zap.Int("project_id", p.ProjectID),
		zap.Int("accepted_provider", p.AcceptedProviderID),
		zap.Int("rejected_providers", len(p.RejectedProviderIDs)),
	)
	return nil
}
