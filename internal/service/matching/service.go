// Package matching selects the providers eligible for a published project
// and fans invitations out to them.
package matching

import (
	"context"

	"go.uber.org/zap"

	"renomarket/pkg/metrics"
)

// ProviderStore reads declared provider service offerings.
type ProviderStore interface {
	ProviderIDsByCategory(ctx context.Context, category string) ([]int, error)
}

// InvitationStore reads and writes project invitation rows.
type InvitationStore interface {
	ProviderIDsForProject(ctx context.Context, projectID int) ([]int, error)
	BulkInsertPending(ctx context.Context, projectID int, providerIDs []int) (int64, error)
}

type Service struct {
	providers   ProviderStore
	invitations InvitationStore
	logger      *zap.Logger
}

func NewService(providers ProviderStore, invitations InvitationStore, logger *zap.Logger) *Service {
	return &Service{
		providers:   providers,
		invitations: invitations,
		logger:      logger,
	}
}

// FindEligibleProviders returns the providers whose declared offerings include
// the category. Pure read, no mutation.
func (s *Service) FindEligibleProviders(ctx context.Context, category string) ([]int, error) {
	return s.providers.ProviderIDsByCategory(ctx, category)
}

// FanOut invites every eligible provider not already linked to the project.
// The set difference keeps re-publishing idempotent: providers that already
// hold an invitation are skipped, and the store's unique constraint catches
// any race between two concurrent fan-outs. Returns the newly invited
// provider ids.
func (s *Service) FanOut(ctx context.Context, projectID int, category string) ([]int, error) {
	eligible, err := s.providers.ProviderIDsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	existing, err := s.invitations.ProviderIDsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	linked := make(map[int]struct{}, len(existing))
	for _, id := range existing {
		linked[id] = struct{}{}
	}

	var newProviders []int
	for _, id := range eligible {
		if _, ok := linked[id]; !ok {
			newProviders = append(newProviders, id)
		}
	}

	if len(newProviders) == 0 {
		s.logger.Info("Fan-out found no new providers",
			zap.Int("project_id", projectID),
			zap.String("category", category),
			zap.Int("eligible", len(eligible)),
		)
		return nil, nil
	}

	inserted, err := s.invitations.BulkInsertPending(ctx, projectID, newProviders)
	if err != nil {
		return nil, err
	}
	metrics.InvitationsFannedOut.Add(float64(inserted))

	s.logger.Info("Fan-out invited providers",
		zap.Int("project_id", projectID),
		zap.String("category", category),
		zap.Int("new_providers", len(newProviders)),
		zap.Int64("inserted", inserted),
	)
	return newProviders, nil
}
