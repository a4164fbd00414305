package mqhandler

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	mqcontracts "renomarket/contracts/mq"
	"renomarket/internal/service/notification"
	"renomarket/pkg/metrics"
	"renomarket/pkg/util"
)

type ProposalAcceptedHandler struct {
	notifications *notification.Service
	deduper       *util.Deduper
	queue         string
	logger        *zap.Logger
}

func NewProposalAcceptedHandler(
	notifications *notification.Service,
	deduper *util.Deduper,
	queue string,
	logger *zap.Logger,
) *ProposalAcceptedHandler {
	return &ProposalAcceptedHandler{
		notifications: notifications,
		deduper:       deduper,
		queue:         queue,
		logger:        logger,
	}
}

func (h *ProposalAcceptedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()

	var p mqcontracts.ProposalAcceptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProposalAcceptedPayload", zap.Error(err))
		return nil
	}

	// A proposal is accepted at most once, so the proposal id is the event id.
	if !h.deduper.AcquireOnce(ctx, mqcontracts.RoutingKeyProposalAccepted, int64(p.ProposalID)) {
		h.logger.Info("Duplicate proposal.accepted event skipped",
			zap.Int("proposal_id", p.ProposalID),
		)
		return nil
	}

	h.logger.Info("Handling proposal.accepted event",
		zap.Int("proposal_id", p.ProposalID),
		zap.Int("project_id", p.ProjectID),
		zap.Int("rejected_providers", len(p.RejectedProviderIDs)),
	)

	if err := h.notifications.HandleProposalAccepted(ctx, p); err != nil {
		if retryable, reason := util.IsRetryableError(err); !retryable {
			h.logger.Error("Dropping proposal.accepted event",
				zap.Int("proposal_id", p.ProposalID),
				zap.String("reason", reason),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	metrics.RecordMQConsumeLatency(mqcontracts.RoutingKeyProposalAccepted, h.queue, time.Since(start))
	return nil
}
