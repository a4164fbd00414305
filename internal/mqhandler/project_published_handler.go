package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "renomarket/contracts/mq"
	"renomarket/internal/service/notification"
	"renomarket/pkg/metrics"
	"renomarket/pkg/util"
)

type ProjectPublishedHandler struct {
	notifications *notification.Service
	deduper       *util.Deduper
	queue         string
	logger        *zap.Logger
}

func NewProjectPublishedHandler(
	notifications *notification.Service,
	deduper *util.Deduper,
	queue string,
	logger *zap.Logger,
) *ProjectPublishedHandler {
	return &ProjectPublishedHandler{
		notifications: notifications,
		deduper:       deduper,
		queue:         queue,
		logger:        logger,
	}
}

func (h *ProjectPublishedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()

	var p mqcontracts.ProjectPublishedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal ProjectPublishedPayload", zap.Error(err))
		// malformed payload, requeueing cannot fix it
		return nil
	}

	// Re-publishes of the same project are distinct events, so the dedup key
	// carries the publish timestamp.
	dedupKey := fmt.Sprintf("%s:%d", mqcontracts.RoutingKeyProjectPublished, p.ProjectID)
	if !h.deduper.AcquireOnce(ctx, dedupKey, p.PublishedAt.UnixNano()) {
		h.logger.Info("Duplicate project.published event skipped",
			zap.Int("project_id", p.ProjectID),
		)
		return nil
	}

	h.logger.Info("Handling project.published event",
		zap.Int("project_id", p.ProjectID),
		zap.Int("invited_providers", len(p.ProviderIDs)),
	)

	if err := h.notifications.HandleProjectPublished(ctx, p); err != nil {
		if retryable, reason := util.IsRetryableError(err); !retryable {
			h.logger.Error("Dropping project.published event",
				zap.Int("project_id", p.ProjectID),
				zap.String("reason", reason),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	metrics.RecordMQConsumeLatency(mqcontracts.RoutingKeyProjectPublished, h.queue, time.Since(start))
	return nil
}
