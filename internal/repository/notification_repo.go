package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) (int, error) {
	r.logger.Debug("Inserting notification",
		zap.Int("provider_id", n.ProviderID),
		zap.Int("project_id", n.ProjectID),
		zap.String("kind", n.Kind),
	)

	query := `
        INSERT INTO notifications (provider_id, project_id, kind, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		n.ProviderID,
		n.ProjectID,
		n.Kind,
		n.Message,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.Error(err))
		return 0, apperr.Store("insert notification", err)
	}

	return id, nil
}

func (r *NotificationRepository) ListByProvider(ctx context.Context, providerID int, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, provider_id, project_id, kind, message, created_at
        FROM notifications
        WHERE provider_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, providerID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int("provider_id", providerID), zap.Error(err))
		return nil, apperr.Store("list notifications", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.ProviderID, &n.ProjectID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, apperr.Store("scan notification", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
