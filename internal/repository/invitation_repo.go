package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
	"renomarket/pkg/metrics"
)

type InvitationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvitationRepository(db *pgxpool.Pool, logger *zap.Logger) *InvitationRepository {
	return &InvitationRepository{db: db, logger: logger}
}

// ProviderIDsForProject returns the providers already linked to the project.
func (r *InvitationRepository) ProviderIDsForProject(ctx context.Context, projectID int) ([]int, error) {
	rows, err := r.db.Query(ctx, `
        SELECT provider_id FROM project_providers WHERE project_id = $1
    `, projectID)
	if err != nil {
		r.logger.Error("Failed to query project invitations", zap.Int("project_id", projectID), zap.Error(err))
		return nil, apperr.Store("list linked providers", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Store("scan provider id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BulkInsertPending creates pending invitation rows for the given providers.
// The (project_id, provider_id) unique constraint makes concurrent fan-outs
// safe: rows that already exist are skipped.
func (r *InvitationRepository) BulkInsertPending(ctx context.Context, projectID int, providerIDs []int) (int64, error) {
	if len(providerIDs) == 0 {
		return 0, nil
	}

	r.logger.Debug("Fanning out invitations",
		zap.Int("project_id", projectID),
		zap.Int("providers", len(providerIDs)),
	)

	start := time.Now()
	tag, err := r.db.Exec(ctx, `
        INSERT INTO project_providers (project_id, provider_id, status)
        SELECT $1, unnest($2::int[]), 'pending'
        ON CONFLICT (project_id, provider_id) DO NOTHING
    `, projectID, providerIDs)
	metrics.RecordDBQueryDuration("bulk_insert", "project_providers", time.Since(start))

	if err != nil {
		r.logger.Error("Failed to insert invitations", zap.Int("project_id", projectID), zap.Error(err))
		return 0, apperr.Store("insert invitations", err)
	}

	r.logger.Info("Invitations created",
		zap.Int("project_id", projectID),
		zap.Int64("inserted", tag.RowsAffected()),
	)
	return tag.RowsAffected(), nil
}

// ListByProject returns all invitation rows for a project.
func (r *InvitationRepository) ListByProject(ctx context.Context, projectID int) ([]model.Invitation, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, project_id, provider_id, status, created_at, updated_at
        FROM project_providers
        WHERE project_id = $1
        ORDER BY created_at DESC
    `, projectID)
	if err != nil {
		r.logger.Error("Failed to list invitations", zap.Int("project_id", projectID), zap.Error(err))
		return nil, apperr.Store("list invitations", err)
	}
	defer rows.Close()

	var invitations []model.Invitation
	for rows.Next() {
		var inv model.Invitation
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.ProviderID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, apperr.Store("scan invitation", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// ListRequestsByProvider returns a provider's invitations joined with the
// project and the owning customer's contact fields.
func (r *InvitationRepository) ListRequestsByProvider(ctx context.Context, providerID int) ([]model.ProjectRequest, error) {
	r.logger.Debug("Listing project requests", zap.Int("provider_id", providerID))

	rows, err := r.db.Query(ctx, `
        SELECT pp.id, pp.project_id, pp.provider_id, pp.status, pp.created_at, pp.updated_at,
               p.id, p.customer_id, p.name, p.description, p.start_date, p.end_date,
               p.location, p.category, p.budget_min, p.budget_max, p.status, p.created_at, p.updated_at,
               COALESCE(pr.full_name, ''), COALESCE(pr.email, '')
        FROM project_providers pp
        JOIN projects p ON p.id = pp.project_id
        LEFT JOIN profiles pr ON pr.id = p.customer_id
        WHERE pp.provider_id = $1
        ORDER BY pp.created_at DESC
    `, providerID)
	if err != nil {
		r.logger.Error("Failed to list project requests", zap.Int("provider_id", providerID), zap.Error(err))
		return nil, apperr.Store("list project requests", err)
	}
	defer rows.Close()

	var requests []model.ProjectRequest
	for rows.Next() {
		var req model.ProjectRequest
		err := rows.Scan(
			&req.Invitation.ID,
			&req.Invitation.ProjectID,
			&req.Invitation.ProviderID,
			&req.Invitation.Status,
			&req.Invitation.CreatedAt,
			&req.Invitation.UpdatedAt,
			&req.Project.ID,
			&req.Project.CustomerID,
			&req.Project.Name,
			&req.Project.Description,
			&req.Project.StartDate,
			&req.Project.EndDate,
			&req.Project.Location,
			&req.Project.Category,
			&req.Project.BudgetMin,
			&req.Project.BudgetMax,
			&req.Project.Status,
			&req.Project.CreatedAt,
			&req.Project.UpdatedAt,
			&req.CustomerName,
			&req.CustomerEmail,
		)
		if err != nil {
			return nil, apperr.Store("scan project request", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdateStatusByPair updates the invitation row for a (project, provider)
// pair. Returns NotFoundError if no such invitation exists.
func (r *InvitationRepository) UpdateStatusByPair(ctx context.Context, projectID, providerID int, status string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE project_providers
        SET status = $3, updated_at = NOW()
        WHERE project_id = $1 AND provider_id = $2
    `, projectID, providerID, status)
	if err != nil {
		r.logger.Error("Failed to update invitation status",
			zap.Int("project_id", projectID),
			zap.Int("provider_id", providerID),
			zap.Error(err),
		)
		return apperr.Store("update invitation status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invitation for project", projectID)
	}

	r.logger.Info("Invitation status updated",
		zap.Int("project_id", projectID),
		zap.Int("provider_id", providerID),
		zap.String("status", status),
	)
	return nil
}
