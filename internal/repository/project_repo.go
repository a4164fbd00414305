package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/contracts/mq"
	"renomarket/internal/apperr"
	"renomarket/internal/model"
	"renomarket/pkg/metrics"
	"renomarket/pkg/outbox"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, outbox: ob, logger: logger}
}

const projectColumns = `id, customer_id, name, description, start_date, end_date,
       location, category, budget_min, budget_max, status, created_at, updated_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.CustomerID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.Location,
		&p.Category,
		&p.BudgetMin,
		&p.BudgetMax,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	r.logger.Debug("Inserting project",
		zap.Int("customer_id", p.CustomerID),
		zap.String("name", p.Name),
		zap.String("category", p.Category),
	)

	start := time.Now()
	query := `
        INSERT INTO projects (customer_id, name, description, start_date, end_date,
                              location, category, budget_min, budget_max, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.CustomerID,
		p.Name,
		p.Description,
		p.StartDate,
		p.EndDate,
		p.Location,
		p.Category,
		p.BudgetMin,
		p.BudgetMax,
		p.Status,
	).Scan(&id)
	metrics.RecordDBQueryDuration("insert", "projects", time.Since(start))

	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, apperr.Store("insert project", err)
	}

	r.logger.Info("Project inserted successfully",
		zap.Int("id", id),
		zap.Int("customer_id", p.CustomerID),
	)
	return id, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("project", id)
		}
		r.logger.Error("Failed to find project", zap.Int("id", id), zap.Error(err))
		return nil, apperr.Store("find project", err)
	}
	return p, nil
}

func (r *ProjectRepository) ListByCustomer(ctx context.Context, customerID int) ([]model.Project, error) {
	r.logger.Debug("Listing projects for customer", zap.Int("customer_id", customerID))

	query := `
        SELECT ` + projectColumns + `
        FROM projects
        WHERE customer_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, apperr.Store("list projects", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.logger.Error("Failed to scan project", zap.Error(err))
			return nil, apperr.Store("scan project", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Update(ctx context.Context, id int, u model.ProjectUpdate) error {
	r.logger.Debug("Updating project", zap.Int("id", id))

	query := `
        UPDATE projects
        SET name        = COALESCE($2, name),
            description = COALESCE($3, description),
            start_date  = COALESCE($4, start_date),
            end_date    = COALESCE($5, end_date),
            location    = COALESCE($6, location),
            category    = COALESCE($7, category),
            budget_min  = COALESCE($8, budget_min),
            budget_max  = COALESCE($9, budget_max),
            updated_at  = NOW()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id,
		u.Name,
		u.Description,
		u.StartDate,
		u.EndDate,
		u.Location,
		u.Category,
		u.BudgetMin,
		u.BudgetMax,
	)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Int("id", id), zap.Error(err))
		return apperr.Store("update project", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project", id)
	}

	r.logger.Info("Project updated successfully", zap.Int("id", id))
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	r.logger.Debug("Deleting project", zap.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int("id", id), zap.Error(err))
		return apperr.Store("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project", id)
	}

	r.logger.Info("Project deleted successfully", zap.Int("id", id))
	return nil
}

// MarkPublished flips the project to published and records the
// project.published event in the outbox, atomically.
func (r *ProjectRepository) MarkPublished(ctx context.Context, projectID int, payload mq.ProjectPublishedPayload) error {
	r.logger.Debug("Marking project published",
		zap.Int("project_id", projectID),
		zap.Int("invited", len(payload.ProviderIDs)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Store("begin publish", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
    `, projectID, model.ProjectStatusPublished)
	if err != nil {
		r.logger.Error("Failed to mark project published", zap.Int("project_id", projectID), zap.Error(err))
		return apperr.Store("mark published", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project", projectID)
	}

	aggregateID := int64(projectID)
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "project", &aggregateID,
		mq.RoutingKeyProjectPublished, payload); err != nil {
		r.logger.Error("Failed to insert project.published outbox event", zap.Error(err))
		return apperr.Store("outbox project.published", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Store("commit publish", err)
	}

	r.logger.Info("Project marked published",
		zap.Int("project_id", projectID),
		zap.Int("invited", len(payload.ProviderIDs)),
	)
	return nil
}

// Unpublish deletes every invitation row for the project and resets it to
// draft, atomically. Invitation history is discarded, not archived.
func (r *ProjectRepository) Unpublish(ctx context.Context, projectID int) error {
	r.logger.Debug("Unpublishing project", zap.Int("project_id", projectID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Store("begin unpublish", err)
	}
	defer tx.Rollback(ctx)

	delTag, err := tx.Exec(ctx, `DELETE FROM project_providers WHERE project_id = $1`, projectID)
	if err != nil {
		r.logger.Error("Failed to delete project invitations", zap.Int("project_id", projectID), zap.Error(err))
		return apperr.Store("delete invitations", err)
	}

	tag, err := tx.Exec(ctx, `
        UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
    `, projectID, model.ProjectStatusDraft)
	if err != nil {
		r.logger.Error("Failed to reset project to draft", zap.Int("project_id", projectID), zap.Error(err))
		return apperr.Store("reset to draft", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project", projectID)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Store("commit unpublish", err)
	}

	r.logger.Info("Project unpublished",
		zap.Int("project_id", projectID),
		zap.Int64("invitations_deleted", delTag.RowsAffected()),
	)
	return nil
}
