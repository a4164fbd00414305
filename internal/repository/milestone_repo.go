package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{db: db, logger: logger}
}

const milestoneColumns = `id, project_id, title, description, due_date,
       payment_percentage, status, completion_date, created_at, updated_at`

func scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Title,
		&m.Description,
		&m.DueDate,
		&m.PaymentPercentage,
		&m.Status,
		&m.CompletionDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) (int, error) {
	r.logger.Debug("Inserting milestone",
		zap.Int("project_id", m.ProjectID),
		zap.String("title", m.Title),
		zap.Float64("payment_percentage", m.PaymentPercentage),
	)

	query := `
        INSERT INTO milestones (project_id, title, description, due_date, payment_percentage, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		m.ProjectID,
		m.Title,
		m.Description,
		m.DueDate,
		m.PaymentPercentage,
		m.Status,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return 0, apperr.Store("insert milestone", err)
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int("id", id),
		zap.Int("project_id", m.ProjectID),
	)
	return id, nil
}

func (r *MilestoneRepository) FindByID(ctx context.Context, id int) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRow(ctx, `
        SELECT `+milestoneColumns+` FROM milestones WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("milestone", id)
		}
		r.logger.Error("Failed to find milestone", zap.Int("id", id), zap.Error(err))
		return nil, apperr.Store("find milestone", err)
	}
	return m, nil
}

func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+milestoneColumns+`
        FROM milestones
        WHERE project_id = $1
        ORDER BY due_date ASC
    `, projectID)
	if err != nil {
		r.logger.Error("Failed to list milestones", zap.Int("project_id", projectID), zap.Error(err))
		return nil, apperr.Store("list milestones", err)
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, apperr.Store("scan milestone", err)
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

// SumPercentages returns the payment percentage total over a project's
// milestones, excluding excludeID when non-zero.
func (r *MilestoneRepository) SumPercentages(ctx context.Context, projectID, excludeID int) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(payment_percentage), 0)
        FROM milestones
        WHERE project_id = $1 AND ($2 = 0 OR id <> $2)
    `, projectID, excludeID).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum milestone percentages", zap.Int("project_id", projectID), zap.Error(err))
		return 0, apperr.Store("sum milestone percentages", err)
	}
	return total, nil
}

func (r *MilestoneRepository) Update(ctx context.Context, id int, u model.MilestoneUpdate) error {
	r.logger.Debug("Updating milestone", zap.Int("id", id))

	query := `
        UPDATE milestones
        SET title              = COALESCE($2, title),
            description        = COALESCE($3, description),
            due_date           = COALESCE($4, due_date),
            payment_percentage = COALESCE($5, payment_percentage),
            updated_at         = NOW()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id,
		u.Title,
		u.Description,
		u.DueDate,
		u.PaymentPercentage,
	)
	if err != nil {
		r.logger.Error("Failed to update milestone", zap.Int("id", id), zap.Error(err))
		return apperr.Store("update milestone", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("milestone", id)
	}

	r.logger.Info("Milestone updated successfully", zap.Int("id", id))
	return nil
}

func (r *MilestoneRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM milestones WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete milestone", zap.Int("id", id), zap.Error(err))
		return apperr.Store("delete milestone", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("milestone", id)
	}

	r.logger.Info("Milestone deleted", zap.Int("id", id))
	return nil
}

// SetStatus updates the milestone status. completionDate is NOW() when the
// status becomes completed and NULL for anything else; a completed milestone
// moved back loses its prior timestamp.
func (r *MilestoneRepository) SetStatus(ctx context.Context, id int, status string, completionDate *time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE milestones
        SET status = $2, completion_date = $3, updated_at = NOW()
        WHERE id = $1
    `, id, status, completionDate)
	if err != nil {
		r.logger.Error("Failed to set milestone status", zap.Int("id", id), zap.Error(err))
		return apperr.Store("set milestone status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("milestone", id)
	}

	r.logger.Info("Milestone status updated",
		zap.Int("id", id),
		zap.String("status", status),
	)
	return nil
}
