package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/contracts/mq"
	"renomarket/internal/apperr"
	"renomarket/internal/model"
	"renomarket/pkg/metrics"
	"renomarket/pkg/outbox"
)

type ProposalRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProposalRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *ProposalRepository {
	return &ProposalRepository{db: db, outbox: ob, logger: logger}
}

// CascadeResult reports the outcome of an acceptance cascade.
type CascadeResult struct {
	NoOp                bool
	AcceptedProviderID  int
	RejectedProviderIDs []int
}

// Sort columns accepted by ListForProject. Values are SQL fragments, keyed by
// the API-level field names; id is appended as a tiebreak so the order is
// total and stable.
var proposalSortColumns = map[string]string{
	"quote_amount": "quote_amount",
	"start_date":   "start_date",
	"created_at":   "created_at",
}

func (r *ProposalRepository) Insert(ctx context.Context, p *model.Proposal) (int, error) {
	r.logger.Debug("Inserting proposal",
		zap.Int("project_id", p.ProjectID),
		zap.Int("provider_id", p.ProviderID),
		zap.Float64("quote_amount", p.QuoteAmount),
	)

	start := time.Now()
	query := `
        INSERT INTO proposals (project_id, provider_id, quote_amount, start_date,
                               comments, portfolio_items, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.ProjectID,
		p.ProviderID,
		p.QuoteAmount,
		p.StartDate,
		p.Comments,
		p.PortfolioItems,
		p.Status,
	).Scan(&id)
	metrics.RecordDBQueryDuration("insert", "proposals", time.Since(start))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Unique (project_id, provider_id) violated: a concurrent submit
			// won the race. Same outcome as the pre-insert check.
			return 0, apperr.Conflict("provider %d has already submitted a proposal for project %d", p.ProviderID, p.ProjectID)
		}
		r.logger.Error("Failed to insert proposal", zap.Error(err))
		return 0, apperr.Store("insert proposal", err)
	}

	r.logger.Info("Proposal inserted successfully",
		zap.Int("id", id),
		zap.Int("project_id", p.ProjectID),
		zap.Int("provider_id", p.ProviderID),
	)
	return id, nil
}

func (r *ProposalRepository) FindByID(ctx context.Context, id int) (*model.Proposal, error) {
	var p model.Proposal
	err := r.db.QueryRow(ctx, `
        SELECT id, project_id, provider_id, quote_amount, start_date, comments,
               portfolio_items, status, created_at, updated_at
        FROM proposals
        WHERE id = $1
    `, id).Scan(
		&p.ID,
		&p.ProjectID,
		&p.ProviderID,
		&p.QuoteAmount,
		&p.StartDate,
		&p.Comments,
		&p.PortfolioItems,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("proposal", id)
		}
		r.logger.Error("Failed to find proposal", zap.Int("id", id), zap.Error(err))
		return nil, apperr.Store("find proposal", err)
	}
	return &p, nil
}

// ExistsForProject reports whether the provider already has a proposal for
// the project.
func (r *ProposalRepository) ExistsForProject(ctx context.Context, projectID, providerID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM proposals WHERE project_id = $1 AND provider_id = $2
        )
    `, projectID, providerID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check existing proposal", zap.Error(err))
		return false, apperr.Store("check existing proposal", err)
	}
	return exists, nil
}

// ListForProject returns all proposals for a project enriched with provider
// profile fields. sortField must be a key of proposalSortColumns; the caller
// validates it. Read only.
func (r *ProposalRepository) ListForProject(ctx context.Context, projectID int, sortField string, descending bool) ([]model.EnrichedProposal, error) {
	column, ok := proposalSortColumns[sortField]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	r.logger.Debug("Listing proposals for project",
		zap.Int("project_id", projectID),
		zap.String("sort", column),
		zap.String("direction", direction),
	)

	start := time.Now()
	query := `
        SELECT pr.id, pr.project_id, pr.provider_id, pr.quote_amount, pr.start_date,
               pr.comments, pr.portfolio_items, pr.status, pr.created_at, pr.updated_at,
               COALESCE(pp.business_name, ''), COALESCE(pp.average_rating, 0), COALESCE(pp.total_reviews, 0)
        FROM proposals pr
        LEFT JOIN provider_profiles pp ON pp.id = pr.provider_id
        WHERE pr.project_id = $1
        ORDER BY pr.` + column + ` ` + direction + `, pr.id ` + direction

	rows, err := r.db.Query(ctx, query, projectID)
	metrics.RecordDBQueryDuration("list", "proposals", time.Since(start))
	if err != nil {
		r.logger.Error("Failed to list proposals", zap.Int("project_id", projectID), zap.Error(err))
		return nil, apperr.Store("list proposals", err)
	}
	defer rows.Close()

	var proposals []model.EnrichedProposal
	for rows.Next() {
		var p model.EnrichedProposal
		err := rows.Scan(
			&p.ID,
			&p.ProjectID,
			&p.ProviderID,
			&p.QuoteAmount,
			&p.StartDate,
			&p.Comments,
			&p.PortfolioItems,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.BusinessName,
			&p.AverageRating,
			&p.TotalReviews,
		)
		if err != nil {
			return nil, apperr.Store("scan proposal", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// ListByProvider returns all proposals a provider has submitted, newest first.
func (r *ProposalRepository) ListByProvider(ctx context.Context, providerID int) ([]model.Proposal, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, project_id, provider_id, quote_amount, start_date, comments,
               portfolio_items, status, created_at, updated_at
        FROM proposals
        WHERE provider_id = $1
        ORDER BY created_at DESC
    `, providerID)
	if err != nil {
		r.logger.Error("Failed to list provider proposals", zap.Int("provider_id", providerID), zap.Error(err))
		return nil, apperr.Store("list provider proposals", err)
	}
	defer rows.Close()

	var proposals []model.Proposal
	for rows.Next() {
		var p model.Proposal
		err := rows.Scan(
			&p.ID,
			&p.ProjectID,
			&p.ProviderID,
			&p.QuoteAmount,
			&p.StartDate,
			&p.Comments,
			&p.PortfolioItems,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, apperr.Store("scan proposal", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// RejectIfPending moves a pending proposal to rejected. Accepted and rejected
// are terminal, so a row that is no longer pending yields ConflictError.
func (r *ProposalRepository) RejectIfPending(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE proposals
        SET status = $2, updated_at = NOW()
        WHERE id = $1 AND status = $3
    `, id, model.ProposalStatusRejected, model.ProposalStatusPending)
	if err != nil {
		r.logger.Error("Failed to reject proposal", zap.Int("id", id), zap.Error(err))
		return apperr.Store("reject proposal", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("proposal %d is not pending", id)
	}

	r.logger.Info("Proposal rejected", zap.Int("id", id))
	return nil
}

// AcceptCascade applies the acceptance cascade in one transaction: the target
// proposal becomes accepted, the project moves to in_progress, and every
// sibling proposal is rejected. A per-project advisory lock serializes
// concurrent accepts on the same project. Re-accepting the already accepted
// proposal is a no-op; accepting while a different proposal is accepted fails
// with ConflictError.
func (r *ProposalRepository) AcceptCascade(ctx context.Context, proposalID, projectID, customerID int) (*CascadeResult, error) {
	r.logger.Debug("Starting acceptance cascade",
		zap.Int("proposal_id", proposalID),
		zap.Int("project_id", projectID),
	)

	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Store("begin accept cascade", err)
	}
	defer tx.Rollback(ctx)

	// Serialize cascades per project.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(projectID)); err != nil {
		return nil, apperr.Store("lock project", err)
	}

	var (
		targetProviderID int
		targetStatus     string
	)
	err = tx.QueryRow(ctx, `
        SELECT provider_id, status FROM proposals WHERE id = $1 AND project_id = $2
    `, proposalID, projectID).Scan(&targetProviderID, &targetStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("proposal", proposalID)
		}
		return nil, apperr.Store("load proposal", err)
	}

	switch targetStatus {
	case model.ProposalStatusAccepted:
		// The cascade already ran to completion for this proposal; retrying
		// yields the same end state.
		r.logger.Info("Acceptance cascade no-op, proposal already accepted",
			zap.Int("proposal_id", proposalID),
		)
		return &CascadeResult{NoOp: true, AcceptedProviderID: targetProviderID}, nil
	case model.ProposalStatusRejected:
		return nil, apperr.Conflict("proposal %d was already rejected", proposalID)
	}

	var otherAccepted bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM proposals
            WHERE project_id = $1 AND status = $2 AND id <> $3
        )
    `, projectID, model.ProposalStatusAccepted, proposalID).Scan(&otherAccepted)
	if err != nil {
		return nil, apperr.Store("check accepted sibling", err)
	}
	if otherAccepted {
		return nil, apperr.Conflict("project %d already has an accepted proposal", projectID)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1
    `, proposalID, model.ProposalStatusAccepted); err != nil {
		return nil, apperr.Store("accept proposal", err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
    `, projectID, model.ProjectStatusInProgress); err != nil {
		return nil, apperr.Store("advance project", err)
	}

	rows, err := tx.Query(ctx, `
        UPDATE proposals
        SET status = $2, updated_at = NOW()
        WHERE project_id = $1 AND id <> $3 AND status = $4
        RETURNING provider_id
    `, projectID, model.ProposalStatusRejected, proposalID, model.ProposalStatusPending)
	if err != nil {
		return nil, apperr.Store("reject sibling proposals", err)
	}
	var rejectedProviderIDs []int
	for rows.Next() {
		var providerID int
		if err := rows.Scan(&providerID); err != nil {
			rows.Close()
			return nil, apperr.Store("scan rejected provider", err)
		}
		rejectedProviderIDs = append(rejectedProviderIDs, providerID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("reject sibling proposals", err)
	}

	payload := mq.ProposalAcceptedPayload{
		ProposalID:          proposalID,
		ProjectID:           projectID,
		CustomerID:          customerID,
		AcceptedProviderID:  targetProviderID,
		RejectedProviderIDs: rejectedProviderIDs,
		AcceptedAt:          time.Now(),
	}
	aggregateID := int64(projectID)
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "proposal", &aggregateID,
		mq.RoutingKeyProposalAccepted, payload); err != nil {
		return nil, apperr.Store("outbox proposal.accepted", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Store("commit accept cascade", err)
	}
	metrics.RecordDBQueryDuration("accept_cascade", "proposals", time.Since(start))

	r.logger.Info("Acceptance cascade applied",
		zap.Int("proposal_id", proposalID),
		zap.Int("project_id", projectID),
		zap.Int("rejected_siblings", len(rejectedProviderIDs)),
	)
	return &CascadeResult{
		AcceptedProviderID:  targetProviderID,
		RejectedProviderIDs: rejectedProviderIDs,
	}, nil
}
