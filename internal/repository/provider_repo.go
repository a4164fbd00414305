package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"renomarket/internal/apperr"
)

// ProviderRepository reads the provider-side tables the workflow joins
// against. The profile surface owns the writes.
type ProviderRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProviderRepository(db *pgxpool.Pool, logger *zap.Logger) *ProviderRepository {
	return &ProviderRepository{db: db, logger: logger}
}

// ProviderIDsByCategory returns the providers whose declared offerings
// include the category. Pure read.
func (r *ProviderRepository) ProviderIDsByCategory(ctx context.Context, category string) ([]int, error) {
	r.logger.Debug("Finding eligible providers", zap.String("category", category))

	rows, err := r.db.Query(ctx, `
        SELECT provider_id FROM provider_services WHERE category = $1
    `, category)
	if err != nil {
		r.logger.Error("Failed to query provider services", zap.Error(err))
		return nil, apperr.Store("find eligible providers", err)
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
