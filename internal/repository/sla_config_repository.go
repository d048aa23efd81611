package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// SLAConfigRepository stores per-priority SLA targets.
type SLAConfigRepository interface {
	GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SlaConfig, error)
	List(ctx context.Context) ([]domain.SlaConfig, error)
	Upsert(ctx context.Context, cfg *domain.SlaConfig) error
	InsertIfMissing(ctx context.Context, cfg *domain.SlaConfig) (bool, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository constructs repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

func (r *slaConfigRepository) GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SlaConfig, error) {
	const query = `
        SELECT priority, target_assign_minutes, target_resolve_minutes, created_at, updated_at
        FROM sla_config WHERE priority=$1`
	var cfg domain.SlaConfig
	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query, priority).Scan(
		&cfg.Priority,
		&cfg.TargetAssignMinutes,
		&cfg.TargetResolveMinutes,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) List(ctx context.Context) ([]domain.SlaConfig, error) {
	const query = `
        SELECT priority, target_assign_minutes, target_resolve_minutes, created_at, updated_at
        FROM sla_config
        ORDER BY CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SlaConfig{}
	for rows.Next() {
		var cfg domain.SlaConfig
		if err := rows.Scan(&cfg.Priority, &cfg.TargetAssignMinutes, &cfg.TargetResolveMinutes, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) Upsert(ctx context.Context, cfg *domain.SlaConfig) error {
	const query = `
        INSERT INTO sla_config (priority, target_assign_minutes, target_resolve_minutes)
        VALUES ($1,$2,$3)
        ON CONFLICT (priority) DO UPDATE
            SET target_assign_minutes=EXCLUDED.target_assign_minutes,
                target_resolve_minutes=EXCLUDED.target_resolve_minutes,
                updated_at=NOW()
        RETURNING created_at, updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		cfg.Priority,
		cfg.TargetAssignMinutes,
		cfg.TargetResolveMinutes,
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
}

// InsertIfMissing reports whether a row was written.
func (r *slaConfigRepository) InsertIfMissing(ctx context.Context, cfg *domain.SlaConfig) (bool, error) {
	const query = `
        INSERT INTO sla_config (priority, target_assign_minutes, target_resolve_minutes)
        VALUES ($1,$2,$3)
        ON CONFLICT (priority) DO NOTHING`
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, query,
		cfg.Priority,
		cfg.TargetAssignMinutes,
		cfg.TargetResolveMinutes,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
