package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// APIKeyRepository stores hashed API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	ListByPrefix(ctx context.Context, prefix string) ([]domain.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error)
	Deactivate(ctx context.Context, id, userID uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

type apiKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository constructs repository.
func NewAPIKeyRepository(pool *pgxpool.Pool) APIKeyRepository {
	return &apiKeyRepository{pool: pool}
}

const apiKeySelect = `
        SELECT id, name, key_prefix, key_hash, user_id, is_active, last_used_at, expires_at, created_at, updated_at
        FROM api_keys`

func (r *apiKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	const query = `
        INSERT INTO api_keys (name, key_prefix, key_hash, user_id, is_active, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		key.Name,
		key.KeyPrefix,
		key.KeyHash,
		key.UserID,
		key.IsActive,
		key.ExpiresAt,
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)
}

func (r *apiKeyRepository) ListByPrefix(ctx context.Context, prefix string) ([]domain.APIKey, error) {
	return r.list(ctx, apiKeySelect+` WHERE key_prefix=$1 AND is_active=TRUE`, prefix)
}

func (r *apiKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	return r.list(ctx, apiKeySelect+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *apiKeyRepository) list(ctx context.Context, query string, arg any) ([]domain.APIKey, error) {
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.APIKey{}
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.KeyPrefix,
			&key.KeyHash,
			&key.UserID,
			&key.IsActive,
			&key.LastUsedAt,
			&key.ExpiresAt,
			&key.CreatedAt,
			&key.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, key)
	}
	return result, rows.Err()
}

func (r *apiKeyRepository) Deactivate(ctx context.Context, id, userID uuid.UUID) error {
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE api_keys SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := persistence.Conn(ctx, r.pool).Exec(ctx, `UPDATE api_keys SET last_used_at=NOW() WHERE id=$1`, id)
	return err
}
