package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// GroupRepository manages groups and their memberships.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	Update(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	GetByName(ctx context.Context, name string) (*domain.Group, error)
	List(ctx context.Context, limit, offset int) ([]domain.Group, int, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMembership, error)
	GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMembership, error)
	AddMember(ctx context.Context, membership *domain.GroupMembership) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
}

type groupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository constructs repository.
func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

const groupSelect = `
        SELECT g.id, g.name, g.description, g.created_at, g.updated_at,
               (SELECT COUNT(*) FROM group_memberships m WHERE m.group_id = g.id)
        FROM groups g`

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	const query = `
        INSERT INTO groups (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		group.Name,
		group.Description,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
}

func (r *groupRepository) Update(ctx context.Context, group *domain.Group) error {
	const query = `
        UPDATE groups SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		group.Name,
		group.Description,
		group.ID,
	).Scan(&group.UpdatedAt)
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	return scanGroup(persistence.Conn(ctx, r.pool).QueryRow(ctx, groupSelect+` WHERE g.id=$1`, id))
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return scanGroup(persistence.Conn(ctx, r.pool).QueryRow(ctx, groupSelect+` WHERE g.name=$1`, name))
}

func (r *groupRepository) List(ctx context.Context, limit, offset int) ([]domain.Group, int, error) {
	db := persistence.Conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(ctx, groupSelect+` ORDER BY g.created_at ASC, g.id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMembership, error) {
	const query = `
        SELECT m.id, m.group_id, m.user_id, m.is_lead, m.created_at, u.username, u.full_name
        FROM group_memberships m
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id=$1
        ORDER BY m.created_at ASC, m.id ASC`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.GroupMembership{}
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *membership)
	}
	return result, rows.Err()
}

func (r *groupRepository) GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMembership, error) {
	const query = `
        SELECT m.id, m.group_id, m.user_id, m.is_lead, m.created_at, u.username, u.full_name
        FROM group_memberships m
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id=$1 AND m.user_id=$2`
	return scanMembership(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, groupID, userID))
}

func (r *groupRepository) AddMember(ctx context.Context, membership *domain.GroupMembership) error {
	const query = `
        INSERT INTO group_memberships (group_id, user_id, is_lead)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		membership.GroupID,
		membership.UserID,
		membership.IsLead,
	).Scan(&membership.ID, &membership.CreatedAt)
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM group_memberships WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var group domain.Group
	if err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.MemberCount,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

func scanMembership(row rowScanner) (*domain.GroupMembership, error) {
	var membership domain.GroupMembership
	if err := row.Scan(
		&membership.ID,
		&membership.GroupID,
		&membership.UserID,
		&membership.IsLead,
		&membership.CreatedAt,
		&membership.Username,
		&membership.FullName,
	); err != nil {
		return nil, err
	}
	return &membership, nil
}
