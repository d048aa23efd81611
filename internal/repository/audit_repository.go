package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// AuditRepository stores append-only audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.AuditLogEntry, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, int, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

const auditSelect = `
        SELECT a.id, a.ticket_id, a.actor_id, a.actor_type, a.action, a.field_changed,
               a.old_value, a.new_value, a.metadata, a.created_at, u.full_name, t.ticket_number
        FROM audit_log a
        LEFT JOIN users u ON u.id = a.actor_id
        LEFT JOIN tickets t ON t.id = a.ticket_id`

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (ticket_id, actor_id, actor_type, action, field_changed, old_value, new_value, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.ActorType,
		entry.Action,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.AuditLogEntry, error) {
	query := auditSelect + ` WHERE a.ticket_id=$1 ORDER BY a.created_at DESC, a.seq DESC`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, int, error) {
	db := persistence.Conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := auditSelect + ` ORDER BY a.created_at DESC, a.seq DESC LIMIT $1 OFFSET $2`
	rows, err := db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries, err := scanAuditEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditLogEntry, error) {
	result := []domain.AuditLogEntry{}
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.ActorType,
			&entry.Action,
			&entry.FieldChanged,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Metadata,
			&entry.CreatedAt,
			&entry.ActorName,
			&entry.TicketNumber,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
