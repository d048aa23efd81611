package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// NoteRepository stores ticket notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.TicketNote) error
	Update(ctx context.Context, note *domain.TicketNote) error
	GetByID(ctx context.Context, ticketID, noteID uuid.UUID) (*domain.TicketNote, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.TicketNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository constructs repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

const noteSelect = `
        SELECT n.id, n.ticket_id, n.author_id, n.content, n.is_internal, n.created_at, n.updated_at, u.full_name
        FROM ticket_notes n
        JOIN users u ON u.id = n.author_id`

func (r *noteRepository) Create(ctx context.Context, note *domain.TicketNote) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, author_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		note.TicketID,
		note.AuthorID,
		note.Content,
		note.IsInternal,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
}

// Update rewrites content and visibility; created_at is left untouched.
func (r *noteRepository) Update(ctx context.Context, note *domain.TicketNote) error {
	const query = `
        UPDATE ticket_notes SET content=$1, is_internal=$2, updated_at=NOW()
        WHERE id=$3 AND ticket_id=$4
        RETURNING updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		note.Content,
		note.IsInternal,
		note.ID,
		note.TicketID,
	).Scan(&note.UpdatedAt)
}

func (r *noteRepository) GetByID(ctx context.Context, ticketID, noteID uuid.UUID) (*domain.TicketNote, error) {
	note, err := scanNote(persistence.Conn(ctx, r.pool).QueryRow(ctx,
		noteSelect+` WHERE n.id=$1 AND n.ticket_id=$2`, noteID, ticketID))
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (r *noteRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.TicketNote, error) {
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx,
		noteSelect+` WHERE n.ticket_id=$1 ORDER BY n.created_at ASC, n.id ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

func scanNote(row rowScanner) (*domain.TicketNote, error) {
	var note domain.TicketNote
	if err := row.Scan(
		&note.ID,
		&note.TicketID,
		&note.AuthorID,
		&note.Content,
		&note.IsInternal,
		&note.CreatedAt,
		&note.UpdatedAt,
		&note.AuthorName,
	); err != nil {
		return nil, err
	}
	return &note, nil
}

func scanNotes(rows pgx.Rows) ([]domain.TicketNote, error) {
	result := []domain.TicketNote{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *note)
	}
	return result, rows.Err()
}
