package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentSelect = `
        SELECT a.id, a.ticket_id, a.note_id, a.filename, a.original_filename, a.file_path,
               a.file_size, a.content_type, a.uploaded_by_id, a.created_at, u.full_name
        FROM attachments a
        JOIN users u ON u.id = a.uploaded_by_id`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, note_id, filename, original_filename, file_path, file_size, content_type, uploaded_by_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		attachment.TicketID,
		attachment.NoteID,
		attachment.Filename,
		attachment.OriginalFilename,
		attachment.FilePath,
		attachment.FileSize,
		attachment.ContentType,
		attachment.UploadedByID,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	attachment, err := scanAttachment(persistence.Conn(ctx, r.pool).QueryRow(ctx, attachmentSelect+` WHERE a.id=$1`, id))
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.Attachment, error) {
	query := attachmentSelect + ` WHERE a.ticket_id=$1 ORDER BY a.created_at ASC, a.id ASC`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Attachment{}
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := row.Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.NoteID,
		&attachment.Filename,
		&attachment.OriginalFilename,
		&attachment.FilePath,
		&attachment.FileSize,
		&attachment.ContentType,
		&attachment.UploadedByID,
		&attachment.CreatedAt,
		&attachment.UploadedByName,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}
