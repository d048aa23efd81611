package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/persistence"
)

// TicketListFilter captures ticket search parameters.
type TicketListFilter struct {
	Statuses        []domain.TicketStatus
	Priority        *domain.TicketPriority
	AssignedGroupID *uuid.UUID
	AssignedUserID  *uuid.UUID
	CreatedByID     *uuid.UUID
	Search          *string
	SLABreached     bool
	SortBy          string
	SortOrder       string
	Limit           int
	Offset          int
}

// TicketMetricsFilter narrows MTTA/MTTR aggregates.
type TicketMetricsFilter struct {
	GroupID     *uuid.UUID
	Priority    *domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	NextTicketNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int, error)
	ListOpenWithTarget(ctx context.Context) ([]domain.Ticket, error)
	AverageAssignSeconds(ctx context.Context, filter TicketMetricsFilter) (*float64, error)
	AverageResolveSeconds(ctx context.Context, filter TicketMetricsFilter) (*float64, error)
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.ticket_number, t.title, t.description, t.status, t.priority,
               t.assigned_group_id, t.assigned_user_id, t.created_by_id, t.resolved_at,
               t.first_assigned_at, t.sla_target_minutes, t.sla_target_assign_minutes,
               t.created_at, t.updated_at, g.name, au.full_name, cb.full_name
        FROM tickets t
        JOIN groups g ON g.id = t.assigned_group_id
        LEFT JOIN users au ON au.id = t.assigned_user_id
        JOIN users cb ON cb.id = t.created_by_id`

const (
	sortAsc  = "asc"
	sortDesc = "desc"
)

// ticketSortColumns maps sort keys to one or more ORDER BY expressions.
// Ticket numbers sort by length first so ASM-10000 follows ASM-9999.
var ticketSortColumns = map[string][]string{
	"created_at":    {"t.created_at"},
	"updated_at":    {"t.updated_at"},
	"title":         {"t.title"},
	"ticket_number": {"length(t.ticket_number)", "t.ticket_number"},
	"resolved_at":   {"t.resolved_at"},
	"status":        {"CASE t.status WHEN 'open' THEN 0 WHEN 'under_investigation' THEN 1 ELSE 2 END"},
	"priority":      {"CASE t.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"},
}

func (r *ticketRepository) NextTicketNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return domain.FormatTicketNumber(seq), nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, assigned_group_id,
            assigned_user_id, created_by_id, resolved_at, first_assigned_at, sla_target_minutes,
            sla_target_assign_minutes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedGroupID,
		ticket.AssignedUserID,
		ticket.CreatedByID,
		ticket.ResolvedAt,
		ticket.FirstAssignedAt,
		ticket.SLATargetMinutes,
		ticket.SLATargetAssignMinutes,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assigned_group_id=$5,
            assigned_user_id=$6, resolved_at=$7, first_assigned_at=$8, updated_at=$9
        WHERE id=$10`
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedGroupID,
		ticket.AssignedUserID,
		ticket.ResolvedAt,
		ticket.FirstAssignedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, ticketSelect+` WHERE t.ticket_number=$1`, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(persistence.Conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int, error) {
	where, args := buildTicketFilter(filter)
	db := persistence.Conn(ctx, r.pool)

	var total int
	countQuery := `SELECT COUNT(*) FROM tickets t WHERE ` + where
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketSelect, where, ticketOrderClause(filter.SortBy, filter.SortOrder), limit, offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListOpenWithTarget(ctx context.Context) ([]domain.Ticket, error) {
	query := ticketSelect + `
        WHERE t.status IN ('open','under_investigation') AND t.sla_target_minutes IS NOT NULL
        ORDER BY t.created_at ASC, t.id ASC`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) AverageAssignSeconds(ctx context.Context, filter TicketMetricsFilter) (*float64, error) {
	return r.average(ctx, "first_assigned_at", filter)
}

func (r *ticketRepository) AverageResolveSeconds(ctx context.Context, filter TicketMetricsFilter) (*float64, error) {
	return r.average(ctx, "resolved_at", filter)
}

func (r *ticketRepository) average(ctx context.Context, column string, filter TicketMetricsFilter) (*float64, error) {
	query, args, err := buildAverageQuery(column, filter)
	if err != nil {
		return nil, err
	}

	var avg *float64
	if err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&avg); err != nil {
		return nil, err
	}
	return avg, nil
}

// averageColumns are the only timestamps buildAverageQuery will interpolate.
var averageColumns = map[string]bool{
	"first_assigned_at": true,
	"resolved_at":       true,
}

// buildAverageQuery renders the mean seconds from created_at to column. Both date bounds are inclusive.
func buildAverageQuery(column string, filter TicketMetricsFilter) (string, []any, error) {
	if !averageColumns[column] {
		return "", nil, fmt.Errorf("unsupported metrics column %q", column)
	}
	clauses := []string{fmt.Sprintf("%s IS NOT NULL", column)}
	args := []any{}

	if filter.GroupID != nil {
		args = append(args, *filter.GroupID)
		clauses = append(clauses, fmt.Sprintf("assigned_group_id=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT AVG(EXTRACT(EPOCH FROM (%s - created_at)))::float8 FROM tickets WHERE %s`,
		column, strings.Join(clauses, " AND "))
	return query, args, nil
}

func (r *ticketRepository) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	db := persistence.Conn(ctx, r.pool)
	summary := &domain.DashboardSummary{
		ByStatus:   []domain.StatusCount{},
		ByPriority: []domain.PriorityCount{},
		ByGroup:    []domain.GroupCount{},
	}

	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&summary.TotalTickets); err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		summary.ByStatus = append(summary.ByStatus, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(ctx, `SELECT priority, COUNT(*) FROM tickets GROUP BY priority ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var pc domain.PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		summary.ByPriority = append(summary.ByPriority, pc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(ctx, `
        SELECT g.name, COUNT(*) FROM groups g
        JOIN tickets t ON t.assigned_group_id = g.id
        GROUP BY g.name ORDER BY g.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gc domain.GroupCount
		if err := rows.Scan(&gc.GroupName, &gc.Count); err != nil {
			return nil, err
		}
		summary.ByGroup = append(summary.ByGroup, gc)
	}
	return summary, rows.Err()
}

// buildTicketFilter renders the WHERE body and its positional args.
func buildTicketFilter(filter TicketListFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.AssignedGroupID != nil {
		args = append(args, *filter.AssignedGroupID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_group_id=$%d", len(args)))
	}
	if filter.AssignedUserID != nil {
		args = append(args, *filter.AssignedUserID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_user_id=$%d", len(args)))
	}
	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("t.created_by_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, strings.TrimSpace(*filter.Search))
		clauses = append(clauses, fmt.Sprintf(
			"to_tsvector('english', t.title || ' ' || t.description) @@ plainto_tsquery('english', $%d)", len(args)))
	}
	if filter.SLABreached {
		clauses = append(clauses,
			"t.sla_target_minutes IS NOT NULL",
			"EXTRACT(EPOCH FROM (COALESCE(t.resolved_at, NOW()) - t.created_at)) > t.sla_target_minutes * 60")
	}

	return strings.Join(clauses, " AND "), args
}

// ticketOrderClause maps a requested sort onto an allow-listed expression, tie-broken by id.
func ticketOrderClause(sortBy, sortOrder string) string {
	exprs, ok := ticketSortColumns[sortBy]
	if !ok {
		exprs = ticketSortColumns["created_at"]
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, sortAsc) {
		direction = "ASC"
	}
	parts := make([]string, 0, len(exprs)+1)
	for _, expr := range exprs {
		parts = append(parts, expr+" "+direction)
	}
	parts = append(parts, "t.id "+direction)
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedGroupID,
		&ticket.AssignedUserID,
		&ticket.CreatedByID,
		&ticket.ResolvedAt,
		&ticket.FirstAssignedAt,
		&ticket.SLATargetMinutes,
		&ticket.SLATargetAssignMinutes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedGroupName,
		&ticket.AssignedUserName,
		&ticket.CreatedByName,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
