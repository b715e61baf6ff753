package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

const ticketColumns = `id, ticket_number, customer_name, customer_email, customer_phone,
               device_type, device_brand, device_model, issue_description,
               status, priority, estimated_cost, final_cost, estimated_completion,
               customer_notes, created_at, updated_at, deleted_at`

// TicketFilter captures admin list parameters.
type TicketFilter struct {
	Statuses   []domain.RepairStatus
	Priorities []domain.RepairPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates repair ticket persistence. Every read
// excludes soft-deleted rows.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.RepairTicket) error
	Update(ctx context.Context, ticket *domain.RepairTicket) error
	GetByID(ctx context.Context, id string) (*domain.RepairTicket, error)
	SoftDelete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error)
	NextTicketNumber(ctx context.Context, now time.Time) (string, error)

	FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error)
	FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        INSERT INTO repair_tickets (ticket_number, customer_name, customer_email, customer_phone,
            device_type, device_brand, device_model, issue_description,
            status, priority, estimated_cost, estimated_completion, customer_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CustomerPhone,
		ticket.DeviceType,
		ticket.DeviceBrand,
		ticket.DeviceModel,
		ticket.IssueDescription,
		ticket.Status,
		ticket.Priority,
		ticket.EstimatedCost,
		ticket.EstimatedCompletion,
		ticket.CustomerNotes,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.RepairTicket) error {
	const query = `
        UPDATE repair_tickets SET customer_name=$1, customer_email=$2, customer_phone=$3,
            device_type=$4, device_brand=$5, device_model=$6, issue_description=$7,
            status=$8, priority=$9, estimated_cost=$10, final_cost=$11,
            estimated_completion=$12, customer_notes=$13, updated_at=NOW()
        WHERE id=$14 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.CustomerPhone,
		ticket.DeviceType,
		ticket.DeviceBrand,
		ticket.DeviceModel,
		ticket.IssueDescription,
		ticket.Status,
		ticket.Priority,
		ticket.EstimatedCost,
		ticket.FinalCost,
		ticket.EstimatedCompletion,
		ticket.CustomerNotes,
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

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.RepairTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE id=$1 AND deleted_at IS NULL`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

// SoftDelete marks the ticket deleted and cancels it in the same statement.
// Deleted tickets disappear from every lookup but stay on disk.
func (r *ticketRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
        UPDATE repair_tickets SET deleted_at=NOW(), status=$1, updated_at=NOW()
        WHERE id=$2 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, domain.StatusCancelled, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets
        WHERE LOWER(ticket_number)=LOWER($1) AND deleted_at IS NULL`, ticketColumns)
	ticket, err := r.fetchSingle(ctx, query, number)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(fragment)) + "%"

	var total int
	const countQuery = `SELECT COUNT(*) FROM repair_tickets
        WHERE LOWER(customer_name) LIKE $1 AND deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM repair_tickets
        WHERE LOWER(customer_name) LIKE $1 AND deleted_at IS NULL
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, ticketColumns, limit, offset)

	rows, err := r.pool.Query(ctx, query, pattern)
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

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	base := fmt.Sprintf(`SELECT %s FROM repair_tickets`, ticketColumns)
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(ticket_number) LIKE %s OR LOWER(customer_name) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// NextTicketNumber reserves the next RPR-YYYY-NNNN number for the year of
// now. The per-year counter row makes numbers unique without a retry loop.
func (r *ticketRepository) NextTicketNumber(ctx context.Context, now time.Time) (string, error) {
	const query = `
        INSERT INTO ticket_counters (year, last_value) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET last_value = ticket_counters.last_value + 1
        RETURNING last_value`
	year := now.Year()
	var value int
	if err := r.pool.QueryRow(ctx, query, year).Scan(&value); err != nil {
		return "", err
	}
	return fmt.Sprintf("RPR-%d-%04d", year, value), nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RepairTicket, error) {
	var ticket domain.RepairTicket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.CustomerPhone,
		&ticket.DeviceType,
		&ticket.DeviceBrand,
		&ticket.DeviceModel,
		&ticket.IssueDescription,
		&ticket.Status,
		&ticket.Priority,
		&ticket.EstimatedCost,
		&ticket.FinalCost,
		&ticket.EstimatedCompletion,
		&ticket.CustomerNotes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.RepairTicket, error) {
	var result []domain.RepairTicket
	for rows.Next() {
		var ticket domain.RepairTicket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.CustomerName,
			&ticket.CustomerEmail,
			&ticket.CustomerPhone,
			&ticket.DeviceType,
			&ticket.DeviceBrand,
			&ticket.DeviceModel,
			&ticket.IssueDescription,
			&ticket.Status,
			&ticket.Priority,
			&ticket.EstimatedCost,
			&ticket.FinalCost,
			&ticket.EstimatedCompletion,
			&ticket.CustomerNotes,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
