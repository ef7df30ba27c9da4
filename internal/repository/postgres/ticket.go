package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tillpoint/ticketpay/internal/domain"
	"github.com/tillpoint/ticketpay/internal/repository"
	"github.com/tillpoint/ticketpay/pkg/database"
	apperrors "github.com/tillpoint/ticketpay/pkg/errors"
)

// TicketRepository implements repository.TicketRepository using PostgreSQL.
type TicketRepository struct {
	pool database.DBTX
}

// NewTicketRepository creates a new PostgreSQL-backed ticket repository.
func NewTicketRepository(pool database.DBTX) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// Create inserts a ticket with its lines and calculations atomically.
func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ticketQuery := `
		INSERT INTO tickets (id, number, status, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, ticketQuery,
		t.ID,
		t.Number,
		t.Status,
		t.Currency,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	lineQuery := `
		INSERT INTO ticket_lines (id, ticket_id, menu_item_id, name, portion_name, portion_count, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, line := range t.Lines {
		_, err = tx.Exec(ctx, lineQuery,
			line.ID,
			line.TicketID,
			line.MenuItemID,
			line.Name,
			line.PortionName,
			line.PortionCount,
			line.Price,
			line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert ticket line: %w", err)
		}
	}

	calcQuery := `
		INSERT INTO ticket_calculations (id, ticket_id, name, type, decrease, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, calc := range t.Calculations {
		_, err = tx.Exec(ctx, calcQuery,
			calc.ID,
			calc.TicketID,
			calc.Name,
			calc.Type,
			calc.Decrease,
			calc.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert ticket calculation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a ticket by its ID, eagerly loading lines, calculations
// and the paid-item ledger.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticketQuery := `
		SELECT id, number, status, currency, created_at, updated_at
		FROM tickets
		WHERE id = $1`

	var t domain.Ticket
	err := r.pool.QueryRow(ctx, ticketQuery, id).Scan(
		&t.ID,
		&t.Number,
		&t.Status,
		&t.Currency,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("ticket", id)
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	if t.Lines, err = r.loadLines(ctx, id); err != nil {
		return nil, err
	}
	if t.Calculations, err = r.loadCalculations(ctx, id); err != nil {
		return nil, err
	}
	if t.PaidItems, err = r.loadPaidItems(ctx, id); err != nil {
		return nil, err
	}

	return &t, nil
}

// List returns tickets matching the given filter with the total count.
func (r *TicketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, number, status, currency, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM tickets
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var totalCount int
	tickets := make([]domain.Ticket, 0)

	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.Number,
			&t.Status,
			&t.Currency,
			&t.CreatedAt,
			&t.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ticket rows: %w", err)
	}

	return tickets, totalCount, nil
}

// AppendPaidItems folds settled quantities into the ledger and updates the
// ticket status in one transaction. Ledger rows are keyed by
// (ticket_id, menu_item_id, price) so repeated payments against the same
// payable group accumulate into a single row.
func (r *TicketRepository) AppendPaidItems(ctx context.Context, ticketID string, status string, items []domain.PaidItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	itemQuery := `
		INSERT INTO ticket_paid_items (id, ticket_id, menu_item_id, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticket_id, menu_item_id, price)
		DO UPDATE SET quantity = ticket_paid_items.quantity + EXCLUDED.quantity`

	for _, item := range items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			ticketID,
			item.MenuItemID,
			item.Price,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("upsert paid item: %w", err)
		}
	}

	statusQuery := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := tx.Exec(ctx, statusQuery, status, time.Now().UTC(), ticketID)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("ticket", ticketID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *TicketRepository) loadLines(ctx context.Context, ticketID string) ([]domain.OrderLine, error) {
	query := `
		SELECT id, ticket_id, menu_item_id, name, portion_name, portion_count, price, quantity
		FROM ticket_lines
		WHERE ticket_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query ticket lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID,
			&line.TicketID,
			&line.MenuItemID,
			&line.Name,
			&line.PortionName,
			&line.PortionCount,
			&line.Price,
			&line.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan ticket line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket line rows: %w", err)
	}

	return lines, nil
}

func (r *TicketRepository) loadCalculations(ctx context.Context, ticketID string) ([]domain.Calculation, error) {
	query := `
		SELECT id, ticket_id, name, type, decrease, amount
		FROM ticket_calculations
		WHERE ticket_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query ticket calculations: %w", err)
	}
	defer rows.Close()

	var calcs []domain.Calculation
	for rows.Next() {
		var calc domain.Calculation
		if err := rows.Scan(
			&calc.ID,
			&calc.TicketID,
			&calc.Name,
			&calc.Type,
			&calc.Decrease,
			&calc.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan ticket calculation: %w", err)
		}
		calcs = append(calcs, calc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket calculation rows: %w", err)
	}

	return calcs, nil
}

func (r *TicketRepository) loadPaidItems(ctx context.Context, ticketID string) ([]domain.PaidItem, error) {
	query := `
		SELECT id, ticket_id, menu_item_id, price, quantity
		FROM ticket_paid_items
		WHERE ticket_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query paid items: %w", err)
	}
	defer rows.Close()

	var items []domain.PaidItem
	for rows.Next() {
		var item domain.PaidItem
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.MenuItemID,
			&item.Price,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan paid item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paid item rows: %w", err)
	}

	return items, nil
}
