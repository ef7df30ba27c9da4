package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/ticketpay/internal/domain"
	"github.com/tillpoint/ticketpay/internal/repository"
	"github.com/tillpoint/ticketpay/pkg/database"
	apperrors "github.com/tillpoint/ticketpay/pkg/errors"
)

// --- Test Helpers ---

func newTestRepo(t *testing.T) (*TicketRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewTicketRepository(mock)
	return repo, mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTicket() *domain.Ticket {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Ticket{
		ID:        "ticket-001",
		Number:    "0042",
		Status:    domain.TicketStatusOpen,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
		Lines: []domain.OrderLine{
			{
				ID:           "line-001",
				TicketID:     "ticket-001",
				MenuItemID:   "item-toast",
				Name:         "Toast",
				PortionName:  "Piece",
				PortionCount: 2,
				Price:        dec("5"),
				Quantity:     2,
			},
			{
				ID:         "line-002",
				TicketID:   "ticket-001",
				MenuItemID: "item-hamburger",
				Name:       "Hamburger",
				Price:      dec("7"),
				Quantity:   1,
			},
		},
		Calculations: []domain.Calculation{
			{
				ID:       "calc-001",
				TicketID: "ticket-001",
				Name:     "Discount",
				Type:     domain.CalculationPercentage,
				Decrease: true,
				Amount:   dec("10"),
			},
		},
	}
}

// --- Create Tests ---

func TestTicketRepository_Create_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	tk := sampleTicket()

	mock.ExpectBegin()

	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(tk.ID, tk.Number, tk.Status, tk.Currency, tk.CreatedAt, tk.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	for _, line := range tk.Lines {
		mock.ExpectExec("INSERT INTO ticket_lines").
			WithArgs(
				line.ID, line.TicketID, line.MenuItemID, line.Name,
				line.PortionName, line.PortionCount, line.Price, line.Quantity,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	for _, calc := range tk.Calculations {
		mock.ExpectExec("INSERT INTO ticket_calculations").
			WithArgs(calc.ID, calc.TicketID, calc.Name, calc.Type, calc.Decrease, calc.Amount).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	mock.ExpectCommit()

	err := repo.Create(context.Background(), tk)
	require.NoError(t, err)
}

func TestTicketRepository_Create_RollsBackOnLineError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	tk := sampleTicket()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(tk.ID, tk.Number, tk.Status, tk.Currency, tk.CreatedAt, tk.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO ticket_lines").
		WithArgs(
			tk.Lines[0].ID, tk.Lines[0].TicketID, tk.Lines[0].MenuItemID, tk.Lines[0].Name,
			tk.Lines[0].PortionName, tk.Lines[0].PortionCount, tk.Lines[0].Price, tk.Lines[0].Quantity,
		).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), tk)
	assert.Error(t, err)
}

// --- GetByID Tests ---

func TestTicketRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	tk := sampleTicket()

	mock.ExpectQuery("SELECT id, number, status, currency, created_at, updated_at").
		WithArgs(tk.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "currency", "created_at", "updated_at"}).
			AddRow(tk.ID, tk.Number, tk.Status, tk.Currency, tk.CreatedAt, tk.UpdatedAt))

	lineRows := pgxmock.NewRows([]string{"id", "ticket_id", "menu_item_id", "name", "portion_name", "portion_count", "price", "quantity"})
	for _, line := range tk.Lines {
		lineRows.AddRow(line.ID, line.TicketID, line.MenuItemID, line.Name, line.PortionName, line.PortionCount, line.Price, line.Quantity)
	}
	mock.ExpectQuery("SELECT (.+) FROM ticket_lines").
		WithArgs(tk.ID).
		WillReturnRows(lineRows)

	calcRows := pgxmock.NewRows([]string{"id", "ticket_id", "name", "type", "decrease", "amount"})
	for _, calc := range tk.Calculations {
		calcRows.AddRow(calc.ID, calc.TicketID, calc.Name, calc.Type, calc.Decrease, calc.Amount)
	}
	mock.ExpectQuery("SELECT (.+) FROM ticket_calculations").
		WithArgs(tk.ID).
		WillReturnRows(calcRows)

	mock.ExpectQuery("SELECT (.+) FROM ticket_paid_items").
		WithArgs(tk.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "ticket_id", "menu_item_id", "price", "quantity"}).
			AddRow("paid-001", tk.ID, "item-toast", dec("5"), 1))

	got, err := repo.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)

	assert.Equal(t, tk.ID, got.ID)
	assert.Len(t, got.Lines, 2)
	assert.Len(t, got.Calculations, 1)
	require.Len(t, got.PaidItems, 1)
	assert.Equal(t, 1, got.PaidItems[0].Quantity)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT id, number, status, currency, created_at, updated_at").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- List Tests ---

func TestTicketRepository_List_FiltersByStatus(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC()
	status := domain.TicketStatusOpen

	mock.ExpectQuery("SELECT id, number, status, currency, created_at, updated_at").
		WithArgs(status, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "currency", "created_at", "updated_at", "total_count"}).
			AddRow("ticket-001", "0042", status, "USD", now, now, 1))

	tickets, total, err := repo.List(context.Background(), repository.TicketFilter{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, tickets, 1)
	assert.Equal(t, "ticket-001", tickets[0].ID)
}

func TestTicketRepository_List_Empty(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SELECT id, number, status, currency, created_at, updated_at").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "number", "status", "currency", "created_at", "updated_at", "total_count"}))

	tickets, total, err := repo.List(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)

	assert.Equal(t, 0, total)
	assert.Empty(t, tickets)
}

// --- AppendPaidItems Tests ---

func TestTicketRepository_AppendPaidItems_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	items := []domain.PaidItem{
		{ID: "paid-001", MenuItemID: "item-toast", Price: dec("5"), Quantity: 2},
		{ID: "paid-002", MenuItemID: "item-hamburger", Price: dec("7"), Quantity: 1},
	}

	mock.ExpectBegin()
	for _, item := range items {
		mock.ExpectExec("INSERT INTO ticket_paid_items").
			WithArgs(item.ID, "ticket-001", item.MenuItemID, item.Price, item.Quantity).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec("UPDATE tickets").
		WithArgs(domain.TicketStatusPartiallyPaid, pgxmock.AnyArg(), "ticket-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.AppendPaidItems(context.Background(), "ticket-001", domain.TicketStatusPartiallyPaid, items)
	require.NoError(t, err)
}

func TestTicketRepository_AppendPaidItems_TicketNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.ExpectationsWereMet()

	items := []domain.PaidItem{
		{ID: "paid-001", MenuItemID: "item-toast", Price: dec("5"), Quantity: 1},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ticket_paid_items").
		WithArgs("paid-001", "missing", "item-toast", dec("5"), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE tickets").
		WithArgs(domain.TicketStatusSettled, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.AppendPaidItems(context.Background(), "missing", domain.TicketStatusSettled, items)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
