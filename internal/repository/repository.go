package repository

import (
	"context"

	"github.com/tillpoint/ticketpay/internal/domain"
)

// TicketFilter defines filter criteria for listing tickets.
type TicketFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// TicketRepository defines the interface for ticket persistence operations.
type TicketRepository interface {
	// Create inserts a ticket with its lines and calculations atomically.
	Create(ctx context.Context, ticket *domain.Ticket) error

	// GetByID retrieves a ticket by its unique identifier, including lines,
	// calculations and the paid-item ledger.
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)

	// List returns tickets matching the given filter along with the total count.
	// Listed tickets carry no lines; load a ticket by ID for payment work.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)

	// AppendPaidItems folds settled quantities into the ticket's ledger and
	// updates the ticket status, atomically.
	AppendPaidItems(ctx context.Context, ticketID string, status string, items []domain.PaidItem) error
}
