package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/ticketpay/internal/domain"
	"github.com/tillpoint/ticketpay/internal/event"
	"github.com/tillpoint/ticketpay/internal/rates"
	"github.com/tillpoint/ticketpay/internal/repository"
	apperrors "github.com/tillpoint/ticketpay/pkg/errors"
)

// session is one live payment-selection session. The embedded selector is not
// safe for concurrent use; mu serializes all access to it.
type session struct {
	mu       sync.Mutex
	id       string
	selector *domain.OrderSelector
}

// PaymentService implements ticket management and split-payment sessions.
// Sessions live in memory; all durable state goes through the repository, so
// a lost session costs nothing but an uncommitted selection.
type PaymentService struct {
	repo     repository.TicketRepository
	producer *event.Producer
	rates    rates.Provider
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewPaymentService creates a new payment service.
func NewPaymentService(repo repository.TicketRepository, producer *event.Producer, ratesProvider rates.Provider, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		repo:     repo,
		producer: producer,
		rates:    ratesProvider,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// CreateLineInput holds the parameters for one ticket line.
type CreateLineInput struct {
	MenuItemID   string          `json:"menu_item_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	PortionName  string          `json:"portion_name"`
	PortionCount int             `json:"portion_count"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
}

// CreateCalculationInput holds the parameters for one ticket calculation.
type CreateCalculationInput struct {
	Name     string          `json:"name" validate:"required"`
	Type     string          `json:"type" validate:"required,oneof=percentage fixed"`
	Decrease bool            `json:"decrease"`
	Amount   decimal.Decimal `json:"amount"`
}

// CreateTicketInput holds the parameters for creating a ticket.
type CreateTicketInput struct {
	Number       string
	Currency     string
	Lines        []CreateLineInput
	Calculations []CreateCalculationInput
}

// CreateTicket creates a new ticket from the given input.
func (s *PaymentService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if len(input.Lines) == 0 {
		return nil, apperrors.InvalidInput("ticket must contain at least one line")
	}
	if len(input.Currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("line quantity must be positive")
		}
		if line.Price.IsNegative() {
			return nil, apperrors.InvalidInput("line price cannot be negative")
		}
	}

	ticket := domain.NewTicket(uuid.New().String(), input.Number, strings.ToUpper(input.Currency))
	for _, line := range input.Lines {
		portionCount := line.PortionCount
		if portionCount < 1 {
			portionCount = 1
		}
		ticket.AddLine(domain.OrderLine{
			ID:           uuid.New().String(),
			MenuItemID:   line.MenuItemID,
			Name:         line.Name,
			PortionName:  line.PortionName,
			PortionCount: portionCount,
			Price:        line.Price,
			Quantity:     line.Quantity,
		})
	}
	for _, calc := range input.Calculations {
		if calc.Type != domain.CalculationPercentage && calc.Type != domain.CalculationFixed {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid calculation type %q", calc.Type))
		}
		ticket.AddCalculation(domain.Calculation{
			ID:       uuid.New().String(),
			Name:     calc.Name,
			Type:     calc.Type,
			Decrease: calc.Decrease,
			Amount:   calc.Amount,
		})
	}

	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	if err := s.producer.PublishTicketCreated(ctx, event.TicketCreatedData{
		TicketID:  ticket.ID,
		Number:    ticket.Number,
		Currency:  ticket.Currency,
		LineCount: len(ticket.Lines),
		NetTotal:  ticket.NetTotal().Round(2),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish ticket.created event",
			slog.String("ticket_id", ticket.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "ticket created",
		slog.String("ticket_id", ticket.ID),
		slog.String("number", ticket.Number),
		slog.Int("lines", len(ticket.Lines)),
	)

	return ticket, nil
}

// GetTicket retrieves a ticket by its ID.
func (s *PaymentService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket by id: %w", err)
	}
	return ticket, nil
}

// ListTickets returns a filtered, paginated list of tickets.
func (s *PaymentService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	tickets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}

	return tickets, total, nil
}

// SessionView is a read snapshot of a payment session.
type SessionView struct {
	SessionID      string            `json:"session_id"`
	TicketID       string            `json:"ticket_id"`
	TicketStatus   string            `json:"ticket_status"`
	Selectors      []domain.Selector `json:"selectors"`
	SelectedTotal  decimal.Decimal   `json:"selected_total"`
	RemainingTotal decimal.Decimal   `json:"remaining_total"`
	ExchangeRate   decimal.Decimal   `json:"exchange_rate"`
}

func snapshot(id string, sel *domain.OrderSelector) *SessionView {
	groups := sel.Selectors()
	view := &SessionView{
		SessionID:      id,
		TicketID:       sel.SelectedTicket().ID,
		TicketStatus:   sel.SelectedTicket().Status,
		Selectors:      make([]domain.Selector, len(groups)),
		SelectedTotal:  sel.SelectedTotal(),
		RemainingTotal: sel.RemainingTotal(),
		ExchangeRate:   sel.ExchangeRate(),
	}
	for i, g := range groups {
		view.Selectors[i] = *g
	}
	return view
}

// OpenSession loads the ticket and starts a payment-selection session on it.
func (s *PaymentService) OpenSession(ctx context.Context, ticketID string) (*SessionView, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("load ticket for session: %w", err)
	}
	if ticket.Status == domain.TicketStatusSettled {
		return nil, apperrors.Conflict("ticket is already settled")
	}

	selector := domain.NewOrderSelector()
	selector.UpdateTicket(ticket)

	sess := &session{
		id:       uuid.New().String(),
		selector: selector,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	if err := s.producer.PublishPaymentSessionOpened(ctx, sess.id, ticketID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.session_opened event",
			slog.String("session_id", sess.id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment session opened",
		slog.String("session_id", sess.id),
		slog.String("ticket_id", ticketID),
	)

	return snapshot(sess.id, selector), nil
}

func (s *PaymentService) getSession(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("payment session", id)
	}
	return sess, nil
}

// GetSession returns a snapshot of the session's current state.
func (s *PaymentService) GetSession(sessionID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshot(sess.id, sess.selector), nil
}

// SelectItem marks one more unit of the (menuItemID, price) payable group for
// payment. Unknown groups and exhausted groups leave the session unchanged.
func (s *PaymentService) SelectItem(sessionID, menuItemID string, price decimal.Decimal) (*SessionView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.selector.Select(menuItemID, price)
	return snapshot(sess.id, sess.selector), nil
}

// ClearSelection resets the session's transient selection.
func (s *PaymentService) ClearSelection(sessionID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.selector.ClearSelection()
	return snapshot(sess.id, sess.selector), nil
}

// SetCurrency resolves the exchange rate from the ticket currency to the
// given settlement currency and applies it to the session. The ticket's own
// currency always maps to rate 1 without a provider round trip.
func (s *PaymentService) SetCurrency(ctx context.Context, sessionID, currency string) (*SessionView, error) {
	if len(currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}
	currency = strings.ToUpper(currency)

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	base := sess.selector.SelectedTicket().Currency
	sess.mu.Unlock()

	rate := decimal.NewFromInt(1)
	if currency != base {
		rate, err = s.rates.Rate(ctx, base, currency)
		if err != nil {
			return nil, fmt.Errorf("resolve rate %s/%s: %w", base, currency, err)
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.selector.UpdateExchangeRate(rate)

	s.logger.InfoContext(ctx, "session exchange rate updated",
		slog.String("session_id", sessionID),
		slog.String("currency", currency),
		slog.String("rate", rate.String()),
	)

	return snapshot(sess.id, sess.selector), nil
}

// MarkSelectedPaid folds the session's selection into its paid counts without
// touching durable state. Used when an external tender is accepted but the
// operator keeps splitting before the final commit.
func (s *PaymentService) MarkSelectedPaid(sessionID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.selector.PersistSelectedItems()
	return snapshot(sess.id, sess.selector), nil
}

// CommitPayment durably settles the session's current selection: the ticket's
// paid-item ledger is extended, the ticket status moves to partially_paid or
// settled, and a payment.committed event is published.
func (s *PaymentService) CommitPayment(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	selector := sess.selector
	ticket := selector.SelectedTicket()

	paidAmount := selector.SelectedTotal()
	if paidAmount.IsZero() {
		return nil, apperrors.InvalidInput("nothing selected for payment")
	}

	var items []domain.PaidItem
	var eventItems []event.PaidItemData
	settled := true
	for _, group := range selector.Selectors() {
		if group.PaidQuantity+group.SelectedQuantity < group.Quantity {
			settled = false
		}
		if group.SelectedQuantity == 0 {
			continue
		}
		items = append(items, domain.PaidItem{
			ID:         uuid.New().String(),
			TicketID:   ticket.ID,
			MenuItemID: group.MenuItemID,
			Price:      group.Price,
			Quantity:   group.SelectedQuantity,
		})
		eventItems = append(eventItems, event.PaidItemData{
			MenuItemID: group.MenuItemID,
			Price:      group.Price,
			Quantity:   group.SelectedQuantity,
		})
	}

	status := domain.TicketStatusPartiallyPaid
	if settled {
		status = domain.TicketStatusSettled
	}

	// Durable write first; the in-memory fold happens only once the ledger
	// extension is committed.
	if err := s.repo.AppendPaidItems(ctx, ticket.ID, status, items); err != nil {
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	selector.PersistTicket()
	remaining := selector.RemainingTotal()
	ticket.Status = status
	ticket.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishPaymentCommitted(ctx, event.PaymentCommittedData{
		SessionID:      sessionID,
		TicketID:       ticket.ID,
		Status:         status,
		PaidAmount:     paidAmount,
		Remaining:      remaining,
		ExchangeRate:   selector.ExchangeRate(),
		CommittedItems: eventItems,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.committed event",
			slog.String("ticket_id", ticket.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment committed",
		slog.String("session_id", sessionID),
		slog.String("ticket_id", ticket.ID),
		slog.String("status", status),
		slog.String("paid_amount", paidAmount.String()),
		slog.String("remaining", remaining.String()),
	)

	return snapshot(sess.id, selector), nil
}

// CloseSession discards the session. Uncommitted selections are lost.
func (s *PaymentService) CloseSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return apperrors.NotFound("payment session", sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}
