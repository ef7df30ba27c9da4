package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	pkgkafka "github.com/tillpoint/ticketpay/pkg/kafka"
)

// Kafka topic constants for payment domain events.
const (
	TopicTicketCreated      = "ticketpay.ticket.created"
	TopicPaymentSessionOpen = "ticketpay.payment.session_opened"
	TopicPaymentCommitted   = "ticketpay.payment.committed"
)

// Aggregate type constant.
const AggregateTypeTicket = "ticket"

// Source identifier for events originating from this service.
const SourceTicketpay = "ticketpay-service"

// TicketCreatedData is the payload for a ticket.created event.
type TicketCreatedData struct {
	TicketID  string          `json:"ticket_id"`
	Number    string          `json:"number"`
	Currency  string          `json:"currency"`
	LineCount int             `json:"line_count"`
	NetTotal  decimal.Decimal `json:"net_total"`
}

// PaymentSessionOpenedData is the payload for a payment.session_opened event.
type PaymentSessionOpenedData struct {
	SessionID string `json:"session_id"`
	TicketID  string `json:"ticket_id"`
}

// PaymentCommittedData is the payload for a payment.committed event.
type PaymentCommittedData struct {
	SessionID      string          `json:"session_id"`
	TicketID       string          `json:"ticket_id"`
	Status         string          `json:"status"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	CommittedItems []PaidItemData  `json:"committed_items"`
}

// PaidItemData is the event payload for one committed payable group.
type PaidItemData struct {
	MenuItemID string          `json:"menu_item_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Producer publishes payment domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the ticketpay service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishTicketCreated publishes a ticket.created event.
func (p *Producer) PublishTicketCreated(ctx context.Context, data TicketCreatedData) error {
	event, err := pkgkafka.NewEvent(TopicTicketCreated, data.TicketID, AggregateTypeTicket, SourceTicketpay, data)
	if err != nil {
		return fmt.Errorf("create ticket.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicTicketCreated, event); err != nil {
		return fmt.Errorf("publish ticket.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published ticket.created event",
		slog.String("ticket_id", data.TicketID),
	)

	return nil
}

// PublishPaymentSessionOpened publishes a payment.session_opened event.
func (p *Producer) PublishPaymentSessionOpened(ctx context.Context, sessionID, ticketID string) error {
	data := PaymentSessionOpenedData{
		SessionID: sessionID,
		TicketID:  ticketID,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentSessionOpen, ticketID, AggregateTypeTicket, SourceTicketpay, data)
	if err != nil {
		return fmt.Errorf("create payment.session_opened event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentSessionOpen, event); err != nil {
		return fmt.Errorf("publish payment.session_opened event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.session_opened event",
		slog.String("session_id", sessionID),
		slog.String("ticket_id", ticketID),
	)

	return nil
}

// PublishPaymentCommitted publishes a payment.committed event.
func (p *Producer) PublishPaymentCommitted(ctx context.Context, data PaymentCommittedData) error {
	event, err := pkgkafka.NewEvent(TopicPaymentCommitted, data.TicketID, AggregateTypeTicket, SourceTicketpay, data)
	if err != nil {
		return fmt.Errorf("create payment.committed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentCommitted, event); err != nil {
		return fmt.Errorf("publish payment.committed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.committed event",
		slog.String("ticket_id", data.TicketID),
		slog.String("session_id", data.SessionID),
		slog.String("paid_amount", data.PaidAmount.String()),
	)

	return nil
}
