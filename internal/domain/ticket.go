package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket status constants.
const (
	TicketStatusOpen          = "open"
	TicketStatusPartiallyPaid = "partially_paid"
	TicketStatusSettled       = "settled"
)

// Calculation type constants.
const (
	CalculationPercentage = "percentage"
	CalculationFixed      = "fixed"
)

// Ticket is an order/bill aggregate: its order lines, ticket-level
// calculations (discounts and surcharges), and the append-only ledger of
// quantities already settled by previous payments.
type Ticket struct {
	ID           string        `json:"id"`
	Number       string        `json:"number"`
	Status       string        `json:"status"`
	Currency     string        `json:"currency"`
	Lines        []OrderLine   `json:"lines"`
	Calculations []Calculation `json:"calculations,omitempty"`
	PaidItems    []PaidItem    `json:"paid_items,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// OrderLine is one entry on a ticket: a quantity of a menu item at a price.
// PortionCount is the number of portions the menu item defines in the
// catalog; it drives label disambiguation, never quantity math.
type OrderLine struct {
	ID           string          `json:"id"`
	TicketID     string          `json:"ticket_id"`
	MenuItemID   string          `json:"menu_item_id"`
	Name         string          `json:"name"`
	PortionName  string          `json:"portion_name,omitempty"`
	PortionCount int             `json:"portion_count"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// LineTotal returns price * quantity for this line.
func (l *OrderLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Calculation is a ticket-level adjustment. Percentage calculations carry a
// percent in Amount; fixed calculations carry a monetary amount. Decrease
// determines the sign of the effect on the ticket total.
type Calculation struct {
	ID       string          `json:"id"`
	TicketID string          `json:"ticket_id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Decrease bool            `json:"decrease"`
	Amount   decimal.Decimal `json:"amount"`
}

// EffectOn returns the signed monetary effect of the calculation on the
// given gross total: negative for decreases, positive otherwise.
func (c *Calculation) EffectOn(gross decimal.Decimal) decimal.Decimal {
	var effect decimal.Decimal
	switch c.Type {
	case CalculationPercentage:
		effect = gross.Mul(c.Amount).Div(decimal.NewFromInt(100))
	default:
		effect = c.Amount
	}
	if c.Decrease {
		return effect.Neg()
	}
	return effect
}

// PaidItem is one ledger record of settled quantity for a payable group.
// Price is the group's undiscounted unit price so the record's key stays
// stable across rebuilds regardless of ticket-level discounts.
type PaidItem struct {
	ID         string          `json:"id"`
	TicketID   string          `json:"ticket_id"`
	MenuItemID string          `json:"menu_item_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Key returns the payable-group key for this record.
func (p *PaidItem) Key() string {
	return GroupKey(p.MenuItemID, p.Price)
}

// GroupKey identifies a payable group: the same menu item at the same unit
// price merges into one group, different prices form distinct groups.
func GroupKey(menuItemID string, price decimal.Decimal) string {
	return menuItemID + "|" + price.String()
}

// NewTicket creates an open ticket with no lines.
func NewTicket(id, number, currency string) *Ticket {
	now := time.Now().UTC()
	return &Ticket{
		ID:        id,
		Number:    number,
		Status:    TicketStatusOpen,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine appends an order line to the ticket.
func (t *Ticket) AddLine(line OrderLine) {
	line.TicketID = t.ID
	t.Lines = append(t.Lines, line)
}

// AddCalculation appends a ticket-level calculation.
func (t *Ticket) AddCalculation(calc Calculation) {
	calc.TicketID = t.ID
	t.Calculations = append(t.Calculations, calc)
}

// AddPaidItems folds settled quantities into the ledger, merging records
// that share a group key. Quantities only ever accumulate.
func (t *Ticket) AddPaidItems(items ...PaidItem) {
	for _, item := range items {
		merged := false
		for i := range t.PaidItems {
			if t.PaidItems[i].Key() == item.Key() {
				t.PaidItems[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			item.TicketID = t.ID
			t.PaidItems = append(t.PaidItems, item)
		}
	}
}

// GrossTotal is the sum of all line totals before any calculation.
func (t *Ticket) GrossTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range t.Lines {
		total = total.Add(t.Lines[i].LineTotal())
	}
	return total
}

// NetTotal is the gross total after applying every calculation.
func (t *Ticket) NetTotal() decimal.Decimal {
	gross := t.GrossTotal()
	net := gross
	for i := range t.Calculations {
		net = net.Add(t.Calculations[i].EffectOn(gross))
	}
	return net
}

// NetRatio is the net-to-gross ratio used to prorate ticket-level
// calculations across payable groups. A ticket with no lines has ratio 1.
func (t *Ticket) NetRatio() decimal.Decimal {
	gross := t.GrossTotal()
	if gross.IsZero() {
		return decimal.NewFromInt(1)
	}
	return t.NetTotal().Div(gross)
}

// PaidQuantities sums the ledger per group key.
func (t *Ticket) PaidQuantities() map[string]int {
	paid := make(map[string]int, len(t.PaidItems))
	for i := range t.PaidItems {
		paid[t.PaidItems[i].Key()] += t.PaidItems[i].Quantity
	}
	return paid
}
