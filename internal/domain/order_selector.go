package domain

import (
	"github.com/shopspring/decimal"
)

// OrderSelector drives split payment for one ticket-viewing session. It
// groups the ticket's order lines into payable groups, tracks which
// quantities the operator has marked for payment, and commits accepted
// selections back into the ticket's paid-item ledger.
//
// All durable state lives on the ticket itself; an OrderSelector can be
// discarded and rebuilt from the ticket at any time and will reproduce the
// same remaining balance. It is not safe for concurrent use; the caller
// serializes access per ticket.
type OrderSelector struct {
	ticket       *Ticket
	selectors    []*Selector
	index        map[string]*Selector
	exchangeRate decimal.Decimal
}

// NewOrderSelector creates an empty selector session with exchange rate 1.
func NewOrderSelector() *OrderSelector {
	return &OrderSelector{
		index:        make(map[string]*Selector),
		exchangeRate: decimal.NewFromInt(1),
	}
}

// SelectedTicket returns the ticket currently bound to the session.
func (o *OrderSelector) SelectedTicket() *Ticket {
	return o.ticket
}

// Selectors returns the payable groups in first-seen order of the ticket's
// order lines. The slice is owned by the OrderSelector; treat it as
// read-only.
func (o *OrderSelector) Selectors() []*Selector {
	return o.selectors
}

// UpdateTicket binds the ticket and rebuilds every payable group from
// scratch: lines are merged by group key in scan order, ticket-level
// calculations are prorated across groups via the net-to-gross ratio, and
// paid quantities are seeded from the ticket's ledger. Any transient
// selection from a previous rebuild is discarded. Rebuilding on an
// unchanged ticket reproduces identical groups and the same remaining
// total.
func (o *OrderSelector) UpdateTicket(ticket *Ticket) {
	o.ticket = ticket
	o.selectors = nil
	o.index = make(map[string]*Selector)

	if ticket == nil {
		return
	}

	for i := range ticket.Lines {
		line := ticket.Lines[i]
		key := GroupKey(line.MenuItemID, line.Price)
		if sel, ok := o.index[key]; ok {
			sel.merge(line)
			continue
		}
		sel := newSelector(line)
		o.selectors = append(o.selectors, sel)
		o.index[key] = sel
	}

	ratio := ticket.NetRatio()
	paid := ticket.PaidQuantities()
	for _, sel := range o.selectors {
		sel.netRatio = ratio
		sel.PaidQuantity = paid[sel.Key()]
		sel.SelectedQuantity = 0
	}
}

// Select marks one more unit of the (menuItemID, price) group for payment.
// An unmatched key or a group with no unpaid remainder left is silently
// ignored; stale clicks from the UI are races, not faults.
func (o *OrderSelector) Select(menuItemID string, price decimal.Decimal) {
	sel, ok := o.index[GroupKey(menuItemID, price)]
	if !ok {
		return
	}
	sel.selectOne()
}

// ClearSelection resets every group's selected quantity without touching
// paid quantities.
func (o *OrderSelector) ClearSelection() {
	for _, sel := range o.selectors {
		sel.SelectedQuantity = 0
	}
}

// UpdateExchangeRate sets the rate dividing reported totals into the
// settlement currency. Non-positive rates are ignored. Totals are always
// recomputed from raw amounts, so successive rate changes never compound.
func (o *OrderSelector) UpdateExchangeRate(rate decimal.Decimal) {
	if rate.IsPositive() {
		o.exchangeRate = rate
	}
}

// ExchangeRate returns the current settlement exchange rate.
func (o *OrderSelector) ExchangeRate() decimal.Decimal {
	return o.exchangeRate
}

// SelectedTotal is the monetary value of the current selection in the
// settlement currency. Division and rounding happen once, on the aggregate,
// to avoid accumulating per-group rounding error.
func (o *OrderSelector) SelectedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sel := range o.selectors {
		total = total.Add(sel.selectedAmount())
	}
	return total.Div(o.exchangeRate).Round(2)
}

// RemainingTotal is the ticket's outstanding balance in the settlement
// currency, independent of the transient selection.
func (o *OrderSelector) RemainingTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sel := range o.selectors {
		total = total.Add(sel.remainingAmount())
	}
	return total.Div(o.exchangeRate).Round(2)
}

// PersistSelectedItems folds the current selection into each group's paid
// count without writing the ticket's ledger: a provisional, session-local
// commit that is lost if the ticket is rebuilt before PersistTicket.
func (o *OrderSelector) PersistSelectedItems() {
	for _, sel := range o.selectors {
		sel.commitSelected()
	}
}

// PersistTicket durably commits the current selection: every selected
// quantity is appended to the ticket's paid-item ledger under its group key
// and folded into the group's paid count. A fresh OrderSelector rebuilt
// from the same ticket afterwards computes the same remaining total.
func (o *OrderSelector) PersistTicket() {
	for _, sel := range o.selectors {
		if sel.SelectedQuantity == 0 {
			continue
		}
		quantity := sel.commitSelected()
		o.ticket.AddPaidItems(PaidItem{
			MenuItemID: sel.MenuItemID,
			Price:      sel.Price,
			Quantity:   quantity,
		})
	}
}
