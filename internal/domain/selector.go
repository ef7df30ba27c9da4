package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Selector is one payable group: the merge of all order lines sharing the
// same menu item and unit price. It is built and mutated only by
// OrderSelector; Quantity is fixed at rebuild time, PaidQuantity only grows,
// and SelectedQuantity oscillates within [0, Quantity-PaidQuantity].
type Selector struct {
	MenuItemID       string          `json:"menu_item_id"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	PaidQuantity     int             `json:"paid_quantity"`
	SelectedQuantity int             `json:"selected_quantity"`

	// netRatio prorates ticket-level calculations into this group's
	// reported amounts. Raw Price stays untouched so the group key is
	// stable across rebuilds.
	netRatio decimal.Decimal
}

func newSelector(line OrderLine) *Selector {
	return &Selector{
		MenuItemID:  line.MenuItemID,
		Description: lineDescription(line),
		Price:       line.Price,
		Quantity:    line.Quantity,
		netRatio:    decimal.NewFromInt(1),
	}
}

// lineDescription builds the group label. The portion qualifier is appended
// only when the line's menu item defines more than one portion; a single
// price group for a single-portion item keeps the bare item name.
func lineDescription(line OrderLine) string {
	if line.PortionCount > 1 && line.PortionName != "" {
		return line.Name + "." + line.PortionName
	}
	return line.Name
}

// Key returns the payable-group key.
func (s *Selector) Key() string {
	return GroupKey(s.MenuItemID, s.Price)
}

// merge accumulates another order line into this group. A qualified label
// sticks once any merged line carries multiple portions.
func (s *Selector) merge(line OrderLine) {
	s.Quantity += line.Quantity
	if line.PortionCount > 1 && line.PortionName != "" {
		s.Description = line.Name + "." + line.PortionName
	}
}

// unitAmount is the prorated unit price, unrounded.
func (s *Selector) unitAmount() decimal.Decimal {
	return s.Price.Mul(s.netRatio)
}

// TotalPrice is the group's full monetary value after proration, rounded to
// currency precision.
func (s *Selector) TotalPrice() decimal.Decimal {
	return s.unitAmount().Mul(decimal.NewFromInt(int64(s.Quantity))).Round(2)
}

// selectedAmount is the unrounded value of the current selection; rounding
// happens once, on the aggregate.
func (s *Selector) selectedAmount() decimal.Decimal {
	return s.unitAmount().Mul(decimal.NewFromInt(int64(s.SelectedQuantity)))
}

// remainingAmount is the unrounded value of the unpaid remainder,
// independent of the current selection.
func (s *Selector) remainingAmount() decimal.Decimal {
	return s.unitAmount().Mul(decimal.NewFromInt(int64(s.Quantity - s.PaidQuantity)))
}

// selectOne marks one more unit for payment, capped at the unpaid
// remainder. Excess calls are no-ops.
func (s *Selector) selectOne() {
	if s.PaidQuantity+s.SelectedQuantity < s.Quantity {
		s.SelectedQuantity++
	}
}

// commitSelected folds the current selection into the paid count and
// returns the folded quantity. Both persistence paths share this fold.
func (s *Selector) commitSelected() int {
	committed := s.SelectedQuantity
	s.PaidQuantity += committed
	s.SelectedQuantity = 0
	if s.PaidQuantity > s.Quantity {
		panic(fmt.Sprintf("selector %s: paid quantity %d exceeds quantity %d", s.Key(), s.PaidQuantity, s.Quantity))
	}
	return committed
}
