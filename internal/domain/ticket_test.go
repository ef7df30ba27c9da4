package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestLineTotal(t *testing.T) {
	line := OrderLine{Price: dec("5"), Quantity: 3}
	assertDecEq(t, "15", line.LineTotal())
}

func TestGrossTotal_SumsAllLines(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	ticket.AddLine(OrderLine{MenuItemID: "a", Price: dec("5"), Quantity: 2})
	ticket.AddLine(OrderLine{MenuItemID: "b", Price: dec("7"), Quantity: 1})

	assertDecEq(t, "17", ticket.GrossTotal())
}

func TestNetTotal_PercentageDiscount(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	ticket.AddLine(OrderLine{MenuItemID: "a", Price: dec("10"), Quantity: 2})
	ticket.AddCalculation(Calculation{Name: "Discount", Type: CalculationPercentage, Decrease: true, Amount: dec("10")})

	assertDecEq(t, "18", ticket.NetTotal())
	assertDecEq(t, "0.9", ticket.NetRatio())
}

func TestNetTotal_FixedDiscount(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	ticket.AddLine(OrderLine{MenuItemID: "a", Price: dec("10"), Quantity: 2})
	ticket.AddCalculation(Calculation{Name: "Voucher", Type: CalculationFixed, Decrease: true, Amount: dec("5")})

	assertDecEq(t, "15", ticket.NetTotal())
	assertDecEq(t, "0.75", ticket.NetRatio())
}

func TestNetTotal_SurchargeIncreases(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	ticket.AddLine(OrderLine{MenuItemID: "a", Price: dec("10"), Quantity: 1})
	ticket.AddCalculation(Calculation{Name: "Service", Type: CalculationPercentage, Decrease: false, Amount: dec("10")})

	assertDecEq(t, "11", ticket.NetTotal())
}

func TestNetRatio_EmptyTicketIsOne(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	assertDecEq(t, "1", ticket.NetRatio())
}

func TestGroupKey_DistinguishesPrice(t *testing.T) {
	assert.Equal(t, GroupKey("a", dec("5")), GroupKey("a", dec("5")))
	assert.NotEqual(t, GroupKey("a", dec("5")), GroupKey("a", dec("6")))
	assert.NotEqual(t, GroupKey("a", dec("5")), GroupKey("b", dec("5")))
}

func TestAddPaidItems_MergesByGroupKey(t *testing.T) {
	ticket := NewTicket("t-1", "0001", "USD")
	ticket.AddPaidItems(PaidItem{MenuItemID: "a", Price: dec("5"), Quantity: 1})
	ticket.AddPaidItems(PaidItem{MenuItemID: "a", Price: dec("5"), Quantity: 2})
	ticket.AddPaidItems(PaidItem{MenuItemID: "a", Price: dec("6"), Quantity: 1})

	assert.Len(t, ticket.PaidItems, 2)
	paid := ticket.PaidQuantities()
	assert.Equal(t, 3, paid[GroupKey("a", dec("5"))])
	assert.Equal(t, 1, paid[GroupKey("a", dec("6"))])
}
