// Package rates resolves exchange rates between the ticket currency and the
// currency a payment is settled in.
package rates

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider resolves the exchange rate from one currency to another. A rate R
// means one unit of the target currency costs R units of the base currency;
// totals reported in the base currency are divided by R.
type Provider interface {
	Rate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// Static always returns a fixed rate. The zero value resolves every pair to
// 1, which is the behavior when no remote provider is configured.
type Static struct {
	Fixed decimal.Decimal
}

// Rate returns the fixed rate, or 1 when none is set.
func (s Static) Rate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	if s.Fixed.IsPositive() {
		return s.Fixed, nil
	}
	return decimal.NewFromInt(1), nil
}
