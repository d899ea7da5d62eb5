package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateFeed resolves a currency's rate against the reference unit (units of
// the currency per one reference unit). The second return reports whether
// the feed knows the currency at all.
type RateFeed interface {
	ResolveRate(ctx context.Context, currencyCode string) (decimal.Decimal, bool, error)
}

// StaticRateFeed serves rates from a fixed table. It stands in for the
// upstream market-data feed in local runs and tests.
type StaticRateFeed struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateFeed creates a feed seeded with common console currencies.
func NewStaticRateFeed() *StaticRateFeed {
	return &StaticRateFeed{
		rates: map[string]decimal.Decimal{
			"USD":  decimal.NewFromInt(1),
			"USDT": decimal.NewFromInt(1),
			"EUR":  decimal.NewFromFloat(0.92),
			"GBP":  decimal.NewFromFloat(0.79),
			"PKR":  decimal.NewFromInt(285),
			"AED":  decimal.NewFromFloat(3.67),
		},
	}
}

// WithRate overrides or adds a rate entry.
func (f *StaticRateFeed) WithRate(code string, rate decimal.Decimal) *StaticRateFeed {
	f.rates[code] = rate
	return f
}

// ResolveRate returns the stored rate for code.
func (f *StaticRateFeed) ResolveRate(_ context.Context, currencyCode string) (decimal.Decimal, bool, error) {
	rate, ok := f.rates[currencyCode]
	if !ok {
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}
