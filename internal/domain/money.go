package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency. Amounts are
// shopspring decimals end to end; the store persists them as numerics.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Add sums two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Convert converts the value into a target currency at the given rate.
// The rate is expressed as (target / source).
func (m Money) Convert(targetCurrency string, rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate), Currency: targetCurrency}
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// CurrencyTotals accumulates amounts bucketed per currency. Buckets are never
// mixed; conversion between currencies happens explicitly via a rate.
type CurrencyTotals map[string]decimal.Decimal

// Add accumulates amount into the bucket for currency.
func (t CurrencyTotals) Add(currency string, amount decimal.Decimal) {
	t[currency] = t[currency].Add(amount)
}

// Get returns the bucket for currency, zero when absent.
func (t CurrencyTotals) Get(currency string) decimal.Decimal {
	return t[currency]
}

// ConvertTo collapses all buckets into a single total in the target currency.
// Same-currency buckets use an implicit rate of 1. A missing rate contributes
// nothing (rate 0): tolerated missing data, not an error.
func (t CurrencyTotals) ConvertTo(target string, rate func(from string) (decimal.Decimal, bool)) decimal.Decimal {
	total := decimal.Zero
	for currency, sum := range t {
		if currency == target {
			total = total.Add(sum)
			continue
		}
		r, ok := rate(currency)
		if !ok {
			continue
		}
		total = total.Add(NewMoney(sum, currency).Convert(target, r).Amount)
	}
	return total
}
