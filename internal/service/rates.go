package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/gateway"
)

// Which of the two order amounts the user last edited.
const (
	EditedAmountBuy  = "amount_buy"
	EditedAmountSell = "amount_sell"
)

// DeriveAmountsInput carries the order-entry fields relevant to buy/sell
// derivation.
type DeriveAmountsInput struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	AmountBuy    decimal.Decimal `json:"amount_buy"`
	AmountSell   decimal.Decimal `json:"amount_sell"`
	Edited       string          `json:"edited"` // amount_buy | amount_sell
}

// DeriveAmountsResult reports the counterpart amount, when one was derived.
type DeriveAmountsResult struct {
	AmountBuy  decimal.Decimal `json:"amount_buy"`
	AmountSell decimal.Decimal `json:"amount_sell"`
	Derived    bool            `json:"derived"`
}

// AmountDeriver implements the order-entry convenience that fills in the
// counterpart of an edited buy/sell amount. The currency whose resolved
// rate-to-reference is ≤ 1 behaves as the base; amounts on the base side
// multiply by the order rate, amounts on the counter side divide. When both
// currencies look base-like no derivation happens and the user fills both
// fields. This is a convention, not a financial invariant.
type AmountDeriver struct {
	feed gateway.RateFeed
}

// NewAmountDeriver creates a deriver backed by the given rate feed.
func NewAmountDeriver(feed gateway.RateFeed) *AmountDeriver {
	return &AmountDeriver{feed: feed}
}

// Derive fills in the non-edited amount when the base/counter sides can be
// told apart. The input amounts pass through unchanged otherwise.
func (d *AmountDeriver) Derive(ctx context.Context, in DeriveAmountsInput) DeriveAmountsResult {
	out := DeriveAmountsResult{AmountBuy: in.AmountBuy, AmountSell: in.AmountSell}
	if in.Rate.Sign() <= 0 {
		return out
	}

	fromBase := d.baseLike(ctx, in.FromCurrency)
	toBase := d.baseLike(ctx, in.ToCurrency)
	if fromBase && toBase {
		return out
	}

	switch in.Edited {
	case EditedAmountBuy:
		if fromBase {
			out.AmountSell = in.AmountBuy.Mul(in.Rate)
		} else {
			out.AmountSell = in.AmountBuy.Div(in.Rate)
		}
		out.Derived = true
	case EditedAmountSell:
		if toBase {
			out.AmountBuy = in.AmountSell.Mul(in.Rate)
		} else {
			out.AmountBuy = in.AmountSell.Div(in.Rate)
		}
		out.Derived = true
	}
	return out
}

// baseLike reports whether the currency behaves as the reference side of the
// pair. Unresolvable currencies count as base only when they are the
// reference code itself.
func (d *AmountDeriver) baseLike(ctx context.Context, code string) bool {
	rate, ok, err := d.feed.ResolveRate(ctx, code)
	if err != nil {
		zap.L().Warn("rate feed lookup failed", zap.String("currency", code), zap.Error(err))
		ok = false
	}
	if !ok {
		return code == domain.ReferenceCurrency
	}
	return rate.LessThanOrEqual(decimal.NewFromInt(1))
}
