// Package currency converts transaction amounts into the base currency
// using point-in-time FX rates. Rates come from an external collaborator
// behind the RateProvider interface; this package only does the arithmetic
// and the per-day caching.
package currency

import (
	"github.com/shopspring/decimal"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
)

// RateProvider supplies the FX rate from a currency into the base currency
// on a given date. ok is false when no rate is available; the normalizer
// never fails on a missing rate, it falls back.
type RateProvider interface {
	Rate(c models.Currency, on date.Date) (rate decimal.Decimal, ok bool)
}

// Normalizer converts amounts to the base currency. It is pure and
// deterministic given a rate snapshot.
type Normalizer struct {
	base     models.Currency
	provider RateProvider
}

// NewNormalizer creates a normalizer converting into base.
func NewNormalizer(base models.Currency, provider RateProvider) *Normalizer {
	return &Normalizer{base: base, provider: provider}
}

// Base returns the base currency.
func (n *Normalizer) Base() models.Currency { return n.base }

// Normalize converts amount (minor units of from) into base-currency minor
// units using the rate for the given date. When no rate is available the
// original amount is returned unchanged with rateMissing=true; callers
// decide how to surface that.
func (n *Normalizer) Normalize(amount int64, from models.Currency, on date.Date) (amountInBase int64, rateMissing bool) {
	if from == n.base {
		return amount, false
	}
	rate, ok := n.provider.Rate(from, on)
	if !ok {
		return amount, true
	}
	major := decimal.NewFromInt(amount).Shift(int32(-from.MinorDigits()))
	baseMinor := major.Mul(rate).Shift(int32(n.base.MinorDigits()))
	return baseMinor.Round(0).IntPart(), false
}
