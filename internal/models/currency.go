package models

import (
	"github.com/Rhymond/go-money"

	"github.com/mdjukic/settleup/pkg/errors"
)

// Currency is a closed enum of the currencies the ledger accepts.
type Currency string

const (
	RSD Currency = "RSD"
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	CHF Currency = "CHF"
)

// BaseCurrency is the currency every amount is normalized into for
// aggregation and settlement.
const BaseCurrency = RSD

var knownCurrencies = map[Currency]bool{
	RSD: true, EUR: true, USD: true, GBP: true, CHF: true,
}

// ParseCurrency validates a currency code at the boundary.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if !knownCurrencies[c] {
		return "", errors.New(errors.KindValidation, "unsupported currency %q", code)
	}
	return c, nil
}

// MinorDigits returns the number of minor-unit digits for the currency
// (2 for RSD/EUR/USD, per ISO 4217).
func (c Currency) MinorDigits() int {
	cur := money.GetCurrency(string(c))
	if cur == nil {
		return 2
	}
	return cur.Fraction
}

func (c Currency) String() string { return string(c) }
