// Package exchange provides the currency conversion capability used when
// quoting gateway orders in the gateway's settlement currency.
package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source resolves a conversion rate between two ISO currency codes.
type Source interface {
	Rate(from, to string) (decimal.Decimal, error)
}

// FixedTable is a Source backed by a static rate table. Pairs are keyed
// "FROM/TO"; the identity rate is implicit.
type FixedTable struct {
	rates map[string]decimal.Decimal
}

func NewFixedTable(rates map[string]decimal.Decimal) *FixedTable {
	table := make(map[string]decimal.Decimal, len(rates))
	for pair, rate := range rates {
		table[strings.ToUpper(pair)] = rate
	}
	return &FixedTable{rates: table}
}

// DefaultTable carries the deposit corridor rates the service ships with.
func DefaultTable() *FixedTable {
	return NewFixedTable(map[string]decimal.Decimal{
		"USD/INR": decimal.NewFromFloat(83.50),
		"EUR/INR": decimal.NewFromFloat(90.20),
		"GBP/INR": decimal.NewFromFloat(105.75),
		"INR/USD": decimal.NewFromFloat(0.012),
	})
}

func (t *FixedTable) Rate(from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := t.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s/%s", from, to)
	}
	return rate, nil
}

// Convert applies the from->to rate to a major-unit amount.
func Convert(src Source, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := src.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// ToMinorUnits converts a major-unit amount to the gateway's integer minor
// units, rounding to the nearest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
