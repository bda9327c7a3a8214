package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineAmounts is the computed money of one quotation line.
type LineAmounts struct {
	Subtotal decimal.Decimal
	LineTax  decimal.Decimal
}

// Totals is the computed money of a whole quotation.
type Totals struct {
	Total    decimal.Decimal
	TotalTax decimal.Decimal
}

// RoundMoney rounds to whole currency units, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// ComputeLine prices one line: subtotal = round(unitPrice × quantity) and
// lineTax = round(subtotal × taxPercentage / 100).
func ComputeLine(unitPrice decimal.Decimal, quantity int, taxPercentage decimal.Decimal) (LineAmounts, error) {
	if quantity <= 0 || quantity > math.MaxInt32 {
		return LineAmounts{}, validationf("quantity", "must be between 1 and %d, got %d", math.MaxInt32, quantity)
	}
	if err := checkAmount("unit_price", unitPrice); err != nil {
		return LineAmounts{}, err
	}
	if err := checkPercentage("tax_percentage", taxPercentage); err != nil {
		return LineAmounts{}, err
	}

	subtotal := RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	if subtotal.GreaterThan(MaxAmount) {
		return LineAmounts{}, validationf("quantity", "line subtotal %s exceeds %s", subtotal, MaxAmount)
	}
	lineTax := RoundMoney(subtotal.Mul(taxPercentage).Div(hundred))
	return LineAmounts{Subtotal: subtotal, LineTax: lineTax}, nil
}

// Aggregate sums already-rounded line amounts. The sums are not rounded again.
func Aggregate(lines []LineAmounts) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, validationf("lines", "a quotation must have at least one line")
	}
	var t Totals
	for _, l := range lines {
		t.Total = t.Total.Add(l.Subtotal)
		t.TotalTax = t.TotalTax.Add(l.LineTax)
	}
	if t.Total.GreaterThan(MaxAmount) {
		return Totals{}, validationf("lines", "quotation total %s exceeds %s", t.Total, MaxAmount)
	}
	return t, nil
}
