// Package money parses catalog prices and renders amounts for display.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the single currency the shop prices in.
var Currency = currency.USD

var printer = message.NewPrinter(language.AmericanEnglish)

// Parse reads a non-negative decimal price such as "3.99".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("price %q is negative", s)
	}
	return d, nil
}

// Format renders d as "$1,234.56", rounding half away from zero to cents.
func Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	cents := d.Round(2)
	whole := cents.Truncate(0).IntPart()
	frac := cents.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, printer.Sprintf("%d", whole), frac)
}
