package markup

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Fixed2 renders v with exactly two decimals and a decimal point, e.g. "1.59".
func Fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Fixed3 renders v with exactly three decimals.
func Fixed3(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// BR renders v the way a Brazilian reader expects it: "1.234,50".
func BR(v float64) string {
	return brPrinter.Sprintf("%.2f", Round2(v))
}

// BRPercent renders a percentage with up to two decimals and a decimal comma,
// dropping trailing zeros: 12 -> "12%", 5.5 -> "5,5%".
func BRPercent(v float64) string {
	return strings.Replace(decimal.NewFromFloat(v).Round(2).String(), ".", ",", 1) + "%"
}
