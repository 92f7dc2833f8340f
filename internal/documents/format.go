package documents

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatCurrency renders an amount in rand, e.g. "R 1,234.50".
func FormatCurrency(amount decimal.Decimal) string {
	return "R " + amountPrinter.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}
