package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const USD = "USD"

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders amount the way members see it in notes and notifications,
// e.g. "$1,234.50". Non-USD currencies are prefixed with their code.
func Format(amount decimal.Decimal, currency string) string {
	prefix := "$"
	if currency != "" && !strings.EqualFold(currency, USD) {
		prefix = strings.ToUpper(currency) + " "
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	return sign + prefix + printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

// FormatUSD is Format with the platform currency.
func FormatUSD(amount decimal.Decimal) string {
	return Format(amount, USD)
}
