package internal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// SupportedCurrencies is the fixed set of codes a record may use, in menu order.
var SupportedCurrencies = []string{
	"USD", "EUR", "CNY", "CAD", "HKD", "JPY", "GBP", "AUD",
	"SGD", "KRW", "TWD", "RUB", "CHF", "SEK", "NOK", "DKK",
	"THB", "MYR", "INR", "BRL",
}

// MajorCurrencies are summarised in rate update notifications.
var MajorCurrencies = []string{"USD", "EUR", "HKD", "JPY", "GBP"}

// symbolOverrides provides custom symbols where x/text defaults aren't ideal
var symbolOverrides = map[string]string{
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"CNY": "¥",
}

// homeLocale picks the formatting locale for each supported currency.
var homeLocale = map[string]language.Tag{
	"USD": language.AmericanEnglish,
	"EUR": language.German,
	"CNY": language.Chinese,
	"CAD": language.CanadianFrench,
	"HKD": language.MustParse("zh-HK"),
	"JPY": language.Japanese,
	"GBP": language.BritishEnglish,
	"AUD": language.MustParse("en-AU"),
	"SGD": language.MustParse("en-SG"),
	"KRW": language.Korean,
	"TWD": language.MustParse("zh-TW"),
	"RUB": language.Russian,
	"CHF": language.German,
	"SEK": language.Swedish,
	"NOK": language.Norwegian,
	"DKK": language.Danish,
	"THB": language.Thai,
	"MYR": language.MustParse("ms-MY"),
	"INR": language.MustParse("en-IN"),
	"BRL": language.BrazilianPortuguese,
}

// IsSupportedCurrency reports whether code is in SupportedCurrencies.
func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// ParseCurrency upper-cases code and checks it against the supported set.
func ParseCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !IsSupportedCurrency(code) {
		return "", fmt.Errorf("%w: unsupported currency %q", ErrValidation, code)
	}
	return code, nil
}

// Currency formats amounts of one currency.
type Currency struct {
	Code    string
	unit    currency.Unit
	printer *message.Printer
}

// GetCurrency returns the Currency for a given code. Codes unknown to x/text
// still format, using the code as the symbol.
func GetCurrency(code string) Currency {
	code = strings.ToUpper(code)

	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.XXX
	}

	tag, ok := homeLocale[code]
	if !ok {
		tag = language.English
	}

	return Currency{
		Code:    code,
		unit:    unit,
		printer: message.NewPrinter(tag),
	}
}

func (c Currency) symbol() string {
	if sym, ok := symbolOverrides[c.Code]; ok {
		return sym
	}
	if c.unit == currency.XXX {
		return c.Code
	}
	return c.printer.Sprint(currency.NarrowSymbol(c.unit))
}

// isPrefix returns true if the symbol goes before the amount.
// x/text does not expose CLDR symbol placement, so the list is kept by hand.
func (c Currency) isPrefix() bool {
	switch c.Code {
	case "USD", "GBP", "JPY", "CAD", "AUD", "HKD", "SGD", "CNY", "TWD", "KRW", "INR":
		return true
	default:
		return false
	}
}

// Format renders amount with up to two decimals and the currency symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	formatted := c.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(2)))
	sym := c.symbol()
	if c.isPrefix() {
		return sym + formatted
	}
	return formatted + " " + sym
}
