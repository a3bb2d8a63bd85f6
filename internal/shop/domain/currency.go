package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "XOF"

var conversionRates = map[string]map[string]decimal.Decimal{
	"EUR": {
		"XOF": decimal.RequireFromString("655.957"),
		"XAF": decimal.RequireFromString("655.957"),
		"GNF": decimal.NewFromInt(9000),
		"USD": decimal.RequireFromString("1.1"),
	},
	"USD": {
		"XOF": decimal.RequireFromString("596.32"),
		"XAF": decimal.RequireFromString("596.32"),
		"GNF": decimal.NewFromInt(8200),
		"EUR": decimal.RequireFromString("0.91"),
	},
}

// ConvertCurrency converts amount with the fixed rate table, rounded to two
// decimals. Unknown pairs return the amount unchanged.
func ConvertCurrency(amount decimal.Decimal, from, to string) decimal.Decimal {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount
	}
	rate, ok := conversionRates[from][to]
	if !ok {
		return amount
	}
	return amount.Mul(rate).Round(2)
}

type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

var supportedCountries = []Country{
	{Code: "CI", Name: "Côte d'Ivoire"},
	{Code: "SN", Name: "Sénégal"},
	{Code: "BF", Name: "Burkina Faso"},
	{Code: "ML", Name: "Mali"},
	{Code: "NE", Name: "Niger"},
	{Code: "TG", Name: "Togo"},
	{Code: "BJ", Name: "Bénin"},
	{Code: "GN", Name: "Guinée"},
	{Code: "CM", Name: "Cameroun"},
	{Code: "CD", Name: "RD Congo"},
}

var countryCurrency = map[string]string{
	"CI": "XOF",
	"SN": "XOF",
	"BF": "XOF",
	"ML": "XOF",
	"NE": "XOF",
	"TG": "XOF",
	"BJ": "XOF",
	"GN": "GNF",
	"CM": "XAF",
	"CD": "CDF",
}

func CurrencyForCountry(code string) string {
	if c, ok := countryCurrency[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c
	}
	return DefaultCurrency
}

func SupportedCountries() []Country {
	out := make([]Country, len(supportedCountries))
	for i, c := range supportedCountries {
		c.Currency = CurrencyForCountry(c.Code)
		out[i] = c
	}
	return out
}
