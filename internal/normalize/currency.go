package normalize

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

var errUnparseable = errors.New("unparseable value")

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// currencyAliases maps upper-cased symbols and names to ISO 4217 codes.
var currencyAliases = map[string]string{
	"C$":                "CAD",
	"CA$":               "CAD",
	"CDN$":              "CAD",
	"CANADIAN DOLLAR":   "CAD",
	"CANADIAN DOLLARS":  "CAD",
	"$":                 "USD",
	"US$":               "USD",
	"U.S. DOLLAR":       "USD",
	"US DOLLAR":         "USD",
	"US DOLLARS":        "USD",
	"DOLLAR":            "USD",
	"€":                 "EUR",
	"EURO":              "EUR",
	"EUROS":             "EUR",
	"£":                 "GBP",
	"POUND":             "GBP",
	"POUNDS":            "GBP",
	"POUND STERLING":    "GBP",
	"A$":                "AUD",
	"AU$":               "AUD",
	"AUSTRALIAN DOLLAR": "AUD",
	"¥":                 "JPY",
	"MX$":               "MXN",
	"MEXICAN PESO":      "MXN",
	"PESO":              "MXN",
	"SWISS FRANC":       "CHF",
	"FRANC":             "CHF",
}

// aliasesByLength is the alias list ordered longest first so that substring
// matching prefers "CANADIAN DOLLAR" over "DOLLAR" and "C$" over "$".
var aliasesByLength = func() []string {
	keys := make([]string, 0, len(currencyAliases))
	for k := range currencyAliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// NormalizeCurrency maps a currency code, symbol, or name to a three-letter
// uppercase code. The bool is false when nothing matches.
func NormalizeCurrency(input string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}
	if currencyCodePattern.MatchString(s) {
		return s, true
	}
	if code, ok := currencyAliases[s]; ok {
		return code, true
	}
	for _, alias := range aliasesByLength {
		if strings.Contains(s, alias) {
			return currencyAliases[alias], true
		}
	}
	return "", false
}
