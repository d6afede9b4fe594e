package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	decimalRegex  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	currencyRegex = regexp.MustCompile(`[^\d.,\s\p{Zs}]`)
	platformRegex = regexp.MustCompile(`^sprite-30-([a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*)$`)
)

// ParsePrice parses a displayed price such as "12,34€" or "5€"
func ParsePrice(text string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "€", "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, ",", "."))

	if !decimalRegex.MatchString(cleaned) {
		return 0, fmt.Errorf("malformed price %q", text)
	}
	return strconv.ParseFloat(cleaned, 64)
}

// ExtractCurrency returns the first character of a price text that is
// neither a digit, a decimal separator nor a space
func ExtractCurrency(text string) (string, bool) {
	currency := currencyRegex.FindString(strings.TrimSpace(text))
	return currency, currency != ""
}

// PlatformFromClass derives a readable platform name from a class attribute
// holding a "sprite-30-<slug>" token: "sprite-30-play-station-5" gives
// "Play station 5"
func PlatformFromClass(class string) (string, error) {
	for _, token := range strings.Fields(class) {
		if m := platformRegex.FindStringSubmatch(token); m != nil {
			return capitalize(strings.ReplaceAll(m[1], "-", " ")), nil
		}
	}
	return "", fmt.Errorf("no platform sprite token in class %q", class)
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// FormatDecimal renders a price with at least one fractional digit
func FormatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
