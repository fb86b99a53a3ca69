package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const centsPerDollar = 100

var freeRe = regexp.MustCompile(`(?i)\bfree\b`)

// Price parses a scraped price into integer cents. "Free" and "$0" both
// parse to 0; a price of exactly 0 is a valid value, not an absence.
func Price(raw string) (cents int, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}

	if freeRe.MatchString(trimmed) {
		return 0, true
	}

	// Strip currency symbols and thousands separators: "$1,234.50" -> "1234.50".
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(trimmed)
	cleaned = strings.TrimSuffix(strings.ToLower(cleaned), "usd")

	dollars, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || dollars < 0 || math.IsInf(dollars, 0) || math.IsNaN(dollars) {
		return 0, false
	}

	return int(math.Round(dollars * centsPerDollar)), true
}
