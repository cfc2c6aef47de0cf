package extraction

import (
	"strconv"
	"strings"
)

// ParseAmount converts a money string into a numeric value. Handles
// thousands separators and K/M magnitude suffixes, so "$2.5M" becomes
// 2500000 and "$750K" becomes 750000.
func ParseAmount(amountStr string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(amountStr)
	if cleaned == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "K"), strings.HasSuffix(cleaned, "k"):
		multiplier = 1_000
		cleaned = cleaned[:len(cleaned)-1]
	case strings.HasSuffix(cleaned, "M"), strings.HasSuffix(cleaned, "m"):
		multiplier = 1_000_000
		cleaned = cleaned[:len(cleaned)-1]
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}

	return value * multiplier
}
