package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDotGroups   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reCommaGroups = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseNumber coerces locale-formatted numeric cells ("1 000", "1.000",
// "1,5") to a float. Non-numeric input yields 0, matching the import rule
// that absent numeric fields default to zero.
func ParseNumber(input string) float64 {
	token := strings.TrimSpace(strings.ReplaceAll(input, " ", " "))
	if token == "" {
		return 0
	}
	token = strings.ReplaceAll(token, " ", "")

	switch {
	case reDotGroups.MatchString(token):
		token = strings.ReplaceAll(token, ".", "")
	case reCommaGroups.MatchString(token):
		token = strings.ReplaceAll(token, ",", "")
	case strings.Contains(token, ",") && !strings.Contains(token, "."):
		token = strings.ReplaceAll(token, ",", ".")
	}

	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return parsed
}
