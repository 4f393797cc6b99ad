package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics strips Vietnamese diacritics ("Biển Số" -> "Bien So").
// U+0111/U+0110 do not decompose, so đ/Đ are mapped by hand.
func FoldDiacritics(input string) string {
	out, _, err := transform.String(foldMarks, input)
	if err != nil {
		out = input
	}
	out = strings.ReplaceAll(out, "đ", "d")
	out = strings.ReplaceAll(out, "Đ", "D")
	return out
}

// NormalizeKey reduces a header name or alias to a diacritics-insensitive
// lowercase token: "Biển Số Xe" and "bien_so-xe" both become "biensoxe".
// Header matching everywhere is containment over these tokens.
func NormalizeKey(input string) string {
	folded := strings.ToLower(FoldDiacritics(input))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanPlate uppercases a plate/asset code and drops everything outside
// A-Z, 0-9 and dash.
func CleanPlate(input string) string {
	upper := strings.ToUpper(strings.TrimSpace(input))
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlateKey is the plate normalization used by combined master sheets: fold,
// strip to alphanumerics, uppercase. "MQL-03 b" -> "MQL03B".
func PlateKey(input string) string {
	return strings.ToUpper(NormalizeKey(input))
}

func NormalizeSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
