package util

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// excelEpochOffset is the day count between the spreadsheet epoch
// (1899-12-30) and the Unix epoch.
const excelEpochOffset = 25569

// ParseFlexibleDate coerces the date encodings seen in exported workbooks:
// spreadsheet serial numbers, "DD/MM/YYYY", "DD-MM-YY", "DD.MM.YYYY" and a
// couple of ISO-ish fallbacks. It never panics; anything unparseable reports
// ok=false and callers skip the value.
func ParseFlexibleDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		// Serials under 1000 would land in 1902; real exports never do that.
		if serial < 1000 {
			return time.Time{}, false
		}
		ms := math.Round((serial - excelEpochOffset) * 86400 * 1000)
		return time.UnixMilli(int64(ms)).UTC(), true
	}

	if t, ok := parseDayMonthYear(value); ok {
		return t, true
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

func parseDayMonthYear(value string) (time.Time, bool) {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	// Two-digit year convention, applied only when the shifted year is sane.
	if year < 100 && year+2000 > 1900 {
		year += 2000
	}
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; that is a bad date, not a date.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// DateString renders a parsed date in the storage format.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}
