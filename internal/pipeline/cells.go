package pipeline

import (
	"strings"

	"fleettrack/internal/util"
)

// HeaderMap resolves column lookups for one classified sheet. Keys are
// normalized once; every lookup after that is containment over the
// precomputed forms, so "Biển Số Xe" answers for the alias "biển số".
type HeaderMap struct {
	raw  []string
	keys []string
}

func NewHeaderMap(headers []string) *HeaderMap {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = util.NormalizeKey(h)
	}
	return &HeaderMap{raw: headers, keys: keys}
}

func (m *HeaderMap) Headers() []string { return m.raw }

// Cell returns the value under the first header containing the first alias,
// trying aliases in order. Alias order encodes priority: specific names go
// before generic ones. A matching header with an empty cell falls through to
// the next alias. Reports ok=false when nothing matched.
func (m *HeaderMap) Cell(row []string, aliases ...string) (string, bool) {
	for _, alias := range aliases {
		key := util.NormalizeKey(alias)
		if key == "" {
			continue
		}
		for i, headerKey := range m.keys {
			if !strings.Contains(headerKey, key) {
				continue
			}
			if i < len(row) {
				if value := strings.TrimSpace(row[i]); value != "" {
					return value, true
				}
			}
			// First header occurrence decides for this alias.
			break
		}
	}
	return "", false
}

// CellOr is Cell with a caller-supplied fallback.
func (m *HeaderMap) CellOr(row []string, fallback string, aliases ...string) string {
	if value, ok := m.Cell(row, aliases...); ok {
		return value
	}
	return fallback
}

// Number reads a cell through the locale-agnostic number coercer; absent or
// non-numeric cells yield 0.
func (m *HeaderMap) Number(row []string, aliases ...string) float64 {
	value, ok := m.Cell(row, aliases...)
	if !ok {
		return 0
	}
	return util.ParseNumber(value)
}
