package dataset

import (
	"strconv"
	"strings"
)

// parseIntPtr parses a string as an integer, returning nil for empty or
// suppressed values so they load as SQL NULL.
func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == "N/A" {
		return nil
	}
	// HUD workbooks sometimes render integers as "1234.0".
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(v)
	return &n
}

// parseFloat64Or parses a string as a float64, returning def if parsing fails.
func parseFloat64Or(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// padZip left-pads a ZIP code to five digits. Spreadsheet round-trips strip
// leading zeros from New England ZIPs.
func padZip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 || s == "" {
		return s
	}
	return strings.Repeat("0", 5-len(s)) + s
}

// countyFIPS extracts the 5-digit county FIPS from HUD's 10-digit
// entity ID (state + county + subdivision).
func countyFIPS(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 9 {
		// Leading zero stripped by the spreadsheet.
		s = "0" + s
	}
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// normalizeCol lowercases and strips underscores and spaces so header
// variants across HUD fiscal years map to the same key.
// "FMR_0" -> "fmr0", "SAFMR 2BR" -> "safmr2br"
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// mapColumnsNormalized builds a normalized column name -> index map.
func mapColumnsNormalized(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getColN gets a column value by normalized name.
func getColN(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// firstNonEmpty returns the first non-empty value from the named columns.
// Used for columns renamed between fiscal years (e.g., "countyname" vs "county name").
func firstNonEmpty(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		v := trimQuotes(getColN(record, colIdx, name))
		if v != "" {
			return v
		}
	}
	return ""
}
