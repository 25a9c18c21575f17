package s0_data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// cellParser turns CSV cells into optional floats
type cellParser struct {
	missing map[string]bool
}

func newCellParser(tokens []string) cellParser {
	m := make(map[string]bool, len(tokens)+1)
	m[""] = true
	for _, t := range tokens {
		m[strings.TrimSpace(t)] = true
	}
	return cellParser{missing: m}
}

// isMissing reports empty cells and configured placeholders (nan, -, n/a)
func (p cellParser) isMissing(cell string) bool {
	return p.missing[strings.TrimSpace(cell)]
}

// text returns the trimmed cell, or "" for placeholders
func (p cellParser) text(cell string) string {
	if p.isMissing(cell) {
		return ""
	}
	return strings.TrimSpace(cell)
}

// float parses a numeric cell.
// ok=false with nil error means missing; a non-nil error means the cell is garbage.
func (p cellParser) float(cell string) (v float64, ok bool, err error) {
	if p.isMissing(cell) {
		return 0, false, nil
	}

	s := normalizeDecimal(strings.TrimSpace(cell))
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// normalizeDecimal accepts "0,22", "1.234,5", "1,234.5" and a trailing "%"
func normalizeDecimal(s string) string {
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// 1.234,5 → 1234.5
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		// 1,234.5 → 1234.5
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// detectDelimiter picks ';' for European exports whose header has no ','
func detectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}
