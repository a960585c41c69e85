package ingestion

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CellKind tags the content of a worksheet cell
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single worksheet value. Both coercions are total.
type Cell struct {
	Kind   CellKind
	Raw    string
	Number float64
}

// NewCell classifies a raw worksheet string
func NewCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cell{Kind: CellEmpty}
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && finite(v) {
		return Cell{Kind: CellNumber, Raw: trimmed, Number: v}
	}
	return Cell{Kind: CellText, Raw: trimmed}
}

// IsBlank reports whether the cell carries no visible content
func (c Cell) IsBlank() bool {
	return c.Kind == CellEmpty
}

// Text returns the normalised textual form of the cell
func (c Cell) Text() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return NormalizeText(c.Raw)
	default:
		return ""
	}
}

// Float returns the numeric value of the cell, or 0 when it has none.
// Text is parsed after dropping thousands separators and currency marks;
// accounting parentheses make the value negative.
func (c Cell) Float() float64 {
	switch c.Kind {
	case CellNumber:
		return c.Number
	case CellText:
		return parseAmount(c.Raw)
	default:
		return 0
	}
}

// NormalizeText applies NFKC folding, lowercases and collapses whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(s))), " ")
}

func parseAmount(raw string) float64 {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = !negative
		case r == ',', unicode.IsSpace(r), unicode.Is(unicode.Sc, r):
		case unicode.IsLetter(r) && b.Len() == 0:
			// currency prefixes such as "NGN" or "N"
		default:
			return 0
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || !finite(v) {
		return 0
	}
	if negative {
		return -v
	}
	return v
}

// finite rejects NaN and the infinities, which ParseFloat accepts by name
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Row is one worksheet row as cells
type Row []Cell

// NewRow classifies every raw value of a row
func NewRow(values []string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = NewCell(v)
	}
	return row
}

// At returns the cell at index i, or an empty cell when out of range.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{Kind: CellEmpty}
	}
	return r[i]
}

// FirstNonBlank returns the index of the first non-empty cell at or after from, or -1.
func (r Row) FirstNonBlank(from int) int {
	for i := from; i < len(r); i++ {
		if !r[i].IsBlank() {
			return i
		}
	}
	return -1
}
