package ingestion

import (
	"errors"
	"strings"
	"unicode"

	"github.com/rpattn/faactracker/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNoHeader reports a worksheet without a recognisable header row.
var ErrNoHeader = errors.New("header row not recognised")

const (
	defaultHeaderScanRows = 15
	previewLength         = 40
)

var (
	headerTokens = []string{"state", "s/n"}
	skipKeywords = []string{"total", "note", "source", "grand", "summary"}
)

// Columns holds the worksheet index of each figure, or -1 when unmapped.
type Columns struct {
	Statutory  int `json:"statutory"`
	VAT        int `json:"vat"`
	Deductions int `json:"deductions"`
	Net        int `json:"net"`
}

// defaultColumns is the layout assumed for roles the header does not name.
var defaultColumns = Columns{Statutory: 1, VAT: 2, Deductions: 3, Net: 4}

// Figures is one resolved region row
type Figures struct {
	Region     domain.Region
	Label      string
	RowNumber  int
	Statutory  decimal.Decimal
	VAT        decimal.Decimal
	Deductions decimal.Decimal
	Net        decimal.Decimal
}

// Extraction is the result of scanning a worksheet
type Extraction struct {
	HeaderFound bool
	HeaderRow   int // 1-based
	Columns     Columns
	Rows        []Figures
	Unresolved  []string
	Skipped     int
	Empty       int
	Duplicates  int
}

// Extractor turns worksheet rows into per-region figures
type Extractor struct {
	headerScanRows int
}

// NewExtractor creates an extractor scanning headerScanRows leading rows for the header.
func NewExtractor(headerScanRows int) *Extractor {
	if headerScanRows <= 0 {
		headerScanRows = defaultHeaderScanRows
	}
	return &Extractor{headerScanRows: headerScanRows}
}

// Extract locates the header and parses every following row against the registry.
func (e *Extractor) Extract(rows []Row, registry *Registry) Extraction {
	result := Extraction{Columns: Columns{-1, -1, -1, -1}}

	header := e.findHeader(rows)
	if header < 0 {
		return result
	}
	result.HeaderFound = true
	result.HeaderRow = header + 1
	result.Columns = mapColumns(rows[header])
	cols := result.Columns.withDefaults()

	seen := make(map[uuid.UUID]struct{})
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		lead := row.FirstNonBlank(0)
		if lead < 0 {
			continue
		}
		if row[lead].Kind == CellNumber {
			lead = row.FirstNonBlank(lead + 1)
			if lead < 0 {
				continue
			}
		}

		label := row[lead]
		text := label.Text()
		if containsAny(text, skipKeywords) {
			result.Skipped++
			continue
		}

		region, ok := registry.Resolve(text)
		if !ok {
			result.Unresolved = append(result.Unresolved, preview(label.Raw))
			continue
		}

		fig := Figures{
			Region:     region,
			Label:      label.Raw,
			RowNumber:  i + 1,
			Statutory:  amount(row.At(cols.Statutory)),
			VAT:        amount(row.At(cols.VAT)),
			Deductions: amount(row.At(cols.Deductions)),
			Net:        amount(row.At(cols.Net)),
		}
		if !fig.Net.IsPositive() && !fig.Statutory.IsPositive() {
			result.Empty++
			continue
		}

		if _, dup := seen[region.ID]; dup {
			result.Duplicates++
			continue
		}
		seen[region.ID] = struct{}{}
		result.Rows = append(result.Rows, fig)
	}

	return result
}

func (e *Extractor) findHeader(rows []Row) int {
	limit := e.headerScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			if cell.Kind != CellText {
				continue
			}
			text := cell.Text()
			if containsAny(text, headerTokens) || text == "sn" {
				return i
			}
		}
	}
	return -1
}

func mapColumns(header Row) Columns {
	cols := Columns{-1, -1, -1, -1}
	for i, cell := range header {
		text := cell.Text()
		switch {
		case text == "":
		case strings.Contains(text, "statutory") && cols.Statutory < 0:
			cols.Statutory = i
		case (hasWord(text, "vat") || strings.Contains(text, "value added")) && cols.VAT < 0:
			cols.VAT = i
		case strings.Contains(text, "deduction") && cols.Deductions < 0:
			cols.Deductions = i
		case strings.Contains(text, "net") && cols.Net < 0:
			cols.Net = i
		}
	}
	return cols
}

func (c Columns) withDefaults() Columns {
	if c.Statutory < 0 {
		c.Statutory = defaultColumns.Statutory
	}
	if c.VAT < 0 {
		c.VAT = defaultColumns.VAT
	}
	if c.Deductions < 0 {
		c.Deductions = defaultColumns.Deductions
	}
	if c.Net < 0 {
		c.Net = defaultColumns.Net
	}
	return c
}

func amount(c Cell) decimal.Decimal {
	return decimal.NewFromFloat(c.Float()).Round(2)
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

// hasWord reports whether word appears in s as a whole run of letters
func hasWord(s, word string) bool {
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if field == word {
			return true
		}
	}
	return false
}

func preview(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return string(runes)
}
