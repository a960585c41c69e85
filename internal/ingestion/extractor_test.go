package ingestion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFullSheet(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows(allocationSheet(regionNames()))

	got := NewExtractor(15).Extract(rows, registry)

	require.True(t, got.HeaderFound)
	assert.Equal(t, 4, got.HeaderRow)
	assert.Equal(t, Columns{Statutory: 2, VAT: 3, Deductions: 4, Net: 5}, got.Columns)
	assert.Len(t, got.Rows, 37)
	assert.Empty(t, got.Unresolved)
	assert.Equal(t, 1, got.Skipped, "grand total row")

	first := got.Rows[0]
	assert.Equal(t, "Abia", first.Region.Name)
	assert.True(t, first.Statutory.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, first.VAT.Equal(decimal.NewFromInt(250000)))
	assert.True(t, first.Deductions.Equal(decimal.NewFromInt(100000)))
	assert.True(t, first.Net.Equal(decimal.NewFromInt(1150000)))
}

func TestExtractNoHeader(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows([][]any{
		{"Beneficiary", "Amount"},
		{"Abia", 100},
	})

	got := NewExtractor(15).Extract(rows, registry)

	assert.False(t, got.HeaderFound)
	assert.Empty(t, got.Rows)
}

func TestExtractHeaderOutsideScanWindow(t *testing.T) {
	registry := BuildRegistry(testRegions())
	sheet := append([][]any{{"title"}, {"subtitle"}, {"notes"}}, allocationSheet([]string{"Abia"})...)

	got := NewExtractor(3).Extract(sheetRows(sheet), registry)

	assert.False(t, got.HeaderFound)
}

func TestExtractRowRules(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows([][]any{
		{"State", "Statutory", "Value Added Tax", "Deduction", "Net Amount"},
		{"1. Abia", "1,000.50", "200", "", "1,200.50"},
		{"FCT, Abuja", 500, 100, 50, 550},
		{"Atlantis", 1, 1, 1, 1},
		{"Lagos", "-", "n/a", 0, 0},
		{"Abia", 9, 9, 9, 9},
		{"Note: figures in naira"},
		{},
		{"Summary of deductions", 1, 1, 1, 1},
	})

	got := NewExtractor(15).Extract(rows, registry)

	require.True(t, got.HeaderFound)
	assert.Equal(t, Columns{Statutory: 1, VAT: 2, Deductions: 3, Net: 4}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Abia", got.Rows[0].Region.Name)
	assert.True(t, got.Rows[0].Deductions.IsZero(), "missing monetary cell coerces to 0")
	assert.True(t, got.Rows[0].Statutory.Equal(decimal.RequireFromString("1000.5")))
	assert.Equal(t, "FCT", got.Rows[1].Region.Name)

	assert.Equal(t, []string{"Atlantis"}, got.Unresolved)
	assert.Equal(t, 1, got.Empty, "Lagos has no positive figures")
	assert.Equal(t, 1, got.Duplicates, "second Abia row")
	assert.Equal(t, 2, got.Skipped)
}

func TestExtractDefaultsUnmappedColumns(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows([][]any{
		{"State", "A", "B", "C", "D"},
		{"Kano", 10, 2, 1, 11},
	})

	got := NewExtractor(15).Extract(rows, registry)

	require.Len(t, got.Rows, 1)
	assert.Equal(t, Columns{-1, -1, -1, -1}, got.Columns)
	assert.True(t, got.Rows[0].Statutory.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.Rows[0].Net.Equal(decimal.NewFromInt(11)))
}

func TestExtractMapsVATAsWholeWord(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows([][]any{
		{"State", "Statutory Allocation", "13% Derivation", "VAT", "Deductions", "Net"},
		{"Abia", 100, 40, 20, 5, 155},
	})

	got := NewExtractor(15).Extract(rows, registry)

	assert.Equal(t, Columns{Statutory: 1, VAT: 3, Deductions: 4, Net: 5}, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.True(t, got.Rows[0].VAT.Equal(decimal.NewFromInt(20)))
}

func TestExtractNonFiniteCellsCoerceToZero(t *testing.T) {
	registry := BuildRegistry(testRegions())
	rows := sheetRows([][]any{
		{"State", "Statutory", "VAT", "Deductions", "Net"},
		{"Abia", 100, "NaN", 1, 99},
		{"Kano", "Infinity", 10, "-Inf", 10},
	})

	var got Extraction
	require.NotPanics(t, func() { got = NewExtractor(15).Extract(rows, registry) })

	require.Len(t, got.Rows, 2)
	assert.True(t, got.Rows[0].VAT.IsZero())
	assert.True(t, got.Rows[0].Net.Equal(decimal.NewFromInt(99)))
	assert.True(t, got.Rows[1].Statutory.IsZero())
	assert.True(t, got.Rows[1].Deductions.IsZero())
}

func TestExtractPreviewIsTruncated(t *testing.T) {
	registry := BuildRegistry(testRegions())
	long := "An unexpectedly verbose beneficiary label that keeps going"
	rows := sheetRows([][]any{
		{"S/N", "State"},
		{1, long, 5, 5, 5, 5},
	})

	got := NewExtractor(15).Extract(rows, registry)

	require.Len(t, got.Unresolved, 1)
	assert.Equal(t, long[:40], got.Unresolved[0])
}
