package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixtureRegions = []struct {
	name, code string
	zone       domain.Zone
}{
	{"Abia", "AB", domain.ZoneSouthEast},
	{"Anambra", "AN", domain.ZoneSouthEast},
	{"Ebonyi", "EB", domain.ZoneSouthEast},
	{"Enugu", "EN", domain.ZoneSouthEast},
	{"Imo", "IM", domain.ZoneSouthEast},
	{"Akwa Ibom", "AK", domain.ZoneSouthSouth},
	{"Bayelsa", "BY", domain.ZoneSouthSouth},
	{"Cross River", "CR", domain.ZoneSouthSouth},
	{"Delta", "DE", domain.ZoneSouthSouth},
	{"Edo", "ED", domain.ZoneSouthSouth},
	{"Rivers", "RI", domain.ZoneSouthSouth},
	{"Ekiti", "EK", domain.ZoneSouthWest},
	{"Lagos", "LA", domain.ZoneSouthWest},
	{"Ogun", "OG", domain.ZoneSouthWest},
	{"Ondo", "ON", domain.ZoneSouthWest},
	{"Osun", "OS", domain.ZoneSouthWest},
	{"Oyo", "OY", domain.ZoneSouthWest},
	{"Benue", "BN", domain.ZoneNorthCentral},
	{"Kogi", "KO", domain.ZoneNorthCentral},
	{"Kwara", "KW", domain.ZoneNorthCentral},
	{"Nasarawa", "NA", domain.ZoneNorthCentral},
	{"Niger", "NI", domain.ZoneNorthCentral},
	{"Plateau", "PL", domain.ZoneNorthCentral},
	{"FCT", "FC", domain.ZoneNorthCentral},
	{"Adamawa", "AD", domain.ZoneNorthEast},
	{"Bauchi", "BA", domain.ZoneNorthEast},
	{"Borno", "BO", domain.ZoneNorthEast},
	{"Gombe", "GO", domain.ZoneNorthEast},
	{"Taraba", "TA", domain.ZoneNorthEast},
	{"Yobe", "YO", domain.ZoneNorthEast},
	{"Jigawa", "JI", domain.ZoneNorthWest},
	{"Kaduna", "KD", domain.ZoneNorthWest},
	{"Kano", "KN", domain.ZoneNorthWest},
	{"Katsina", "KT", domain.ZoneNorthWest},
	{"Kebbi", "KB", domain.ZoneNorthWest},
	{"Sokoto", "SK", domain.ZoneNorthWest},
	{"Zamfara", "ZA", domain.ZoneNorthWest},
}

func testRegions() []domain.Region {
	regions := make([]domain.Region, 0, len(fixtureRegions))
	for _, r := range fixtureRegions {
		var aliases []string
		if r.name == "Nasarawa" {
			aliases = []string{"Nassarawa"}
		}
		regions = append(regions, domain.NewRegion(r.name, r.code, r.zone, aliases...))
	}
	return regions
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for _, region := range testRegions() {
		_, err := store.Regions().Upsert(context.Background(), region)
		require.NoError(t, err)
	}
	return store
}

// allocationSheet lays rows out the way the published workbook does:
// two title rows, a blank row, a header, one row per region and a total.
func allocationSheet(names []string) [][]any {
	rows := [][]any{
		{"FEDERATION ACCOUNT ALLOCATION COMMITTEE"},
		{"Disbursement for the month of March 2025"},
		{},
		{"S/N", "Beneficiary", "Statutory Allocation", "VAT", "Total Deductions", "Net Allocation"},
	}
	for i, name := range names {
		base := float64(1000000 * (i + 1))
		rows = append(rows, []any{i + 1, name, base, base / 4, base / 10, base + base/4 - base/10})
	}
	rows = append(rows, []any{"", "Grand Total", 1, 1, 1, 1})
	return rows
}

func regionNames() []string {
	names := make([]string, len(fixtureRegions))
	for i, r := range fixtureRegions {
		names[i] = r.name
	}
	return names
}

func workbookPayload(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sheetRows(rows [][]any) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		values := make([]string, len(row))
		for j, v := range row {
			values[j] = fmt.Sprint(v)
		}
		out[i] = NewRow(values)
	}
	return out
}
