package ingestion

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when a payload is neither xlsx nor legacy xls.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ReadFirstSheet decodes the first worksheet of an xlsx or xls payload into rows.
func ReadFirstSheet(payload []byte) ([]Row, error) {
	switch {
	case bytes.HasPrefix(payload, zipMagic):
		return readXLSX(payload)
	case bytes.HasPrefix(payload, oleMagic):
		return readXLS(payload)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readXLSX(payload []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	rows := make([]Row, len(raw))
	for i, values := range raw {
		rows[i] = NewRow(values)
	}
	return rows, nil
}

func readXLS(payload []byte) (rows []Row, err error) {
	// the xls decoder panics on some malformed streams
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("failed to decode xls: %v", p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(payload), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	rows = make([]Row, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			rows = append(rows, Row{})
			continue
		}
		values := make([]string, r.LastCol()+1)
		for col := r.FirstCol(); col <= r.LastCol(); col++ {
			values[col] = r.Col(col)
		}
		rows = append(rows, NewRow(values))
	}
	return rows, nil
}
