package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Format is a download file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown export format")

const sheetName = "Allocations"

var headers = []string{
	"Period",
	"Month",
	"Year",
	"Statutory Allocation",
	"VAT Allocation",
	"Total Gross",
	"Deductions",
	"Net Allocation",
}

// ParseFormat maps a query value to a Format; empty selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

type Service struct {
	regions     repository.RegionRepository
	allocations repository.AllocationRepository
	now         func() time.Time
}

func NewService(regions repository.RegionRepository, allocations repository.AllocationRepository) *Service {
	return &Service{regions: regions, allocations: allocations, now: time.Now}
}

// Download describes a rendered export
type Download struct {
	Filename    string
	ContentType string
	Rows        int
	Body        []byte
}

// RegionHistory renders the region-level allocation history of the named region, newest first.
func (s *Service) RegionHistory(ctx context.Context, regionName string, format Format) (Download, error) {
	region, err := s.regions.GetByName(ctx, regionName)
	if err != nil {
		return Download{}, err
	}
	return s.renderRegion(ctx, region.ID, region.Name, format)
}

func (s *Service) renderRegion(ctx context.Context, regionID uuid.UUID, name string, format Format) (Download, error) {
	allocations, err := s.allocations.ListByRegion(ctx, regionID, domain.AllocationFilter{})
	if err != nil {
		return Download{}, fmt.Errorf("list allocations: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = writeCSV(&buf, allocations)
	case FormatXLSX:
		err = writeXLSX(&buf, allocations)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Download{}, err
	}

	return Download{
		Filename:    fmt.Sprintf("%s-allocations-%s.%s", slug(name), s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Rows:        len(allocations),
		Body:        buf.Bytes(),
	}, nil
}

func writeCSV(w io.Writer, allocations []domain.Allocation) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range allocations {
		if err := csvWriter.Write(record(a)); err != nil {
			return fmt.Errorf("write allocation row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeXLSX(w io.Writer, allocations []domain.Allocation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, a := range allocations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			a.Period().Label(),
			a.Month,
			a.Year,
			a.Statutory.InexactFloat64(),
			a.VAT.InexactFloat64(),
			a.Gross.InexactFloat64(),
			a.Deductions.InexactFloat64(),
			a.Net.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write allocation row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func record(a domain.Allocation) []string {
	return []string{
		a.Period().Label(),
		strconv.Itoa(a.Month),
		strconv.Itoa(a.Year),
		a.Statutory.StringFixed(2),
		a.VAT.StringFixed(2),
		a.Gross.StringFixed(2),
		a.Deductions.StringFixed(2),
		a.Net.StringFixed(2),
	}
}

func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	if len(fields) == 0 {
		return "region"
	}
	return strings.Join(fields, "-")
}
