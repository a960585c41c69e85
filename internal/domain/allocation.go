package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation is one disbursement figure set for a region or sub-region in one month.
// A nil SubRegionID marks the region-level total.
type Allocation struct {
	ID          uuid.UUID       `json:"id"`
	RegionID    uuid.UUID       `json:"region_id"`
	SubRegionID *uuid.UUID      `json:"sub_region_id,omitempty"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Statutory   decimal.Decimal `json:"statutory_allocation"`
	VAT         decimal.Decimal `json:"vat_allocation"`
	Gross       decimal.Decimal `json:"total_gross"`
	Deductions  decimal.Decimal `json:"deductions"`
	Net         decimal.Decimal `json:"net_allocation"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewIngestedAllocation builds a region-level row from upstream figures.
// Gross is statutory + VAT; net is kept as reported upstream.
func NewIngestedAllocation(regionID uuid.UUID, period Period, statutory, vat, deductions, net decimal.Decimal) Allocation {
	now := time.Now().UTC()
	return Allocation{
		ID:         uuid.New(),
		RegionID:   regionID,
		Month:      period.Month,
		Year:       period.Year,
		Statutory:  statutory,
		VAT:        vat,
		Gross:      statutory.Add(vat),
		Deductions: deductions,
		Net:        net,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewManualAllocation builds a region-level row entered by an operator, deriving net from deductions.
func NewManualAllocation(regionID uuid.UUID, period Period, statutory, vat, deductions decimal.Decimal) Allocation {
	a := NewIngestedAllocation(regionID, period, statutory, vat, deductions, decimal.Zero)
	a.Net = a.Gross.Sub(deductions)
	return a
}

// Period returns the allocation month
func (a Allocation) Period() Period {
	return Period{Month: a.Month, Year: a.Year}
}

// IsRegionLevel reports whether the row is a region total
func (a Allocation) IsRegionLevel() bool {
	return a.SubRegionID == nil
}

// WithFigures returns a copy carrying the figures of other, keeping identity and period.
func (a Allocation) WithFigures(other Allocation) Allocation {
	a.Statutory = other.Statutory
	a.VAT = other.VAT
	a.Gross = other.Gross
	a.Deductions = other.Deductions
	a.Net = other.Net
	a.UpdatedAt = time.Now().UTC()
	return a
}

// AllocationFilter narrows region-level history queries
type AllocationFilter struct {
	Year  *int
	Month *int
}
