package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueRecord is a region's internally generated revenue for one quarter
type RevenueRecord struct {
	ID       uuid.UUID       `json:"id"`
	RegionID uuid.UUID       `json:"region_id"`
	Year     int             `json:"year"`
	Quarter  int             `json:"quarter"`
	Amount   decimal.Decimal `json:"amount"`
}
