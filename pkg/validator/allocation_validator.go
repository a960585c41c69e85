package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinYear = 1990
	MaxYear = 2100
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

func (r *ValidationResult) add(field, message string, value any) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
}

// Error joins the messages of every failed field
func (r ValidationResult) Error() string {
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(messages, "; ")
}

// AllocationInput is a manual allocation entry as submitted, before parsing.
type AllocationInput struct {
	RegionID   string `json:"region_id"`
	Month      string `json:"month"`
	Year       string `json:"year"`
	Statutory  string `json:"statutory_allocation"`
	VAT        string `json:"vat_allocation"`
	Deductions string `json:"deductions"`
}

// Allocation is a validated manual entry
type Allocation struct {
	RegionID   uuid.UUID
	Month      int
	Year       int
	Statutory  decimal.Decimal
	VAT        decimal.Decimal
	Deductions decimal.Decimal
}

// AllocationValidator checks manual allocation input
type AllocationValidator struct{}

// NewAllocationValidator creates a new allocation validator
func NewAllocationValidator() *AllocationValidator {
	return &AllocationValidator{}
}

// Validate parses input. Blank amounts count as zero; negative amounts are rejected.
func (v *AllocationValidator) Validate(in AllocationInput) (Allocation, ValidationResult) {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}
	var out Allocation

	id, err := uuid.Parse(strings.TrimSpace(in.RegionID))
	if err != nil {
		result.add("region_id", "must be a valid region id", in.RegionID)
	}
	out.RegionID = id

	out.Month = v.integer(&result, "month", in.Month, 1, 12)
	out.Year = v.integer(&result, "year", in.Year, MinYear, MaxYear)
	out.Statutory = v.amount(&result, "statutory_allocation", in.Statutory)
	out.VAT = v.amount(&result, "vat_allocation", in.VAT)
	out.Deductions = v.amount(&result, "deductions", in.Deductions)

	return out, result
}

func (v *AllocationValidator) integer(result *ValidationResult, field, raw string, lo, hi int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		result.add(field, "is required", nil)
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		result.add(field, "must be a whole number", raw)
		return 0
	}
	if n < lo || n > hi {
		result.add(field, fmt.Sprintf("must be between %d and %d", lo, hi), n)
	}
	return n
}

func (v *AllocationValidator) amount(result *ValidationResult, field, raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		result.add(field, "must be a number", raw)
		return decimal.Zero
	}
	if d.IsNegative() {
		result.add(field, "cannot be negative", raw)
	}
	return d.Round(2)
}
