package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const periodLayout = "2006-01"

type (
	// Period is the YYYY-MM label grouping purchases by month.
	Period string

	PurchaseRecord struct {
		ID           int64
		Barcode      string
		Name         string
		Brand        string
		Manufacturer string
		Category     string
		UnitPrice    decimal.Decimal
		Quantity     int
		Period       Period
	}

	// ProductInfo is what the metadata lookup knows about a barcode.
	// Any field may be empty.
	ProductInfo struct {
		Name         string
		Brand        string
		Manufacturer string
		Category     string
	}

	// CreateRecordRequest carries the form values for a new purchase.
	// The period is not part of the request: it is stamped by the ledger.
	CreateRecordRequest struct {
		Barcode      string
		Name         string
		Brand        string
		Manufacturer string
		Category     string
		UnitPrice    decimal.Decimal
		Quantity     int
	}

	// UpdateRecordRequest carries the editable fields of a purchase.
	// Barcode and period cannot be changed.
	UpdateRecordRequest struct {
		Name         string
		Brand        string
		Manufacturer string
		Category     string
		UnitPrice    decimal.Decimal
		Quantity     int
	}

	// SearchFilter narrows the full purchase history. Empty fields match everything.
	SearchFilter struct {
		Name     string
		Category string
		Period   Period
	}
)

var (
	ErrEmptyBarcode    = errors.New("empty barcode")
	ErrNegativePrice   = errors.New("unit price must not be negative")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPeriod   = errors.New("invalid period (expected YYYY-MM)")
	ErrInvalidID       = errors.New("invalid record id")
	ErrNotFound        = errors.New("record not found")
)

// PeriodOf returns the period label for the month containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

// ParsePeriod validates a YYYY-MM label.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(periodLayout, s); err != nil {
		return "", ErrInvalidPeriod
	}
	return Period(s), nil
}

func (p Period) String() string {
	return string(p)
}

func (p Period) Validate() error {
	_, err := ParsePeriod(string(p))
	return err
}

// Normalize trims every free-text field in place.
func (r *CreateRecordRequest) Normalize() {
	r.Barcode = strings.TrimSpace(r.Barcode)
	r.Name = strings.TrimSpace(r.Name)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Manufacturer = strings.TrimSpace(r.Manufacturer)
	r.Category = strings.TrimSpace(r.Category)
}

func (r CreateRecordRequest) Validate() error {
	if strings.TrimSpace(r.Barcode) == "" {
		return ErrEmptyBarcode
	}
	return validateAmounts(r.UnitPrice, r.Quantity)
}

// Record builds the purchase that the request describes once it has an id and a period.
func (r CreateRecordRequest) Record(id int64, period Period) PurchaseRecord {
	return PurchaseRecord{
		ID:           id,
		Barcode:      r.Barcode,
		Name:         r.Name,
		Brand:        r.Brand,
		Manufacturer: r.Manufacturer,
		Category:     r.Category,
		UnitPrice:    r.UnitPrice,
		Quantity:     r.Quantity,
		Period:       period,
	}
}

func (r *UpdateRecordRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Manufacturer = strings.TrimSpace(r.Manufacturer)
	r.Category = strings.TrimSpace(r.Category)
}

func (r UpdateRecordRequest) Validate() error {
	return validateAmounts(r.UnitPrice, r.Quantity)
}

// Apply returns rec with the editable fields replaced. ID, barcode and period are kept.
func (r UpdateRecordRequest) Apply(rec PurchaseRecord) PurchaseRecord {
	rec.Name = r.Name
	rec.Brand = r.Brand
	rec.Manufacturer = r.Manufacturer
	rec.Category = r.Category
	rec.UnitPrice = r.UnitPrice
	rec.Quantity = r.Quantity
	return rec
}

func validateAmounts(price decimal.Decimal, quantity int) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// IsValidation reports whether err is one of the input validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBarcode) ||
		errors.Is(err, ErrNegativePrice) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidID)
}
