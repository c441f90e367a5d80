package http

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

// FormState holds the values of the purchase form for one request.
// Raw strings are kept so an invalid submission can be shown back as typed.
type FormState struct {
	Barcode      string
	Name         string
	Brand        string
	Manufacturer string
	Category     string
	UnitPrice    string
	Quantity     string
	Credit       string
	Period       string
}

func parseFormState(form url.Values) FormState {
	return FormState{
		Barcode:      sanitizeInput(form.Get("barcode")),
		Name:         sanitizeInput(form.Get("name")),
		Brand:        sanitizeInput(form.Get("brand")),
		Manufacturer: sanitizeInput(form.Get("manufacturer")),
		Category:     sanitizeInput(form.Get("category")),
		UnitPrice:    sanitizeInput(form.Get("unit_price")),
		Quantity:     sanitizeInput(form.Get("quantity")),
		Credit:       sanitizeInput(form.Get("credit")),
		Period:       sanitizeInput(form.Get("period")),
	}
}

// CreateRequest converts the form into a create command
func (f FormState) CreateRequest() (core.CreateRecordRequest, error) {
	if f.Barcode == "" {
		return core.CreateRecordRequest{}, core.ErrEmptyBarcode
	}
	price, qty, err := f.amounts()
	if err != nil {
		return core.CreateRecordRequest{}, err
	}
	req := core.CreateRecordRequest{
		Barcode:      f.Barcode,
		Name:         f.Name,
		Brand:        f.Brand,
		Manufacturer: f.Manufacturer,
		Category:     f.Category,
		UnitPrice:    price,
		Quantity:     qty,
	}
	if err := req.Validate(); err != nil {
		return core.CreateRecordRequest{}, err
	}
	return req, nil
}

func (f FormState) UpdateRequest() (core.UpdateRecordRequest, error) {
	price, qty, err := f.amounts()
	if err != nil {
		return core.UpdateRecordRequest{}, err
	}
	return core.UpdateRecordRequest{
		Name:         f.Name,
		Brand:        f.Brand,
		Manufacturer: f.Manufacturer,
		Category:     f.Category,
		UnitPrice:    price,
		Quantity:     qty,
	}, nil
}

func (f FormState) amounts() (decimal.Decimal, int, error) {
	price, err := core.ParseAmount(f.UnitPrice)
	if err != nil {
		return decimal.Zero, 0, err
	}
	qty := 1
	if f.Quantity != "" {
		if qty, err = core.ParseQuantity(f.Quantity); err != nil {
			return decimal.Zero, 0, err
		}
	}
	return price, qty, nil
}

// CreditCeiling parses the credit field, falling back to def when empty
func (f FormState) CreditCeiling(def decimal.Decimal) (decimal.Decimal, error) {
	if f.Credit == "" {
		return def, nil
	}
	return core.ParseAmount(f.Credit)
}

// SelectedPeriod parses the period field, falling back to current when empty
func (f FormState) SelectedPeriod(current core.Period) (core.Period, error) {
	if f.Period == "" {
		return current, nil
	}
	return core.ParsePeriod(f.Period)
}

// Prefill replaces the product fields with looked-up data. Fields typed for
// a previous barcode must not survive a new lookup.
func (f FormState) Prefill(info core.ProductInfo) FormState {
	f.Name = strings.TrimSpace(info.Name)
	f.Brand = strings.TrimSpace(info.Brand)
	f.Manufacturer = strings.TrimSpace(info.Manufacturer)
	f.Category = strings.TrimSpace(info.Category)
	if f.Category == "" && f.Name != "" {
		f.Category = core.SuggestCategory(f.Name)
	}
	return f
}

// ledgerQuery keeps the period and credit selection across redirects
func (f FormState) ledgerQuery(period core.Period) string {
	q := url.Values{}
	q.Set("period", period.String())
	if f.Credit != "" {
		q.Set("credit", f.Credit)
	}
	return q.Encode()
}
