package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPeriodOf(t *testing.T) {
	got := PeriodOf(time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC))
	if got != "2025-01" {
		t.Fatalf("expected 2025-01, got %s", got)
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01", true},
		{" 2024-12 ", true},
		{"2025-13", false},
		{"2025-1", false},
		{"25-01", false},
		{"", false},
		{"2025/01", false},
	}
	for _, tc := range cases {
		p, err := ParsePeriod(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("%q expected ErrInvalidPeriod, got %v (%q)", tc.in, err, p)
			}
		}
	}
}

func TestCreateRecordRequestValidate(t *testing.T) {
	good := CreateRecordRequest{
		Barcode:   "7891000100103",
		Name:      "Leite",
		UnitPrice: decimal.RequireFromString("4.99"),
		Quantity:  1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	free := good
	free.UnitPrice = decimal.Zero
	if err := free.Validate(); err != nil {
		t.Fatalf("zero price should be accepted, got %v", err)
	}

	bads := []struct {
		req  CreateRecordRequest
		want error
	}{
		{CreateRecordRequest{Barcode: "  ", UnitPrice: decimal.NewFromInt(1), Quantity: 1}, ErrEmptyBarcode},
		{CreateRecordRequest{Barcode: "1", UnitPrice: decimal.NewFromInt(-1), Quantity: 1}, ErrNegativePrice},
		{CreateRecordRequest{Barcode: "1", UnitPrice: decimal.NewFromInt(1), Quantity: 0}, ErrInvalidQuantity},
	}
	for i, tc := range bads {
		err := tc.req.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected a validation error", i)
		}
	}
}

func TestUpdateRecordRequestApplyKeepsImmutableFields(t *testing.T) {
	rec := PurchaseRecord{
		ID:        7,
		Barcode:   "123",
		Name:      "old",
		UnitPrice: decimal.NewFromInt(2),
		Quantity:  1,
		Period:    "2025-01",
	}
	upd := UpdateRecordRequest{Name: "new", Brand: "b", UnitPrice: decimal.NewFromInt(3), Quantity: 4}
	got := upd.Apply(rec)
	if got.ID != 7 || got.Barcode != "123" || got.Period != "2025-01" {
		t.Fatalf("immutable fields changed: %+v", got)
	}
	if got.Name != "new" || got.Brand != "b" || got.Quantity != 4 || !got.UnitPrice.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("editable fields not applied: %+v", got)
	}
}

func TestNormalizeTrimsFields(t *testing.T) {
	req := CreateRecordRequest{Barcode: " 123 ", Name: " Arroz ", Category: "\tAlimento "}
	req.Normalize()
	if req.Barcode != "123" || req.Name != "Arroz" || req.Category != "Alimento" {
		t.Fatalf("unexpected normalized request: %+v", req)
	}
}

func TestSuggestCategory(t *testing.T) {
	cases := map[string]string{
		"Sabonete Dove":     "Higiene",
		"DETERGENTE Ypê":    "Limpeza",
		"Arroz branco 5kg":  "Alimento",
		"Leite integral":    "Alimento",
		"Pilha alcalina AA": DefaultCategory,
		"":                  DefaultCategory,
	}
	for name, want := range cases {
		if got := SuggestCategory(name); got != want {
			t.Errorf("SuggestCategory(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestProductRegistrationComplete(t *testing.T) {
	full := ProductRegistration{Barcode: "1", Name: "n", Brand: "b", Category: "c"}
	if !full.Complete() {
		t.Fatalf("expected complete")
	}
	partial := full
	partial.Brand = " "
	if partial.Complete() {
		t.Fatalf("expected incomplete when brand is blank")
	}
}
