// Package export renders ledger records as CSV and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"compras/internal/core"
	"compras/internal/ledger"
)

// Header is the column order shared by every export format
var Header = []string{
	"id", "barcode", "name", "brand", "manufacturer",
	"category", "unit_price", "quantity", "period", "subtotal",
}

// Row renders one record in Header order
func Row(r core.PurchaseRecord) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Barcode,
		r.Name,
		r.Brand,
		r.Manufacturer,
		r.Category,
		r.UnitPrice.StringFixed(2),
		strconv.Itoa(r.Quantity),
		r.Period.String(),
		ledger.Subtotal(r).StringFixed(2),
	}
}

// TotalsRow sums quantity and subtotal under their columns
func TotalsRow(records []core.PurchaseRecord) []string {
	spent, items := ledger.Totals(records)
	row := make([]string, len(Header))
	row[0] = "total"
	row[7] = strconv.Itoa(items)
	row[9] = spent.StringFixed(2)
	return row
}

// WriteCSV writes the header and one line per record
func WriteCSV(w io.Writer, records []core.PurchaseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var columnWidths = []float64{8, 16, 30, 16, 16, 16, 12, 10, 10, 12}

// WriteXLSX writes a workbook with one sheet named after period, the records
// and a closing totals row. Numeric columns are stored as numbers.
func WriteXLSX(w io.Writer, period core.Period, records []core.PurchaseRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := period.String()
	if sheet == "" {
		sheet = "compras"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	if err := setRow(f, sheet, 1, toAny(Header)); err != nil {
		return err
	}
	for i, r := range records {
		values := []any{
			r.ID,
			r.Barcode,
			r.Name,
			r.Brand,
			r.Manufacturer,
			r.Category,
			r.UnitPrice.InexactFloat64(),
			r.Quantity,
			r.Period.String(),
			ledger.Subtotal(r).InexactFloat64(),
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}

	spent, items := ledger.Totals(records)
	totals := make([]any, len(Header))
	totals[0] = "total"
	totals[7] = items
	totals[9] = spent.Round(2).InexactFloat64()
	if err := setRow(f, sheet, len(records)+2, totals); err != nil {
		return err
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
