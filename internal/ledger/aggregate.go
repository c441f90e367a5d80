// Package ledger holds the pure computations over purchase records: subtotals,
// totals, per-period grouping and the remaining credit against a budget.
// Nothing here touches storage; callers hand in the records they loaded.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

// Subtotal is unit price times quantity.
func Subtotal(r core.PurchaseRecord) decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// Totals returns the amount spent and the number of items across records.
// An empty input yields (0, 0). The input slice is not modified.
func Totals(records []core.PurchaseRecord) (decimal.Decimal, int) {
	spent := decimal.Zero
	items := 0
	for _, r := range records {
		spent = spent.Add(Subtotal(r))
		items += r.Quantity
	}
	return spent, items
}

// RemainingCredit is ceiling minus spent. A negative result means the budget was overrun.
func RemainingCredit(ceiling, spent decimal.Decimal) decimal.Decimal {
	return ceiling.Sub(spent)
}

// CreditStatusFor compares spent against ceiling.
func CreditStatusFor(ceiling, spent decimal.Decimal) core.CreditStatus {
	remaining := RemainingCredit(ceiling, spent)
	return core.CreditStatus{
		Ceiling:   ceiling,
		Spent:     spent,
		Remaining: remaining,
		Overrun:   remaining.IsNegative(),
	}
}

// GroupByPeriod summarizes records per period, ordered by ascending period label.
func GroupByPeriod(records []core.PurchaseRecord) []core.PeriodSummary {
	byPeriod := make(map[core.Period][]core.PurchaseRecord)
	for _, r := range records {
		byPeriod[r.Period] = append(byPeriod[r.Period], r)
	}

	out := make([]core.PeriodSummary, 0, len(byPeriod))
	for p, recs := range byPeriod {
		spent, items := Totals(recs)
		out = append(out, core.PeriodSummary{Period: p, TotalSpent: spent, TotalItems: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Report builds the period view: its records, totals and credit status.
func Report(period core.Period, records []core.PurchaseRecord, ceiling decimal.Decimal) core.PeriodReport {
	spent, items := Totals(records)
	return core.PeriodReport{
		Period:     period,
		Records:    records,
		TotalSpent: spent,
		TotalItems: items,
		Credit:     CreditStatusFor(ceiling, spent),
	}
}
