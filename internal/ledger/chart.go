package ledger

import (
	"github.com/shopspring/decimal"

	"compras/internal/core"
)

// Bar is one period column of the spend comparison chart. Widths are
// percentages of the largest value of the same series.
type Bar struct {
	Period     core.Period
	TotalSpent decimal.Decimal
	TotalItems int
	SpentWidth int
	ItemsWidth int
}

// BarScale scales period summaries for rendering as horizontal bars.
func BarScale(summaries []core.PeriodSummary) []Bar {
	maxSpent := decimal.Zero
	maxItems := 0
	for _, s := range summaries {
		if s.TotalSpent.GreaterThan(maxSpent) {
			maxSpent = s.TotalSpent
		}
		if s.TotalItems > maxItems {
			maxItems = s.TotalItems
		}
	}

	bars := make([]Bar, 0, len(summaries))
	for _, s := range summaries {
		b := Bar{Period: s.Period, TotalSpent: s.TotalSpent, TotalItems: s.TotalItems}
		if maxSpent.IsPositive() && s.TotalSpent.IsPositive() {
			b.SpentWidth = scale(int(s.TotalSpent.Mul(decimal.NewFromInt(100)).Div(maxSpent).Round(0).IntPart()))
		}
		if maxItems > 0 && s.TotalItems > 0 {
			b.ItemsWidth = scale((s.TotalItems*100 + maxItems/2) / maxItems)
		}
		bars = append(bars, b)
	}
	return bars
}

// scale keeps tiny values visible and caps at 100.
func scale(width int) int {
	if width > 0 && width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
