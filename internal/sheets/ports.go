package sheets

import (
	"context"

	"compras/internal/core"
)

// PeriodWriter replaces the mirrored copy of one period with rows.
// rows[0] is the header. An empty period is written as header plus totals.
type PeriodWriter interface {
	WritePeriod(ctx context.Context, period core.Period, rows [][]string) error
}
