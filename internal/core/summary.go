package core

import "github.com/shopspring/decimal"

// PeriodSummary aggregates the purchases of one period. It is derived on demand.
type PeriodSummary struct {
	Period     Period
	TotalSpent decimal.Decimal
	TotalItems int
}

// CreditStatus compares a period's spend against the credit ceiling.
// A negative Remaining is an overrun: a warning state, not an error.
type CreditStatus struct {
	Ceiling   decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Overrun   bool
}

// PeriodReport is everything the ledger page shows for one period.
type PeriodReport struct {
	Period     Period
	Records    []PurchaseRecord
	TotalSpent decimal.Decimal
	TotalItems int
	Credit     CreditStatus
}
