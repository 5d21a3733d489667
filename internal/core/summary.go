package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	UserID     int64
	Year       int
	Month      int // 1-12
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Savings    decimal.Decimal
	Balance    decimal.Decimal
	ByCategory []CategoryAmount
}

// YearSummary aggregates twelve MonthSummary values.
type YearSummary struct {
	UserID   int64
	Year     int
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Savings  decimal.Decimal
	Balance  decimal.Decimal
	Months   []MonthSummary // one entry per month with activity
}
