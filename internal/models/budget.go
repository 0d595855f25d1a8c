package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the length of time a budget covers.
type BudgetPeriod string

const (
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"
)

// Valid reports whether p is one of the known periods.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// EndDate returns the budget end date for a period starting at start.
// It is computed once at creation and never recomputed afterwards.
func (p BudgetPeriod) EndDate(start time.Time) time.Time {
	switch p {
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		return start.AddDate(0, 3, 0)
	case PeriodYearly:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// Budget is a spending limit scoped to a team and optionally a category.
// An empty Category means the budget is general and matches every expense
// of its team.
type Budget struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category,omitempty"`
	TeamID         int64           `json:"team_id"`
	CreatedBy      int64           `json:"created_by"`
	Period         BudgetPeriod    `json:"period"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	AlertThreshold int             `json:"alert_threshold"`
	IsActive       bool            `json:"is_active"`
	Spent          decimal.Decimal `json:"spent"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Matches reports whether an expense with the given category counts against
// the budget. Category comparison is exact and case-sensitive.
func (b *Budget) Matches(category string) bool {
	return b.Category == "" || b.Category == category
}

// AlertType distinguishes warning alerts from exceeded alerts.
type AlertType string

const (
	AlertThreshold AlertType = "threshold"
	AlertExceeded  AlertType = "exceeded"
)

// BudgetAlert notifies a budget's creator that spend crossed a limit.
type BudgetAlert struct {
	ID         int64     `json:"id"`
	BudgetID   int64     `json:"budget_id"`
	UserID     int64     `json:"user_id"`
	Type       AlertType `json:"alert_type"`
	Percentage int       `json:"percentage"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
