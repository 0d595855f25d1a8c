package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the approval state of an expense.
type ExpenseStatus string

const (
	StatusPending  ExpenseStatus = "pending"
	StatusApproved ExpenseStatus = "approved"
	StatusRejected ExpenseStatus = "rejected"
)

// Expense represents a financial expense record submitted by a team member.
type Expense struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Status      ExpenseStatus   `json:"status"`
	SubmittedBy int64           `json:"submitted_by"`
	TeamID      int64           `json:"team_id"`
	Merchant    string          `json:"merchant,omitempty"`
	ReceiptPath string          `json:"receipt_path,omitempty"`
	ApprovedBy  *int64          `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
}

// Categories is the canonical expense category list offered in forms and in
// the receipt-extraction prompt. Storage accepts free-form strings; budgets
// match categories by exact string equality.
var Categories = []string{
	"Office Supplies",
	"Travel",
	"Meals & Entertainment",
	"Software & Subscriptions",
	"Equipment",
	"Marketing",
	"Training",
	"Other",
}
