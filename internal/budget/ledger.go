// Package budget implements the budget ledger: applying approved expenses to
// matching budgets, raising threshold/exceeded alerts, and deriving budget
// health for display.
package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// dedupWindow suppresses repeat alerts of the same type per budget.
	dedupWindow = 24 * time.Hour
	// recentAlertLimit bounds how many past alerts the suppression check reads.
	recentAlertLimit = 5
)

var hundred = decimal.NewFromInt(100)

// Percent returns spent as a percentage of amount.
func Percent(spent, amount decimal.Decimal) float64 {
	if !amount.IsPositive() {
		return 0
	}
	return spent.Div(amount).Mul(hundred).InexactFloat64()
}

// AlertDecision is a candidate alert for one budget update.
type AlertDecision struct {
	Type       models.AlertType
	Percentage int
	Message    string
}

// Evaluate decides which alert, if any, a budget update calls for. Exceeded
// takes priority over threshold; the two are mutually exclusive per update.
// Returns nil when spend is below the alert threshold.
func Evaluate(b *models.Budget, newSpent decimal.Decimal) *AlertDecision {
	pct := Percent(newSpent, b.Amount)
	rounded := int(math.Round(pct))

	if pct >= 100 {
		return &AlertDecision{
			Type:       models.AlertExceeded,
			Percentage: rounded,
			Message:    fmt.Sprintf("Budget %q has been exceeded by %d%%", b.Name, int(math.Round(pct-100))),
		}
	}
	if pct >= float64(b.AlertThreshold) {
		return &AlertDecision{
			Type:       models.AlertThreshold,
			Percentage: rounded,
			Message:    fmt.Sprintf("Budget %q has reached %d%% of its limit", b.Name, rounded),
		}
	}
	return nil
}

// Suppressed reports whether a candidate alert should be dropped because an
// alert of the same type was already recorded within the dedup window.
// recent must be ordered newest first.
func Suppressed(recent []models.BudgetAlert, candidate models.AlertType, now time.Time) bool {
	for _, a := range recent {
		if a.Type == candidate && now.Sub(a.CreatedAt) < dedupWindow {
			return true
		}
	}
	return false
}
