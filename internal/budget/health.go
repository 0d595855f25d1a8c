package budget

import (
	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/shopspring/decimal"
)

// Health buckets budget usage for display.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthWarning  Health = "warning"
	HealthDanger   Health = "danger"
	HealthCritical Health = "critical"
)

// usageCap keeps extreme overruns displayable.
const usageCap = 150

// Usage returns spent as a percentage of amount, capped at 150%.
func Usage(spent, amount decimal.Decimal) float64 {
	pct := Percent(spent, amount)
	if pct > usageCap {
		return usageCap
	}
	return pct
}

// HealthFor maps a usage percentage to a health bucket.
func HealthFor(usage float64) Health {
	switch {
	case usage <= 60:
		return HealthHealthy
	case usage <= 80:
		return HealthWarning
	case usage <= 100:
		return HealthDanger
	}
	return HealthCritical
}

// HealthMessage returns the status line shown next to the team health gauge.
func HealthMessage(usage float64) string {
	switch {
	case usage <= 60:
		return "Budget on track!"
	case usage <= 80:
		return "Approaching budget limit"
	case usage <= 100:
		return "Near budget limit!"
	}
	return "Budget exceeded!"
}

// TeamUsage returns the mean usage across budgets, the team-wide health
// figure. Returns 0 for an empty slice.
func TeamUsage(budgets []models.Budget) float64 {
	if len(budgets) == 0 {
		return 0
	}
	var total float64
	for i := range budgets {
		total += Usage(budgets[i].Spent, budgets[i].Amount)
	}
	return total / float64(len(budgets))
}
