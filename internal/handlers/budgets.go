package handlers

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/apperr"
	"github.com/CrypticFlow/SmartExpense/internal/budget"
	"github.com/CrypticFlow/SmartExpense/internal/models"
	"github.com/CrypticFlow/SmartExpense/internal/storage"

	"github.com/shopspring/decimal"
)

// BudgetItem represents a budget card in the budgets view.
type BudgetItem struct {
	storage.BudgetWithCreator
	UsagePercent  int
	Health        budget.Health
	Remaining     decimal.Decimal
	CategoryStyle CategoryStyle
	CategoryLabel string
}

// AlertItem represents an alert row in the budgets view.
type AlertItem struct {
	models.BudgetAlert
	Age string
}

// BudgetsViewModel is the data passed to the budgets view template.
type BudgetsViewModel struct {
	Budgets       []BudgetItem
	Alerts        []AlertItem
	UnreadAlerts  int
	TeamUsage     int
	TeamHealth    budget.Health
	HealthMessage string
	CanManage     bool
}

// ListBudgets renders the team's budgets with usage, health and the
// current user's alerts.
func (h *Handlers) ListBudgets(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	budgets, err := h.db.ListTeamBudgets(user.TeamID)
	if err != nil {
		log.Printf("ListTeamBudgets error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	alerts, err := h.db.ListUserAlerts(user.ID)
	if err != nil {
		log.Printf("ListUserAlerts error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]BudgetItem, 0, len(budgets))
	var active []models.Budget
	for _, b := range budgets {
		usage := budget.Usage(b.Spent, b.Amount)
		label := b.Category
		if label == "" {
			label = "All categories"
		}
		items = append(items, BudgetItem{
			BudgetWithCreator: b,
			UsagePercent:      int(math.Round(usage)),
			Health:            budget.HealthFor(usage),
			Remaining:         b.Amount.Sub(b.Spent),
			CategoryStyle:     getCategoryStyle(b.Category),
			CategoryLabel:     label,
		})
		if b.IsActive {
			active = append(active, b.Budget)
		}
	}

	alertItems := make([]AlertItem, 0, len(alerts))
	unread := 0
	for _, a := range alerts {
		if !a.IsRead {
			unread++
		}
		alertItems = append(alertItems, AlertItem{
			BudgetAlert: a,
			Age:         formatAge(a.CreatedAt),
		})
	}

	teamUsage := budget.TeamUsage(active)
	h.render(w, r, "budgets.html", BudgetsViewModel{
		Budgets:       items,
		Alerts:        alertItems,
		UnreadAlerts:  unread,
		TeamUsage:     int(math.Round(teamUsage)),
		TeamHealth:    budget.HealthFor(teamUsage),
		HealthMessage: budget.HealthMessage(teamUsage),
		CanManage:     user.Role.CanManageTeam(),
	})
}

// BudgetFormViewModel is the data passed to the budget form template.
type BudgetFormViewModel struct {
	Categories []CategoryDef
	Error      string
	StartDate  string
}

// CreateBudgetForm renders the form to create a new budget.
func (h *Handlers) CreateBudgetForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "budget_form.html", BudgetFormViewModel{
		Categories: categories,
		StartDate:  time.Now().Format("2006-01-02"),
	})
}

// CreateBudget handles the creation of a new budget.
func (h *Handlers) CreateBudget(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	input, err := parseBudgetForm(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if _, err := h.budgets.Create(user, input); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/budgets", "target":"#content"}`)
}

// DeactivateBudget marks a budget inactive.
func (h *Handlers) DeactivateBudget(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err := h.budgets.Deactivate(user, id); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/budgets", "target":"#content"}`)
}

// MarkAlertRead flips one of the current user's alerts to read.
func (h *Handlers) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err := h.budgets.MarkAlertRead(user, id); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("HX-Location", `{"path":"/budgets", "target":"#content"}`)
}

func parseBudgetForm(r *http.Request) (budget.CreateInput, error) {
	if err := r.ParseForm(); err != nil {
		return budget.CreateInput{}, apperr.Invalid("invalid form submission")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		return budget.CreateInput{}, apperr.Invalid("amount must be a number")
	}

	threshold, err := strconv.Atoi(r.FormValue("alert_threshold"))
	if err != nil {
		return budget.CreateInput{}, apperr.Invalid("alert threshold must be a number")
	}

	startDate, err := time.Parse("2006-01-02", r.FormValue("start_date"))
	if err != nil {
		return budget.CreateInput{}, apperr.Invalid("invalid start date")
	}

	return budget.CreateInput{
		Name:           strings.TrimSpace(r.FormValue("name")),
		Amount:         amount,
		Category:       r.FormValue("category"),
		Period:         models.BudgetPeriod(r.FormValue("period")),
		StartDate:      startDate,
		AlertThreshold: threshold,
	}, nil
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	}
	return t.Format("Jan 02")
}
