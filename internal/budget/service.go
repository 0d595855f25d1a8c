package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/apperr"
	"github.com/CrypticFlow/SmartExpense/internal/models"
	"github.com/CrypticFlow/SmartExpense/internal/storage"

	"github.com/shopspring/decimal"
)

// Service orchestrates expense approval and the budget walk that follows it.
type Service struct {
	db *storage.DB
}

// NewService creates a budget service backed by db.
func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// Update reports one budget touched by an applied expense.
type Update struct {
	BudgetID int64
	NewSpent decimal.Decimal
	Alerted  bool
}

// Approve transitions a pending expense to approved and applies its amount
// to every active budget it is scoped to, all within one transaction. The
// acting user must be an admin or manager, and the expense must still be
// pending: approved and rejected are terminal states, so an expense can
// never be counted against budgets twice.
func (s *Service) Approve(ctx context.Context, actor *models.User, expenseID int64) ([]Update, error) {
	if actor == nil {
		return nil, apperr.NotAuthenticated()
	}
	if !actor.Role.CanApprove() {
		return nil, apperr.Unauthorized("only admins and managers can approve expenses")
	}

	now := time.Now()
	var updates []Update
	err := s.db.Transact(ctx, func(tx *storage.Tx) error {
		expense, err := tx.GetExpense(expenseID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("expense")
		}
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}
		if expense.Status != models.StatusPending {
			return apperr.Invalid("expense is not pending")
		}

		if err := tx.SetExpenseStatus(expenseID, models.StatusApproved, actor.ID, now); err != nil {
			return fmt.Errorf("approve expense: %w", err)
		}

		updates, err = applyExpense(tx, expense.Amount, expense.Category, expense.TeamID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// Reject transitions a pending expense to rejected. Rejected spend is never
// counted, so no budget is touched.
func (s *Service) Reject(ctx context.Context, actor *models.User, expenseID int64) error {
	if actor == nil {
		return apperr.NotAuthenticated()
	}
	if !actor.Role.CanApprove() {
		return apperr.Unauthorized("only admins and managers can reject expenses")
	}

	now := time.Now()
	return s.db.Transact(ctx, func(tx *storage.Tx) error {
		expense, err := tx.GetExpense(expenseID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("expense")
		}
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}
		if expense.Status != models.StatusPending {
			return apperr.Invalid("expense is not pending")
		}

		if err := tx.SetExpenseStatus(expenseID, models.StatusRejected, actor.ID, now); err != nil {
			return fmt.Errorf("reject expense: %w", err)
		}
		return nil
	})
}

// applyExpense increments every active budget the expense is scoped to:
// budgets whose category equals the expense category exactly, and general
// budgets with no category. A single expense can count against both kinds
// at once; a category budget and an overall team budget track the same
// spend independently. Each touched budget is then checked for an alert.
func applyExpense(tx *storage.Tx, amount decimal.Decimal, category string, teamID int64, now time.Time) ([]Update, error) {
	if !amount.IsPositive() {
		return nil, apperr.Invalid("expense amount must be positive")
	}

	budgets, err := tx.ActiveBudgets(teamID)
	if err != nil {
		return nil, fmt.Errorf("load active budgets: %w", err)
	}

	var updates []Update
	for i := range budgets {
		b := &budgets[i]
		if !b.Matches(category) {
			continue
		}

		newSpent := b.Spent.Add(amount)
		if err := tx.SetBudgetSpent(b.ID, newSpent); err != nil {
			return nil, fmt.Errorf("update budget %d: %w", b.ID, err)
		}

		alerted, err := raiseAlert(tx, b, newSpent, now)
		if err != nil {
			return nil, err
		}

		updates = append(updates, Update{BudgetID: b.ID, NewSpent: newSpent, Alerted: alerted})
	}
	return updates, nil
}

// raiseAlert records an alert for a budget update unless an alert of the
// same type already exists within the dedup window. The recipient is the
// budget's creator, not the expense submitter.
func raiseAlert(tx *storage.Tx, b *models.Budget, newSpent decimal.Decimal, now time.Time) (bool, error) {
	decision := Evaluate(b, newSpent)
	if decision == nil {
		return false, nil
	}

	recent, err := tx.RecentAlerts(b.ID, recentAlertLimit)
	if err != nil {
		return false, fmt.Errorf("load recent alerts: %w", err)
	}
	if Suppressed(recent, decision.Type, now) {
		return false, nil
	}

	err = tx.CreateAlert(b.ID, b.CreatedBy, decision.Type, decision.Percentage, decision.Message, now)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	return true, nil
}

// CreateInput carries the fields for creating a budget.
type CreateInput struct {
	Name           string
	Amount         decimal.Decimal
	Category       string
	Period         models.BudgetPeriod
	StartDate      time.Time
	AlertThreshold int
}

// Create validates and stores a new budget for the actor's team. The end
// date is derived from the start date and period at creation time and is
// not recomputed later.
func (s *Service) Create(actor *models.User, in CreateInput) (*models.Budget, error) {
	if actor == nil {
		return nil, apperr.NotAuthenticated()
	}
	if !actor.Role.CanManageTeam() {
		return nil, apperr.Unauthorized("only admins and managers can create budgets")
	}
	if in.Name == "" {
		return nil, apperr.Invalid("budget name is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Invalid("budget amount must be positive")
	}
	if !in.Period.Valid() {
		return nil, apperr.Invalid("unknown budget period %q", in.Period)
	}
	if in.AlertThreshold < 1 || in.AlertThreshold > 100 {
		return nil, apperr.Invalid("alert threshold must be between 1 and 100")
	}

	return s.db.CreateBudget(&models.Budget{
		Name:           in.Name,
		Amount:         in.Amount,
		Category:       in.Category,
		TeamID:         actor.TeamID,
		CreatedBy:      actor.ID,
		Period:         in.Period,
		StartDate:      in.StartDate,
		EndDate:        in.Period.EndDate(in.StartDate),
		AlertThreshold: in.AlertThreshold,
	})
}

// Deactivate marks a budget inactive. Only members of the owning team may
// deactivate it. Deactivation is terminal for alerting purposes.
func (s *Service) Deactivate(actor *models.User, budgetID int64) error {
	if actor == nil {
		return apperr.NotAuthenticated()
	}

	b, err := s.db.GetBudget(budgetID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("budget")
	}
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	if b.TeamID != actor.TeamID {
		return apperr.Unauthorized("budget belongs to another team")
	}

	return s.db.DeactivateBudget(budgetID)
}

// MarkAlertRead flips an alert to read. Only the alert's recipient may do so.
func (s *Service) MarkAlertRead(actor *models.User, alertID int64) error {
	if actor == nil {
		return apperr.NotAuthenticated()
	}

	a, err := s.db.GetAlert(alertID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("alert")
	}
	if err != nil {
		return fmt.Errorf("load alert: %w", err)
	}
	if a.UserID != actor.ID {
		return apperr.Unauthorized("alert belongs to another user")
	}

	return s.db.MarkAlertRead(alertID)
}
