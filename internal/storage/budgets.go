package storage

import (
	"database/sql"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/shopspring/decimal"
)

const budgetColumns = `id, name, amount, category, team_id, created_by, period,
	start_date, end_date, alert_threshold, is_active, spent, created_at`

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var b models.Budget
	err := row.Scan(&b.ID, &b.Name, &b.Amount, &b.Category, &b.TeamID,
		&b.CreatedBy, &b.Period, &b.StartDate, &b.EndDate, &b.AlertThreshold,
		&b.IsActive, &b.Spent, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBudgets(rows *sql.Rows) ([]models.Budget, error) {
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// CreateBudget inserts a new budget and returns it with its ID.
func (db *DB) CreateBudget(b *models.Budget) (*models.Budget, error) {
	result, err := db.conn.Exec(`
		INSERT INTO budgets (name, amount, category, team_id, created_by,
			period, start_date, end_date, alert_threshold, is_active, spent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, '0')`,
		b.Name, b.Amount, b.Category, b.TeamID, b.CreatedBy,
		b.Period, b.StartDate, b.EndDate, b.AlertThreshold,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetBudget(id)
}

// GetBudget retrieves a single budget by ID.
func (db *DB) GetBudget(id int64) (*models.Budget, error) {
	return scanBudget(db.conn.QueryRow(
		"SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id,
	))
}

// BudgetWithCreator pairs a budget with its creator's display name.
type BudgetWithCreator struct {
	models.Budget
	CreatorName string
}

// ListTeamBudgets retrieves all budgets for a team, newest first, with
// creator names for display.
func (db *DB) ListTeamBudgets(teamID int64) ([]BudgetWithCreator, error) {
	rows, err := db.conn.Query(`
		SELECT b.id, b.name, b.amount, b.category, b.team_id, b.created_by,
			b.period, b.start_date, b.end_date, b.alert_threshold, b.is_active,
			b.spent, b.created_at, COALESCE(u.name, 'Unknown User')
		FROM budgets b
		LEFT JOIN users u ON u.id = b.created_by
		WHERE b.team_id = ?
		ORDER BY b.id DESC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []BudgetWithCreator
	for rows.Next() {
		var b BudgetWithCreator
		err := rows.Scan(&b.ID, &b.Name, &b.Amount, &b.Category, &b.TeamID,
			&b.CreatedBy, &b.Period, &b.StartDate, &b.EndDate, &b.AlertThreshold,
			&b.IsActive, &b.Spent, &b.CreatedAt, &b.CreatorName)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ActiveBudgets retrieves a team's active budgets, newest first.
func (db *DB) ActiveBudgets(teamID int64) ([]models.Budget, error) {
	rows, err := db.conn.Query(
		"SELECT "+budgetColumns+" FROM budgets WHERE team_id = ? AND is_active = 1 ORDER BY id DESC",
		teamID,
	)
	if err != nil {
		return nil, err
	}
	return collectBudgets(rows)
}

// DeactivateBudget marks a budget inactive. Inactive budgets no longer match
// expenses or produce alerts.
func (db *DB) DeactivateBudget(id int64) error {
	_, err := db.conn.Exec("UPDATE budgets SET is_active = 0 WHERE id = ?", id)
	return err
}

const alertColumns = "id, budget_id, user_id, alert_type, percentage, message, is_read, created_at"

func scanAlert(row interface{ Scan(...any) error }) (*models.BudgetAlert, error) {
	var a models.BudgetAlert
	err := row.Scan(&a.ID, &a.BudgetID, &a.UserID, &a.Type, &a.Percentage,
		&a.Message, &a.IsRead, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAlert retrieves a single alert by ID.
func (db *DB) GetAlert(id int64) (*models.BudgetAlert, error) {
	return scanAlert(db.conn.QueryRow(
		"SELECT "+alertColumns+" FROM budget_alerts WHERE id = ?", id,
	))
}

// ListUserAlerts retrieves the alerts addressed to a user, newest first.
func (db *DB) ListUserAlerts(userID int64) ([]models.BudgetAlert, error) {
	rows, err := db.conn.Query(
		"SELECT "+alertColumns+" FROM budget_alerts WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.BudgetAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead flips an alert to read.
func (db *DB) MarkAlertRead(id int64) error {
	_, err := db.conn.Exec("UPDATE budget_alerts SET is_read = 1 WHERE id = ?", id)
	return err
}

// ActiveBudgets retrieves a team's active budgets within the transaction.
func (tx *Tx) ActiveBudgets(teamID int64) ([]models.Budget, error) {
	rows, err := tx.tx.Query(
		"SELECT "+budgetColumns+" FROM budgets WHERE team_id = ? AND is_active = 1 ORDER BY id",
		teamID,
	)
	if err != nil {
		return nil, err
	}
	return collectBudgets(rows)
}

// SetBudgetSpent persists a budget's new running total.
func (tx *Tx) SetBudgetSpent(budgetID int64, spent decimal.Decimal) error {
	_, err := tx.tx.Exec("UPDATE budgets SET spent = ? WHERE id = ?", spent, budgetID)
	return err
}

// RecentAlerts retrieves the n most recent alerts for a budget.
func (tx *Tx) RecentAlerts(budgetID int64, n int) ([]models.BudgetAlert, error) {
	rows, err := tx.tx.Query(
		"SELECT "+alertColumns+" FROM budget_alerts WHERE budget_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		budgetID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.BudgetAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// CreateAlert inserts a new unread budget alert.
func (tx *Tx) CreateAlert(budgetID, userID int64, alertType models.AlertType, percentage int, message string, createdAt time.Time) error {
	_, err := tx.tx.Exec(`
		INSERT INTO budget_alerts (budget_id, user_id, alert_type, percentage, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		budgetID, userID, alertType, percentage, message, createdAt,
	)
	return err
}
