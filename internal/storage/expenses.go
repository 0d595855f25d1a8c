package storage

import (
	"database/sql"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/shopspring/decimal"
)

const expenseColumns = `id, amount, description, category, date, status,
	submitted_by, team_id, merchant, receipt_path, approved_by, approved_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Description, &e.Category, &e.Date,
		&e.Status, &e.SubmittedBy, &e.TeamID, &e.Merchant, &e.ReceiptPath,
		&e.ApprovedBy, &e.ApprovedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// CreateExpense inserts a new pending expense and returns it with its ID.
func (db *DB) CreateExpense(e *models.Expense) (*models.Expense, error) {
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	if e.Status == "" {
		e.Status = models.StatusPending
	}

	result, err := db.conn.Exec(`
		INSERT INTO expenses (amount, description, category, date, status,
			submitted_by, team_id, merchant, receipt_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Amount, e.Description, e.Category, e.Date, e.Status,
		e.SubmittedBy, e.TeamID, e.Merchant, e.ReceiptPath,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetExpense(id)
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(id int64) (*models.Expense, error) {
	return scanExpense(db.conn.QueryRow(
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id,
	))
}

// ListTeamExpenses retrieves all expenses for a team, newest first.
func (db *DB) ListTeamExpenses(teamID int64) ([]models.Expense, error) {
	rows, err := db.conn.Query(
		"SELECT "+expenseColumns+" FROM expenses WHERE team_id = ? ORDER BY date DESC, id DESC",
		teamID,
	)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// ListUserExpenses retrieves expenses submitted by a user, newest first.
func (db *DB) ListUserExpenses(userID int64) ([]models.Expense, error) {
	rows, err := db.conn.Query(
		"SELECT "+expenseColumns+" FROM expenses WHERE submitted_by = ? ORDER BY date DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// CategoryTotal holds aggregate spending for one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// GetCategoryTotalsByMonth aggregates a team's approved spend per category
// for the given month.
func (db *DB) GetCategoryTotalsByMonth(teamID int64, year, month int) ([]CategoryTotal, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := db.conn.Query(`
		SELECT category, SUM(CAST(amount AS REAL)), COUNT(*)
		FROM expenses
		WHERE team_id = ? AND status = 'approved' AND date >= ? AND date < ?
		GROUP BY category
		ORDER BY SUM(CAST(amount AS REAL)) DESC`,
		teamID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		var total float64
		if err := rows.Scan(&ct.Category, &total, &ct.Count); err != nil {
			return nil, err
		}
		ct.Total = decimal.NewFromFloat(total)
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// GetExpensesByMonth retrieves a team's expenses for the given month, newest first.
func (db *DB) GetExpensesByMonth(teamID int64, year, month int) ([]models.Expense, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := db.conn.Query(
		"SELECT "+expenseColumns+" FROM expenses WHERE team_id = ? AND date >= ? AND date < ? ORDER BY date DESC, id DESC",
		teamID, start, end,
	)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

// GetExpense retrieves a single expense by ID within the transaction.
func (tx *Tx) GetExpense(id int64) (*models.Expense, error) {
	return scanExpense(tx.tx.QueryRow(
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id,
	))
}

// SetExpenseStatus records an approval decision. The expense must still be
// pending; the guard prevents double-applying an expense to budgets.
func (tx *Tx) SetExpenseStatus(id int64, status models.ExpenseStatus, approvedBy int64, approvedAt time.Time) error {
	result, err := tx.tx.Exec(
		"UPDATE expenses SET status = ?, approved_by = ?, approved_at = ? WHERE id = ? AND status = 'pending'",
		status, approvedBy, approvedAt, id,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
