package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ExpenseTestSuite struct {
	suite.Suite
	db   *DB
	team *models.Team
	user *models.User
}

func (suite *ExpenseTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	suite.team, err = db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	suite.user, err = db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, suite.team.ID)
	require.NoError(suite.T(), err)
}

func (suite *ExpenseTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ExpenseTestSuite) newExpense(amount string) *models.Expense {
	return &models.Expense{
		Amount:      decimal.RequireFromString(amount),
		Description: "Team lunch",
		Category:    "Meals & Entertainment",
		SubmittedBy: suite.user.ID,
		TeamID:      suite.team.ID,
	}
}

func (suite *ExpenseTestSuite) TestCreateExpenseDefaults() {
	e, err := suite.db.CreateExpense(suite.newExpense("42.50"))
	require.NoError(suite.T(), err)

	assert.NotZero(suite.T(), e.ID)
	assert.Equal(suite.T(), models.StatusPending, e.Status)
	assert.Equal(suite.T(), "42.5", e.Amount.String())
	assert.WithinDuration(suite.T(), time.Now(), e.Date, time.Minute)
	assert.Nil(suite.T(), e.ApprovedBy)
	assert.Nil(suite.T(), e.ApprovedAt)
}

func (suite *ExpenseTestSuite) TestCreateExpenseKeepsProvidedDate() {
	in := suite.newExpense("10")
	in.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	e, err := suite.db.CreateExpense(in)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2026-03-10", e.Date.Format("2006-01-02"))
}

func (suite *ExpenseTestSuite) TestListTeamExpensesNewestFirst() {
	first := suite.newExpense("10")
	first.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := suite.db.CreateExpense(first)
	require.NoError(suite.T(), err)

	second := suite.newExpense("20")
	second.Date = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	_, err = suite.db.CreateExpense(second)
	require.NoError(suite.T(), err)

	expenses, err := suite.db.ListTeamExpenses(suite.team.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 2)
	assert.Equal(suite.T(), "20", expenses[0].Amount.String())
	assert.Equal(suite.T(), "10", expenses[1].Amount.String())
}

func (suite *ExpenseTestSuite) TestListUserExpensesScoped() {
	other, err := suite.db.CreateUser("Bob", "bob@example.com", "hash", models.RoleEmployee, suite.team.ID)
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateExpense(suite.newExpense("10"))
	require.NoError(suite.T(), err)

	theirs := suite.newExpense("20")
	theirs.SubmittedBy = other.ID
	_, err = suite.db.CreateExpense(theirs)
	require.NoError(suite.T(), err)

	mine, err := suite.db.ListUserExpenses(suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), mine, 1)
	assert.Equal(suite.T(), "10", mine[0].Amount.String())
}

func (suite *ExpenseTestSuite) TestSetExpenseStatusRequiresPending() {
	e, err := suite.db.CreateExpense(suite.newExpense("10"))
	require.NoError(suite.T(), err)

	ctx := context.Background()
	err = suite.db.Transact(ctx, func(tx *Tx) error {
		return tx.SetExpenseStatus(e.ID, models.StatusApproved, suite.user.ID, time.Now())
	})
	require.NoError(suite.T(), err)

	// The pending guard refuses to touch a decided expense
	err = suite.db.Transact(ctx, func(tx *Tx) error {
		return tx.SetExpenseStatus(e.ID, models.StatusRejected, suite.user.ID, time.Now())
	})
	assert.ErrorIs(suite.T(), err, sql.ErrNoRows)

	got, err := suite.db.GetExpense(e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusApproved, got.Status)
}

func (suite *ExpenseTestSuite) TestTransactRollsBackOnError() {
	e, err := suite.db.CreateExpense(suite.newExpense("10"))
	require.NoError(suite.T(), err)

	boom := assert.AnError
	err = suite.db.Transact(context.Background(), func(tx *Tx) error {
		if err := tx.SetExpenseStatus(e.ID, models.StatusApproved, suite.user.ID, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)

	got, err := suite.db.GetExpense(e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPending, got.Status)
}

func (suite *ExpenseTestSuite) TestCategoryTotalsCountApprovedOnly() {
	approve := func(amount, category string) {
		in := suite.newExpense(amount)
		in.Category = category
		in.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		e, err := suite.db.CreateExpense(in)
		require.NoError(suite.T(), err)
		err = suite.db.Transact(context.Background(), func(tx *Tx) error {
			return tx.SetExpenseStatus(e.ID, models.StatusApproved, suite.user.ID, time.Now())
		})
		require.NoError(suite.T(), err)
	}

	approve("100", "Travel")
	approve("50", "Travel")
	approve("30", "Equipment")

	// Pending spend in the same month is excluded
	pending := suite.newExpense("999")
	pending.Category = "Travel"
	pending.Date = time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	_, err := suite.db.CreateExpense(pending)
	require.NoError(suite.T(), err)

	totals, err := suite.db.GetCategoryTotalsByMonth(suite.team.ID, 2026, 3)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 2)
	assert.Equal(suite.T(), "Travel", totals[0].Category)
	assert.Equal(suite.T(), "150", totals[0].Total.String())
	assert.Equal(suite.T(), 2, totals[0].Count)
	assert.Equal(suite.T(), "Equipment", totals[1].Category)
}

func (suite *ExpenseTestSuite) TestGetExpensesByMonthWindow() {
	inMonth := suite.newExpense("10")
	inMonth.Date = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	_, err := suite.db.CreateExpense(inMonth)
	require.NoError(suite.T(), err)

	nextMonth := suite.newExpense("20")
	nextMonth.Date = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = suite.db.CreateExpense(nextMonth)
	require.NoError(suite.T(), err)

	expenses, err := suite.db.GetExpensesByMonth(suite.team.ID, 2026, 3)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), "10", expenses[0].Amount.String())
}

func TestExpenseSuite(t *testing.T) {
	suite.Run(t, new(ExpenseTestSuite))
}
