package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
	"github.com/alvarovalenzuelac/presuapp/internal/testutil"
)

func TestCreateTransaction(t *testing.T) {
	t.Run("valid_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		svc := NewTransactionService(db, NewBudgetService(db, alerts))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db)

		tx, err := svc.CreateTransaction(user.ID, &cat.ID, models.TransactionKindExpense,
			dec(t, "4990"), "almuerzo", time.Now())
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected non-empty transaction ID")
		}
		if !tx.Amount.Equal(dec(t, "4990")) {
			t.Errorf("expected amount 4990, got %s", tx.Amount)
		}
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateTransaction(user.ID, nil, models.TransactionKindExpense,
			decimal.Zero, "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")

		_, err = svc.CreateTransaction(user.ID, nil, models.TransactionKindExpense,
			dec(t, "-100"), "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})

	t.Run("rejects_unknown_kind", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateTransaction(user.ID, nil, models.TransactionKind("transfer"),
			dec(t, "100"), "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects_invisible_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		private := testutil.CreateTestCategoryNamed(t, db, "Privada", &other.ID, nil)

		_, err := svc.CreateTransaction(user.ID, &private.ID, models.TransactionKindExpense,
			dec(t, "100"), "", time.Now())
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("expense_triggers_budget_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		svc := NewTransactionService(db, NewBudgetService(db, alerts))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, user.ID, "1000")

		_, err := svc.CreateTransaction(user.ID, nil, models.TransactionKindExpense,
			dec(t, "900"), "", time.Now())
		testutil.AssertNoError(t, err)

		if n := countAlerts(t, alerts, user.ID); n != 1 {
			t.Errorf("expected expense write to trigger one alert, got %d", n)
		}
	})

	t.Run("income_does_not_trigger_alerts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		svc := NewTransactionService(db, NewBudgetService(db, alerts))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, user.ID, "1000")

		_, err := svc.CreateTransaction(user.ID, nil, models.TransactionKindIncome,
			dec(t, "99999"), "", time.Now())
		testutil.AssertNoError(t, err)

		if n := countAlerts(t, alerts, user.ID); n != 0 {
			t.Errorf("expected income to trigger nothing, got %d alerts", n)
		}
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("amount_change_reevaluates_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		svc := NewTransactionService(db, NewBudgetService(db, alerts))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudget(t, db, user.ID, "1000")

		tx, err := svc.CreateTransaction(user.ID, nil, models.TransactionKindExpense,
			dec(t, "100"), "", time.Now())
		testutil.AssertNoError(t, err)
		if n := countAlerts(t, alerts, user.ID); n != 0 {
			t.Fatalf("expected no alerts at 10%%, got %d", n)
		}

		bigger := dec(t, "900")
		_, err = svc.UpdateTransaction(user.ID, tx.ID, nil, &bigger, nil, nil)
		testutil.AssertNoError(t, err)

		if n := countAlerts(t, alerts, user.ID); n != 1 {
			t.Errorf("expected the raised amount to trigger an alert, got %d", n)
		}
	})

	t.Run("owner_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		tx := testutil.CreateTestExpense(t, db, owner.ID, nil, "100")

		desc := "hacked"
		_, err := svc.UpdateTransaction(intruder.ID, tx.ID, nil, nil, &desc, nil)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestGetUserTransactions(t *testing.T) {
	t.Run("filters_by_kind_and_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)

		june := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
		may := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindExpense, "100", june)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindIncome, "200", june)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindExpense, "300", may)

		from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		kind := models.TransactionKindExpense
		page, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{},
			TransactionFilter{FromDate: &from, ToDate: &to, Kind: &kind})
		testutil.AssertNoError(t, err)

		if page.TotalItems != 1 {
			t.Errorf("expected 1 filtered transaction, got %d", page.TotalItems)
		}
	})
}

func TestGetMonthlySummary(t *testing.T) {
	t.Run("totals_and_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)

		june := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindIncome, "500000", june)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindExpense, "120000", june)
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionKindExpense, "30000", june)

		summary, err := svc.GetMonthlySummary(user.ID, 2026, 6)
		testutil.AssertNoError(t, err)

		if !summary.Income.Equal(dec(t, "500000")) {
			t.Errorf("expected income 500000, got %s", summary.Income)
		}
		if !summary.Expense.Equal(dec(t, "150000")) {
			t.Errorf("expected expense 150000, got %s", summary.Expense)
		}
		if !summary.Balance.Equal(dec(t, "350000")) {
			t.Errorf("expected balance 350000, got %s", summary.Balance)
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetService(db, NewAlertService(db)))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetMonthlySummary(user.ID, 2026, 13)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
