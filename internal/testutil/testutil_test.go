package testutil_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "categories", "transactions", "budgets", "alerts", "conversation_sessions", "message_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}

	withPhone := testutil.CreateTestUserWithPhone(t, db, "+56911112222")
	if withPhone.Phone == nil || *withPhone.Phone != "+56911112222" {
		t.Error("expected phone to be set")
	}

	root := testutil.CreateTestCategory(t, db)
	if !root.IsGlobal() || !root.IsRoot() {
		t.Error("expected a global root category")
	}

	child := testutil.CreateTestChildCategory(t, db, root.ID)
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Error("expected child to reference its parent")
	}

	tx := testutil.CreateTestExpense(t, db, user.ID, &child.ID, "1500.50")
	if !tx.Amount.Equal(decimal.RequireFromString("1500.50")) {
		t.Errorf("expected amount 1500.50, got %s", tx.Amount)
	}
	if tx.Kind != models.TransactionKindExpense {
		t.Errorf("expected expense, got %s", tx.Kind)
	}

	budget := testutil.CreateTestBudget(t, db, user.ID, "10000", *root)
	if !budget.LimitAmount.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected limit 10000, got %s", budget.LimitAmount)
	}
	if len(budget.Categories) != 1 {
		t.Errorf("expected one linked category, got %d", len(budget.Categories))
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrBudgetNotFound, "custom message")
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
