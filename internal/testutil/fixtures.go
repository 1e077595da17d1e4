package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alvarovalenzuelac/presuapp/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestUserWithPhone creates a user with the given phone number.
func CreateTestUserWithPhone(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("phone", phone).Error; err != nil {
		t.Fatalf("failed to set test user phone: %v", err)
	}
	user.Phone = &phone
	return user
}

// CreateTestCategory creates a global root category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	name := fmt.Sprintf("Category %d", nextID())
	return CreateTestCategoryNamed(t, db, name, nil, nil)
}

// CreateTestChildCategory creates a global category under the given parent.
func CreateTestChildCategory(t *testing.T, db *gorm.DB, parentID string) *models.Category {
	t.Helper()
	name := fmt.Sprintf("Subcategory %d", nextID())
	return CreateTestCategoryNamed(t, db, name, nil, &parentID)
}

// CreateTestCategoryNamed creates a category with explicit name, owner and parent.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, name string, userID, parentID *string) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     name,
		UserID:   userID,
		ParentID: parentID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense creates an expense transaction dated now.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, categoryID *string, amount string) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, userID, categoryID, models.TransactionKindExpense, amount, time.Now())
}

// CreateTestTransaction creates a transaction with the given kind, amount and date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, categoryID *string, kind models.TransactionKind, amount string, date time.Time) *models.Transaction {
	t.Helper()

	value, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("invalid test amount %q: %v", amount, err)
	}

	transaction := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Kind:       kind,
		Amount:     value,
		Date:       date,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestBudget creates a budget for the current month with the given
// limit and category set (empty set = global budget).
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, limit string, categories ...models.Category) *models.Budget {
	t.Helper()

	now := time.Now()
	return CreateTestBudgetForMonth(t, db, userID, limit, now.Year(), int(now.Month()), categories...)
}

// CreateTestBudgetForMonth creates a budget for an explicit month and year.
func CreateTestBudgetForMonth(t *testing.T, db *gorm.DB, userID, limit string, year, month int, categories ...models.Category) *models.Budget {
	t.Helper()

	value, err := decimal.NewFromString(limit)
	if err != nil {
		t.Fatalf("invalid test limit %q: %v", limit, err)
	}

	budget := &models.Budget{
		UserID:      userID,
		Name:        fmt.Sprintf("Budget %d", nextID()),
		LimitAmount: value,
		Month:       month,
		Year:        year,
		Categories:  categories,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
