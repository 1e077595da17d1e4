package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName, phone string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	ResolveUserByPhone(phone string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name, icon string, parentID *string) (*models.Category, error)
	GetCategoryTree(userID string) ([]models.Category, error)
	GetRootCategories(userID string) ([]models.Category, error)
	GetChildCategories(userID, parentID string) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	FindDefaultChild(userID, parentID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, icon string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Kind       *models.TransactionKind
	CategoryID *string
}

// MonthlySummary aggregates a user's income, expenses and balance for one month.
type MonthlySummary struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, categoryID *string, kind models.TransactionKind, amount decimal.Decimal, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, categoryID *string, amount *decimal.Decimal, description *string, date *time.Time) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetMonthlySummary(userID string, year, month int) (*MonthlySummary, error)
}

// BudgetProgress contains spending vs limit data for a budget's month.
// Percentage is truncated to a whole number, matching the alert thresholds.
type BudgetProgress struct {
	BudgetID   string          `json:"budget_id"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage int64           `json:"percentage"`
	Exceeded   bool            `json:"exceeded"`
}

// BudgetServicer defines the contract for budget-related business logic,
// including the spend aggregator and the evaluation pass that runs after
// every expense write.
type BudgetServicer interface {
	CreateBudget(userID, name string, limit decimal.Decimal, month, year int, categoryIDs []string, replaceExisting bool) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, name string, limit *decimal.Decimal) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
	SumExpenses(userID string, year, month int, categoryIDs []string) (decimal.Decimal, error)
	EvaluateExpense(transaction *models.Transaction) error
}

// AlertServicer defines the contract for alert creation and retrieval.
type AlertServicer interface {
	Emit(userID, title, message string) (*models.Alert, error)
	GetUserAlerts(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Alert], error)
	MarkRead(userID, alertID string) error
}
