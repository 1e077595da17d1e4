package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/logger"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
)

// transactionService handles transaction-related business logic. Expense
// writes trigger the budget evaluation pass after commit.
type transactionService struct {
	db            *gorm.DB
	budgetService BudgetServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, budgetService BudgetServicer) TransactionServicer {
	return &transactionService{db: db, budgetService: budgetService}
}

// CreateTransaction records an income or expense. The category, when given,
// must be visible to the user. Expenses run the budget evaluation pass after
// the write; evaluation failures are logged, never propagated, so the
// transaction stands regardless.
func (s *transactionService) CreateTransaction(
	userID string,
	categoryID *string,
	kind models.TransactionKind,
	amount decimal.Decimal,
	description string,
	date time.Time,
) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	if kind != models.TransactionKindIncome && kind != models.TransactionKindExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be income or expense")
	}
	if err := s.checkCategory(userID, categoryID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Date:        date,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.evaluateBudgets(transaction)

	return transaction, nil
}

// checkCategory verifies that a category id references a category visible to
// the user.
func (s *transactionService) checkCategory(userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	var category models.Category
	err := s.db.Scopes(visibleTo(userID)).First(&category, "id = ?", *categoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// evaluateBudgets runs the budget evaluation pass for an expense write.
func (s *transactionService) evaluateBudgets(transaction *models.Transaction) {
	if transaction.Kind != models.TransactionKindExpense {
		return
	}
	if err := s.budgetService.EvaluateExpense(transaction); err != nil {
		logger.Get().Errorw("budget evaluation failed",
			"transaction_id", transaction.ID,
			"user_id", transaction.UserID,
			"error", err)
	}
}

// GetUserTransactions returns a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date < ?", *filter.ToDate)
	}
	if filter.Kind != nil {
		base = base.Where("kind = ?", *filter.Kind)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID returns a transaction by ID if it belongs to the user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction updates the mutable fields of a transaction. Changes to
// an expense re-run the budget evaluation pass, since the amount, category
// or date shift may move a budget across a threshold.
func (s *transactionService) UpdateTransaction(
	userID, transactionID string,
	categoryID *string,
	amount *decimal.Decimal,
	description *string,
	date *time.Time,
) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if categoryID != nil {
		if err := s.checkCategory(userID, categoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *categoryID
		transaction.CategoryID = categoryID
	}
	if amount != nil {
		if amount.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = *amount
		transaction.Amount = *amount
	}
	if description != nil {
		updates["description"] = *description
		transaction.Description = *description
	}
	if date != nil {
		updates["date"] = *date
		transaction.Date = *date
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.evaluateBudgets(transaction)
	}

	return transaction, nil
}

// DeleteTransaction deletes a transaction belonging to the user. Watermarks
// of affected budgets are deliberately left untouched: levels only move up.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetMonthlySummary totals income and expenses for one calendar month.
func (s *transactionService) GetMonthlySummary(userID string, year, month int) (*MonthlySummary, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sumKind := func(kind models.TransactionKind) (decimal.Decimal, error) {
		var total decimal.NullDecimal
		err := s.db.Model(&models.Transaction{}).
			Where("user_id = ? AND kind = ?", userID, kind).
			Where("date >= ? AND date < ?", from, to).
			Select("SUM(amount)").
			Scan(&total).Error
		if err != nil {
			return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !total.Valid {
			return decimal.Zero, nil
		}
		return total.Decimal, nil
	}

	income, err := sumKind(models.TransactionKindIncome)
	if err != nil {
		return nil, err
	}
	expense, err := sumKind(models.TransactionKindExpense)
	if err != nil {
		return nil, err
	}

	return &MonthlySummary{
		Year:    year,
		Month:   month,
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}, nil
}
