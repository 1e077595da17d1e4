package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
)

var oneHundred = decimal.NewFromInt(100)

// budgetService handles budget-related business logic: CRUD, the spend
// aggregator, and the evaluation pass that turns expense writes into alerts.
type budgetService struct {
	db           *gorm.DB
	alertService AlertServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, alertService AlertServicer) BudgetServicer {
	return &budgetService{db: db, alertService: alertService}
}

// CreateBudget creates a monthly budget. An empty categoryIDs slice creates a
// global budget. Within one (owner, month, year) no two budgets may carry an
// identical category set; creating a duplicate fails with ErrBudgetConflict
// unless replaceExisting is set, in which case the old budget is deleted
// first (which also resets its notification watermark).
func (s *budgetService) CreateBudget(
	userID, name string,
	limit decimal.Decimal,
	month, year int,
	categoryIDs []string,
	replaceExisting bool,
) (*models.Budget, error) {
	if limit.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
	}
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	categories, err := s.loadCategorySet(userID, categoryIDs)
	if err != nil {
		return nil, err
	}

	conflict, err := s.findConflicting(userID, month, year, categoryIDs)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		if !replaceExisting {
			return nil, apperrors.WithMessage(apperrors.ErrBudgetConflict,
				fmt.Sprintf("budget %s (%q) already covers this category set for %d/%d", conflict.ID, conflict.Name, month, year))
		}
		if err := s.db.Select("Categories").Delete(conflict).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	budget := &models.Budget{
		UserID:      userID,
		Name:        name,
		LimitAmount: limit,
		Month:       month,
		Year:        year,
		Categories:  categories,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// loadCategorySet resolves and validates the category ids for a budget.
// Every id must reference a category visible to the user.
func (s *budgetService) loadCategorySet(userID string, categoryIDs []string) ([]models.Category, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	var categories []models.Category
	err := s.db.Scopes(visibleTo(userID)).Where("id IN ?", categoryIDs).Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(categories) != len(uniqueStrings(categoryIDs)) {
		return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "one or more categories not found")
	}
	return categories, nil
}

// findConflicting returns the budget in (owner, month, year) whose category
// set is identical to the given one, or nil.
func (s *budgetService) findConflicting(userID string, month, year int, categoryIDs []string) (*models.Budget, error) {
	var existing []models.Budget
	err := s.db.Preload("Categories").
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Find(&existing).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	want := uniqueStrings(categoryIDs)
	for i := range existing {
		if sameSet(want, existing[i].CategoryIDs()) {
			return &existing[i], nil
		}
	}
	return nil, nil
}

// GetUserBudgets returns a paginated list of the user's budgets, newest
// period first, with their category sets preloaded.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Categories").
		Scopes(pagination.Paginate(page)).
		Order("year DESC, month DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Categories").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates a budget's name and limit. The category set and
// period are fixed after creation; replacing them is done by recreating the
// budget through the conflict flow.
func (s *budgetService) UpdateBudget(userID, budgetID string, name string, limit *decimal.Decimal) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if limit != nil {
		if limit.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
		}
		updates["limit_amount"] = *limit
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// DeleteBudget deletes a budget and its category associations.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Select("Categories").Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress calculates spending vs limit for the budget's month.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	spent, err := s.SumExpenses(userID, budget.Year, budget.Month, budget.CategoryIDs())
	if err != nil {
		return nil, err
	}

	var percentage int64
	if budget.LimitAmount.IsPositive() {
		percentage = spent.Mul(oneHundred).Div(budget.LimitAmount).IntPart()
	}

	return &BudgetProgress{
		BudgetID:   budget.ID,
		Limit:      budget.LimitAmount,
		Spent:      spent,
		Remaining:  budget.LimitAmount.Sub(spent),
		Percentage: percentage,
		Exceeded:   percentage > 100,
	}, nil
}

// SumExpenses totals the user's expense transactions for the given month.
// With a non-empty category set, a transaction counts when its category is in
// the set or its category's parent is; with an empty set every expense of the
// month counts. Returns zero when nothing matches.
func (s *budgetService) SumExpenses(userID string, year, month int, categoryIDs []string) (decimal.Decimal, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	q := s.db.Model(&models.Transaction{}).
		Where("transactions.user_id = ? AND transactions.kind = ?", userID, models.TransactionKindExpense).
		Where("transactions.date >= ? AND transactions.date < ?", from, to)

	if len(categoryIDs) > 0 {
		q = q.Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
			Where("transactions.category_id IN ? OR categories.parent_id IN ?", categoryIDs, categoryIDs)
	}

	var total decimal.NullDecimal
	if err := q.Select("SUM(transactions.amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// EvaluateExpense runs the budget evaluation pass for a just-written expense.
// Every budget of the transaction's (owner, month, year) is checked; affected
// budgets get their spend recomputed and, when a new alert level is reached,
// exactly one alert is emitted and the budget's watermark raised. The
// watermark never decreases, so spending that stays inside an already
// notified band emits nothing.
func (s *budgetService) EvaluateExpense(transaction *models.Transaction) error {
	if transaction.Kind != models.TransactionKindExpense {
		return nil
	}

	var budgets []models.Budget
	err := s.db.Preload("Categories").
		Where("user_id = ? AND month = ? AND year = ?",
			transaction.UserID, int(transaction.Date.Month()), transaction.Date.Year()).
		Find(&budgets).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(budgets) == 0 {
		return nil
	}

	category, err := s.transactionCategory(transaction)
	if err != nil {
		return err
	}

	for i := range budgets {
		budget := &budgets[i]
		if !budgetAffected(budget, category) {
			continue
		}
		if err := s.evaluateBudget(budget); err != nil {
			return err
		}
	}
	return nil
}

// transactionCategory loads the transaction's category with its parent id,
// or nil for uncategorized transactions.
func (s *budgetService) transactionCategory(transaction *models.Transaction) (*models.Category, error) {
	if transaction.CategoryID == nil {
		return nil, nil
	}
	var category models.Category
	if err := s.db.First(&category, "id = ?", *transaction.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// budgetAffected reports whether an expense in the given category impacts
// the budget: global budgets always, category budgets when the category or
// its parent is in the set.
func budgetAffected(budget *models.Budget, category *models.Category) bool {
	if budget.IsGlobal() {
		return true
	}
	if category == nil {
		return false
	}
	for _, c := range budget.Categories {
		if c.ID == category.ID {
			return true
		}
		if category.ParentID != nil && c.ID == *category.ParentID {
			return true
		}
	}
	return false
}

// evaluateBudget recomputes the budget's spend and emits an alert when the
// computed level strictly exceeds the last notified one.
func (s *budgetService) evaluateBudget(budget *models.Budget) error {
	if !budget.LimitAmount.IsPositive() {
		return nil
	}

	spent, err := s.SumExpenses(budget.UserID, budget.Year, budget.Month, budget.CategoryIDs())
	if err != nil {
		return err
	}

	percentage := spent.Mul(oneHundred).Div(budget.LimitAmount).IntPart()
	level := alertLevel(percentage)
	if level == models.AlertLevelNone || level <= budget.LastNotifiedLevel {
		return nil
	}

	title, message := alertText(budget, level, percentage, spent)
	if _, err := s.alertService.Emit(budget.UserID, title, message); err != nil {
		return err
	}

	if err := s.db.Model(budget).Update("last_notified_level", level).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	budget.LastNotifiedLevel = level
	return nil
}

// alertLevel maps a truncated spend percentage to an alert level.
func alertLevel(percentage int64) int {
	switch {
	case percentage >= 100:
		return models.AlertLevelCritical
	case percentage >= 95:
		return models.AlertLevelDanger
	case percentage >= 80:
		return models.AlertLevelWarning
	default:
		return models.AlertLevelNone
	}
}

// alertText builds the user-facing alert for a level crossing.
func alertText(budget *models.Budget, level int, percentage int64, spent decimal.Decimal) (string, string) {
	switch level {
	case models.AlertLevelCritical:
		return fmt.Sprintf("Límite excedido: %s", budget.Name),
			fmt.Sprintf("Has superado tu presupuesto de $%s. Total gastado: $%s (%d%%).",
				budget.LimitAmount.StringFixed(0), spent.StringFixed(0), percentage)
	case models.AlertLevelDanger:
		return fmt.Sprintf("Presupuesto casi agotado: %s", budget.Name),
			fmt.Sprintf("Llevas el %d%% de tu presupuesto de $%s. Total gastado: $%s.",
				percentage, budget.LimitAmount.StringFixed(0), spent.StringFixed(0))
	default:
		return fmt.Sprintf("Atención: %s", budget.Name),
			fmt.Sprintf("Ya usaste el %d%% de tu presupuesto de $%s. Total gastado: $%s.",
				percentage, budget.LimitAmount.StringFixed(0), spent.StringFixed(0))
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
