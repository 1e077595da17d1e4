package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
)

// BudgetHandler handles budget-related requests
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// A budget covering the same category set as an existing one for the same
// month fails with BUDGET_CONFLICT unless ReplaceExisting is set, which
// deletes the old budget first.
type CreateBudgetRequest struct {
	Name            string          `json:"name" binding:"required,max=100"`
	Limit           decimal.Decimal `json:"limit" binding:"required"`
	Month           int             `json:"month" binding:"required,min=1,max=12"`
	Year            int             `json:"year" binding:"required,min=2000"`
	CategoryIDs     []string        `json:"category_ids" binding:"omitempty,dive,uuid"`
	ReplaceExisting bool            `json:"replace_existing"`
}

// UpdateBudgetRequest represents the request payload for updating a budget
type UpdateBudgetRequest struct {
	Name  string           `json:"name" binding:"max=100"`
	Limit *decimal.Decimal `json:"limit"`
}

// BudgetResponse represents a budget in the response
type BudgetResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Limit             decimal.Decimal `json:"limit"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	Global            bool            `json:"global"`
	LastNotifiedLevel int             `json:"last_notified_level"`
	CategoryIDs       []string        `json:"category_ids"`
}

// CreateBudget creates a monthly budget
// @Summary     Create a budget
// @Description Create a monthly spending limit, global or scoped to a category set
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} BudgetResponse "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Conflicting budget for the same category set"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(
		userID, req.Name, req.Limit, req.Month, req.Year, req.CategoryIDs, req.ReplaceExisting)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// GetBudgets returns a paginated list of the user's budgets
// @Summary     List budgets
// @Description Get the user's budgets, newest period first
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[BudgetResponse] "Budgets"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.budgetService.GetUserBudgets(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response := pagination.PageResponse[BudgetResponse]{
		Data:       make([]BudgetResponse, 0, len(result.Data)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	}
	for i := range result.Data {
		response.Data = append(response.Data, toBudgetResponse(&result.Data[i]))
	}

	c.JSON(http.StatusOK, response)
}

// GetBudget returns a single budget
// @Summary     Get a budget
// @Description Get one of the user's budgets by ID
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} BudgetResponse "Budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// GetBudgetProgress returns spending vs limit for a budget
// @Summary     Budget progress
// @Description Get spent, remaining and truncated percentage for a budget's month
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.BudgetProgress "Budget progress"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// UpdateBudget updates a budget's name or limit
// @Summary     Update a budget
// @Description Update the name or limit of a budget; period and category set are fixed
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} BudgetResponse "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(userID, budgetID, req.Name, req.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// DeleteBudget deletes a budget
// @Summary     Delete a budget
// @Description Delete one of the user's budgets
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     204 "Budget deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toBudgetResponse(budget *models.Budget) BudgetResponse {
	return BudgetResponse{
		ID:                budget.ID,
		Name:              budget.Name,
		Limit:             budget.LimitAmount,
		Month:             budget.Month,
		Year:              budget.Year,
		Global:            budget.IsGlobal(),
		LastNotifiedLevel: budget.LastNotifiedLevel,
		CategoryIDs:       budget.CategoryIDs(),
	}
}
