package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
)

// alertService handles alert creation and retrieval.
type alertService struct {
	db *gorm.DB
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB) AlertServicer {
	return &alertService{db: db}
}

// Emit creates a new unread alert for the user. Deduplication is the
// caller's concern; the budget evaluator's watermark already guarantees at
// most one alert per level escalation.
func (s *alertService) Emit(userID, title, message string) (*models.Alert, error) {
	alert := &models.Alert{
		UserID:  userID,
		Title:   title,
		Message: message,
		Read:    false,
	}

	if err := s.db.Create(alert).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return alert, nil
}

// GetUserAlerts returns a paginated list of the user's alerts, newest first.
func (s *alertService) GetUserAlerts(userID string, page pagination.PageRequest, unreadOnly bool) (*pagination.PageResponse[models.Alert], error) {
	page.Defaults()

	base := s.db.Model(&models.Alert{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("read = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var alerts []models.Alert
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(alerts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkRead marks an alert as read if it belongs to the user.
func (s *alertService) MarkRead(userID, alertID string) error {
	var alert models.Alert
	if err := s.db.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAlertNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&alert).Update("read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
