package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
)

// Names that mark the fallback category transactions are reassigned to when
// a sibling is deleted.
var defaultCategoryNames = []string{"General", "Otros"}

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// visibleTo scopes a query to categories the user can see: global ones and
// the user's own.
func visibleTo(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id IS NULL OR user_id = ?", userID)
	}
}

// CreateCategory creates a new category owned by the user. The parent, when
// given, must be a root category (the tree has a fixed depth of two) and the
// name must be unique among siblings in the same owner scope,
// case-insensitively.
func (s *categoryService) CreateCategory(userID, name, icon string, parentID *string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	if parentID != nil {
		var parent models.Category
		if err := s.db.Scopes(visibleTo(userID)).Where("id = ?", *parentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !parent.IsRoot() {
			return nil, apperrors.ErrCategoryDepth
		}
	}

	// Sibling uniqueness within the same owner scope, case-insensitive.
	dup := s.db.Model(&models.Category{}).
		Where("LOWER(name) = LOWER(?)", name).
		Where("user_id = ?", userID)
	if parentID != nil {
		dup = dup.Where("parent_id = ?", *parentID)
	} else {
		dup = dup.Where("parent_id IS NULL")
	}
	var count int64
	if err := dup.Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		Name:     name,
		Icon:     icon,
		UserID:   &userID,
		ParentID: parentID,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetCategoryTree returns the root categories visible to the user, each with
// its visible children preloaded.
func (s *categoryService) GetCategoryTree(userID string) ([]models.Category, error) {
	var roots []models.Category
	err := s.db.Scopes(visibleTo(userID)).
		Where("parent_id IS NULL").
		Preload("Children", "user_id IS NULL OR user_id = ?", userID).
		Order("name").
		Find(&roots).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return roots, nil
}

// GetRootCategories returns the parent-level categories visible to the user.
func (s *categoryService) GetRootCategories(userID string) ([]models.Category, error) {
	var roots []models.Category
	err := s.db.Scopes(visibleTo(userID)).
		Where("parent_id IS NULL").
		Order("name").
		Find(&roots).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return roots, nil
}

// GetChildCategories returns the children of a parent category visible to the user.
func (s *categoryService) GetChildCategories(userID, parentID string) ([]models.Category, error) {
	var children []models.Category
	err := s.db.Scopes(visibleTo(userID)).
		Where("parent_id = ?", parentID).
		Order("name").
		Find(&children).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return children, nil
}

// GetCategoryByID retrieves a category by ID if it is visible to the user.
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Scopes(visibleTo(userID)).Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// FindDefaultChild returns the child of the given parent named "General" or
// "Otros", if one is visible to the user.
func (s *categoryService) FindDefaultChild(userID, parentID string) (*models.Category, error) {
	var category models.Category
	err := s.db.Scopes(visibleTo(userID)).
		Where("parent_id = ? AND name IN ?", parentID, defaultCategoryNames).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates a category's name and icon. Only categories the
// user created can be modified; global ones are read-only.
func (s *categoryService) UpdateCategory(userID, categoryID, name, icon string) (*models.Category, error) {
	category, err := s.getOwnedCategory(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if icon != "" {
		updates["icon"] = icon
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory deletes a category the user owns. Transactions that
// referenced it are reassigned to a sibling named "General" or "Otros" in the
// same parent scope; when no such sibling exists they are left uncategorized.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.getOwnedCategory(userID, categoryID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		fallback, err := s.findReassignTarget(tx, userID, category)
		if err != nil {
			return err
		}

		target := tx.Model(&models.Transaction{}).Where("category_id = ?", category.ID)
		if fallback != nil {
			err = target.Update("category_id", fallback.ID).Error
		} else {
			err = target.Update("category_id", nil).Error
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// findReassignTarget looks for a sibling named "General"/"Otros" sharing the
// deleted category's parent scope. The category being deleted never counts as
// its own target.
func (s *categoryService) findReassignTarget(tx *gorm.DB, userID string, category *models.Category) (*models.Category, error) {
	q := tx.Scopes(visibleTo(userID)).
		Where("name IN ?", defaultCategoryNames).
		Where("id <> ?", category.ID)
	if category.ParentID != nil {
		q = q.Where("parent_id = ?", *category.ParentID)
	} else {
		q = q.Where("parent_id IS NULL")
	}

	var fallback models.Category
	if err := q.First(&fallback).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fallback, nil
}

func (s *categoryService) getOwnedCategory(userID, categoryID string) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.UserID == nil || *category.UserID != userID {
		return nil, apperrors.ErrCategoryNotOwned
	}
	return category, nil
}
