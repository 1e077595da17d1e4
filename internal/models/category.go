package models

// Category represents a spending category. Categories form a two-level tree:
// a root category may have children, a child may not. A category with a nil
// UserID is global and visible to every user; otherwise it belongs to exactly
// one user.
type Category struct {
	Base
	Name     string  `gorm:"not null" json:"name"`
	Icon     string  `json:"icon"`
	UserID   *string `gorm:"type:uuid" json:"user_id,omitempty"`
	ParentID *string `gorm:"type:uuid" json:"parent_id,omitempty"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// IsGlobal reports whether the category is shared across all users.
func (c *Category) IsGlobal() bool {
	return c.UserID == nil
}

// IsRoot reports whether the category is a parent-level category.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
