package models

import "github.com/shopspring/decimal"

// Alert levels a budget can escalate through as spending approaches its limit.
const (
	AlertLevelNone     = 0
	AlertLevelWarning  = 1 // >= 80% of the limit
	AlertLevelDanger   = 2 // >= 95% of the limit
	AlertLevelCritical = 3 // >= 100% of the limit
)

// Budget represents a monthly spending limit. An empty category set makes the
// budget global: it covers every expense of the owner for that month. A
// non-empty set restricts it to those categories and their child categories.
//
// LastNotifiedLevel is the highest alert level already notified for this
// budget. It only moves upward, which is what keeps repeated small purchases
// past a threshold from generating duplicate alerts.
type Budget struct {
	Base
	UserID            string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name              string          `gorm:"not null" json:"name"`
	LimitAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"limit_amount"`
	Month             int             `gorm:"not null" json:"month"`
	Year              int             `gorm:"not null" json:"year"`
	LastNotifiedLevel int             `gorm:"default:0" json:"last_notified_level"`

	// Relationships
	Categories []Category `gorm:"many2many:budget_categories" json:"categories,omitempty"`
}

// IsGlobal reports whether the budget covers all spending for its month.
func (b *Budget) IsGlobal() bool {
	return len(b.Categories) == 0
}

// CategoryIDs returns the ids of the budget's category set.
func (b *Budget) CategoryIDs() []string {
	ids := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}
