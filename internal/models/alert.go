package models

// Alert represents an in-app notification for a user. Alerts are created by
// the budget evaluator when a spending threshold is crossed and by the account
// lockout flow; the only mutation afterwards is marking them read.
type Alert struct {
	Base
	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Title   string `gorm:"size:100;not null" json:"title"`
	Message string `gorm:"not null" json:"message"`
	Read    bool   `gorm:"default:false" json:"read"`
}
