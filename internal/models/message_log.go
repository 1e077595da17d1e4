package models

// MessageLog stores every inbound webhook payload exactly as received.
// Processing happens against the stored row: Processed flips to true on
// success, Error records what went wrong otherwise. The provider-facing
// endpoint reports success either way, so a failed row is the only trace of
// a broken message.
type MessageLog struct {
	Base
	Payload   string `gorm:"type:text;not null" json:"payload"`
	Processed bool   `gorm:"default:false" json:"processed"`
	Error     string `gorm:"type:text" json:"error,omitempty"`
}
