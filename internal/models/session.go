package models

import "time"

// SessionState identifies where a conversation currently stands. The wire
// values match the states of the original WhatsApp flow.
type SessionState string

const (
	SessionStateStart                  SessionState = "INICIO"
	SessionStateAwaitingAmount         SessionState = "ESPERANDO_MONTO"
	SessionStateAwaitingParentCategory SessionState = "ESPERANDO_CATEGORIA_PADRE"
	SessionStateAwaitingChildCategory  SessionState = "ESPERANDO_CATEGORIA_HIJA"
)

// ConversationSession is the durable per-user state of the chat intake
// channel. Exactly one row exists per user; every inbound message loads it,
// advances it, and saves it back, so no session affinity between messages is
// required.
//
// Scratch holds the JSON-encoded partial input collected so far (see
// whatsapp.Scratch); which fields are meaningful depends on State.
type ConversationSession struct {
	Base
	UserID        string       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Phone         string       `gorm:"size:20;not null" json:"phone"`
	State         SessionState `gorm:"size:50;not null;default:'INICIO'" json:"state"`
	Scratch       string       `gorm:"type:text;default:'{}'" json:"-"`
	LastMessageAt time.Time    `json:"last_message_at"`
}
