package whatsapp

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/logger"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
)

// Dispatcher processes stored inbound webhook payloads. It is the error
// boundary of the intake channel: whatever goes wrong ends up recorded on
// the message log row, never returned upward, so the webhook can keep
// acknowledging the provider.
type Dispatcher struct {
	db           *gorm.DB
	userService  services.UserServicer
	conversation *Conversation
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(db *gorm.DB, userService services.UserServicer, conversation *Conversation) *Dispatcher {
	return &Dispatcher{db: db, userService: userService, conversation: conversation}
}

// ProcessLog handles one stored inbound payload. Payloads without a
// processable message and messages from unknown phone numbers are dropped
// silently; both still count as processed.
func (d *Dispatcher) ProcessLog(log *models.MessageLog) {
	if err := d.process(log); err != nil {
		logger.Get().Errorw("inbound message processing failed", "message_log_id", log.ID, "error", err)
		d.finish(log, err.Error())
		return
	}
	d.finish(log, "")
}

func (d *Dispatcher) process(log *models.MessageLog) error {
	phone, token, ok := Decode([]byte(log.Payload))
	if !ok {
		return nil
	}

	user, err := d.userService.ResolveUserByPhone(phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Get().Debugw("dropping message from unknown sender", "from", phone)
			return nil
		}
		return err
	}

	session, err := d.loadSession(user, phone)
	if err != nil {
		return err
	}

	if err := d.conversation.Handle(user, session, token); err != nil {
		return err
	}

	if err := d.db.Save(session).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// loadSession fetches the user's session row, creating it on first contact.
func (d *Dispatcher) loadSession(user *models.User, phone string) (*models.ConversationSession, error) {
	var session models.ConversationSession
	err := d.db.Where("user_id = ?", user.ID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	session = models.ConversationSession{
		UserID:  user.ID,
		Phone:   phone,
		State:   models.SessionStateStart,
		Scratch: "{}",
	}
	if err := d.db.Create(&session).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &session, nil
}

// finish marks the log row processed, storing the error text when there is one.
func (d *Dispatcher) finish(log *models.MessageLog, errText string) {
	updates := map[string]interface{}{"processed": errText == "", "error": errText}
	if err := d.db.Model(log).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to update message log", "message_log_id", log.ID, "error", err)
	}
}
