package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alvarovalenzuelac/presuapp/internal/config"
	"github.com/alvarovalenzuelac/presuapp/internal/logger"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/whatsapp"
)

// WebhookHandler receives WhatsApp Cloud API webhook calls. Inbound payloads
// are persisted before processing, and the endpoint reports success to the
// provider no matter what happens during processing, so a broken message is
// never redelivered in a loop.
type WebhookHandler struct {
	db         *gorm.DB
	dispatcher *whatsapp.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(db *gorm.DB, dispatcher *whatsapp.Dispatcher) *WebhookHandler {
	return &WebhookHandler{db: db, dispatcher: dispatcher}
}

// Verify answers the provider's webhook verification handshake
// @Summary     Verify webhook
// @Description Answer the WhatsApp webhook subscription challenge
// @Tags        webhook
// @Produce     plain
// @Param       hub.mode query string true "Must be subscribe"
// @Param       hub.verify_token query string true "Configured verify token"
// @Param       hub.challenge query string true "Challenge to echo back"
// @Success     200 {string} string "Challenge echoed"
// @Failure     403 {string} string "Verification failed"
// @Router      /webhook [get]
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == config.Get().WhatsAppVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	c.String(http.StatusForbidden, "verification failed")
}

// Receive stores and processes an inbound webhook payload
// @Summary     Receive webhook
// @Description Accept an inbound message payload; always acknowledges with 200
// @Tags        webhook
// @Accept      json
// @Produce     json
// @Success     200 {object} map[string]string "Acknowledged"
// @Router      /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || len(payload) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	log := &models.MessageLog{Payload: string(payload)}
	if err := h.db.Create(log).Error; err != nil {
		// Without a log row there is nothing to process against; still
		// acknowledge so the provider does not retry forever.
		logger.Get().Errorw("failed to persist inbound payload", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	h.dispatcher.ProcessLog(log)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
