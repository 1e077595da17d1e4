package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alvarovalenzuelac/presuapp/internal/config"
	"github.com/alvarovalenzuelac/presuapp/internal/logger"
)

// MenuOption is one selectable entry in a button menu or list.
type MenuOption struct {
	ID    string
	Title string
}

// Messenger sends outbound messages to a phone number. Sends are
// fire-and-forget: delivery failures are logged but never surfaced to the
// conversation flow, which must keep advancing regardless.
type Messenger interface {
	SendText(phone, body string)
	SendButtonMenu(phone, body string, options []MenuOption)
	SendList(phone, body, buttonLabel string, options []MenuOption)
}

// cloudMessenger talks to the WhatsApp Cloud API messages endpoint.
type cloudMessenger struct {
	apiURL string
	token  string
	client *http.Client
}

// NewCloudMessenger creates a Messenger backed by the WhatsApp Cloud API.
func NewCloudMessenger(cfg *config.Config) Messenger {
	return &cloudMessenger{
		apiURL: cfg.WhatsAppAPIURL,
		token:  cfg.WhatsAppToken,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *cloudMessenger) SendText(phone, body string) {
	m.post(phone, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
}

// SendButtonMenu sends an interactive reply-button message. The Cloud API
// caps these at three buttons.
func (m *cloudMessenger) SendButtonMenu(phone, body string, options []MenuOption) {
	buttons := make([]map[string]interface{}, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, map[string]interface{}{
			"type":  "reply",
			"reply": map[string]string{"id": opt.ID, "title": opt.Title},
		})
	}

	m.post(phone, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": body},
			"action": map[string]interface{}{"buttons": buttons},
		},
	})
}

func (m *cloudMessenger) SendList(phone, body, buttonLabel string, options []MenuOption) {
	rows := make([]map[string]string, 0, len(options))
	for _, opt := range options {
		rows = append(rows, map[string]string{"id": opt.ID, "title": opt.Title})
	}

	m.post(phone, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": body},
			"action": map[string]interface{}{
				"button":   buttonLabel,
				"sections": []map[string]interface{}{{"rows": rows}},
			},
		},
	})
}

func (m *cloudMessenger) post(phone string, payload map[string]interface{}) {
	if m.apiURL == "" {
		logger.Get().Debugw("whatsapp api not configured, dropping outbound message", "to", phone)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Get().Errorw("failed to encode outbound message", "to", phone, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		logger.Get().Errorw("failed to build outbound request", "to", phone, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.token)

	resp, err := m.client.Do(req)
	if err != nil {
		logger.Get().Errorw("failed to deliver outbound message", "to", phone, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Get().Errorw("whatsapp api rejected outbound message",
			"to", phone,
			"status", resp.StatusCode,
			"response", string(detail))
		return
	}

	logger.Get().Debugw("outbound message delivered", "to", phone, "status", fmt.Sprint(resp.StatusCode))
}
