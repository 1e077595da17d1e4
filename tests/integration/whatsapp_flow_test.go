package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alvarovalenzuelac/presuapp/internal/models"
)

func textPayload(from, body string) string {
	return fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":%q,"type":"text","text":{"body":%q}}]}}]}]}`,
		from, body)
}

func buttonPayload(from, id string) string {
	return fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":%q,"type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":%q,"title":"x"}}}]}}]}]}`,
		from, id)
}

func listPayload(from, id string) string {
	return fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":%q,"type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":%q,"title":"x"}}}]}}]}]}`,
		from, id)
}

func (app *testApp) sendWebhook(t *testing.T, payload string) {
	t.Helper()
	rec := app.request("POST", "/api/v1/webhook", payload, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWhatsAppFlow_LogExpenseByChat(t *testing.T) {
	app := setupApp(t)
	token, _, userID := app.registerUser(t, "chat@test.com", "password123", "+56912345678")

	// Categories the chat flow will pick from
	rec := app.request("POST", "/api/v1/categories", `{"name":"Comida"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	parentID := parseJSON(t, rec)["id"].(string)

	rec = app.request("POST", "/api/v1/categories",
		fmt.Sprintf(`{"name":"Restaurant","parent_id":%q}`, parentID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	childID := parseJSON(t, rec)["id"].(string)

	// The sender omits the plus sign, as the Cloud API does
	from := "56912345678"

	// Greeting gets the main menu and creates a session
	app.sendWebhook(t, textPayload(from, "hola"))

	var session models.ConversationSession
	if err := app.DB.Where("user_id = ?", userID).First(&session).Error; err != nil {
		t.Fatalf("expected a conversation session: %v", err)
	}
	if session.State != models.SessionStateStart {
		t.Errorf("expected INICIO state, got %q", session.State)
	}

	// New expense, then amount, then parent and child category
	app.sendWebhook(t, buttonPayload(from, "BTN_NUEVO_GASTO"))
	app.sendWebhook(t, textPayload(from, "12500"))
	app.sendWebhook(t, listPayload(from, "padre_"+parentID))
	app.sendWebhook(t, listPayload(from, "cat_"+childID))

	// The expense landed with the chosen category
	rec = app.request("GET", "/api/v1/transactions", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	transactions := parseJSON(t, rec)["data"].([]interface{})
	if len(transactions) != 1 {
		t.Fatalf("expected one transaction logged by chat, got %d", len(transactions))
	}
	tx := transactions[0].(map[string]interface{})
	if tx["amount"].(string) != "12500" {
		t.Errorf("expected amount 12500, got %v", tx["amount"])
	}
	if tx["category_id"].(string) != childID {
		t.Errorf("expected category %q, got %v", childID, tx["category_id"])
	}

	// Session is back at the start
	if err := app.DB.Where("user_id = ?", userID).First(&session).Error; err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if session.State != models.SessionStateStart {
		t.Errorf("expected session reset to INICIO, got %q", session.State)
	}

	// Confirmation went out
	var confirmed bool
	for _, msg := range app.Messenger.Sent() {
		if strings.Contains(msg, "12.500") || strings.Contains(msg, "12500") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Error("expected a confirmation message mentioning the amount")
	}
}

func TestWhatsAppFlow_CancelResetsConversation(t *testing.T) {
	app := setupApp(t)
	_, _, userID := app.registerUser(t, "cancel@test.com", "password123", "+56987654321")

	from := "56987654321"
	app.sendWebhook(t, buttonPayload(from, "BTN_NUEVO_GASTO"))

	var session models.ConversationSession
	if err := app.DB.Where("user_id = ?", userID).First(&session).Error; err != nil {
		t.Fatalf("expected a conversation session: %v", err)
	}
	if session.State != models.SessionStateAwaitingAmount {
		t.Fatalf("expected ESPERANDO_MONTO, got %q", session.State)
	}

	app.sendWebhook(t, textPayload(from, "Cancelar"))

	if err := app.DB.Where("user_id = ?", userID).First(&session).Error; err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if session.State != models.SessionStateStart {
		t.Errorf("expected INICIO after cancel, got %q", session.State)
	}
	if session.Scratch != "{}" {
		t.Errorf("expected empty scratch after cancel, got %q", session.Scratch)
	}
}

func TestWhatsAppFlow_UnknownSenderIgnored(t *testing.T) {
	app := setupApp(t)

	app.sendWebhook(t, textPayload("56911111111", "hola"))

	var sessions int64
	app.DB.Model(&models.ConversationSession{}).Count(&sessions)
	if sessions != 0 {
		t.Errorf("expected no session for unknown sender, got %d", sessions)
	}
	if len(app.Messenger.Sent()) != 0 {
		t.Errorf("expected no outbound messages, got %d", len(app.Messenger.Sent()))
	}

	var log models.MessageLog
	if err := app.DB.First(&log).Error; err != nil {
		t.Fatalf("expected the payload to be persisted: %v", err)
	}
	if !log.Processed {
		t.Error("expected log marked processed")
	}
}

func TestWhatsAppFlow_VerifyHandshake(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET",
		"/api/v1/webhook?hub.mode=subscribe&hub.verify_token=test-verify-token&hub.challenge=987", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "987" {
		t.Errorf("expected challenge echoed, got %q", rec.Body.String())
	}

	rec = app.request("GET",
		"/api/v1/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=987", "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
