package handlers

import (
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
	"github.com/alvarovalenzuelac/presuapp/internal/testutil"
	"github.com/alvarovalenzuelac/presuapp/internal/whatsapp"
)

const verifyToken = "test-verify-token"

func init() {
	// Must be set before the first config.Get() call anywhere in the package.
	os.Setenv("WHATSAPP_VERIFY_TOKEN", verifyToken)
}

type noopMessenger struct{}

func (noopMessenger) SendText(phone, body string)                                      {}
func (noopMessenger) SendButtonMenu(phone, body string, options []whatsapp.MenuOption) {}
func (noopMessenger) SendList(phone, body, buttonLabel string, options []whatsapp.MenuOption) {
}

func setupWebhookRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	alertService := services.NewAlertService(db)
	userService := services.NewUserService(db, alertService)
	categoryService := services.NewCategoryService(db)
	budgetService := services.NewBudgetService(db, alertService)
	transactionService := services.NewTransactionService(db, budgetService)
	conversation := whatsapp.NewConversation(categoryService, transactionService, noopMessenger{})
	dispatcher := whatsapp.NewDispatcher(db, userService, conversation)
	handler := NewWebhookHandler(db, dispatcher)

	r := gin.New()
	r.GET("/webhook", handler.Verify)
	r.POST("/webhook", handler.Receive)
	return r, db
}

func TestWebhookVerify(t *testing.T) {
	t.Run("valid_handshake_echoes_challenge", func(t *testing.T) {
		r, _ := setupWebhookRouter(t)

		rec := doRequest(r, "GET",
			"/webhook?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=12345", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "12345" {
			t.Errorf("expected challenge echoed back, got %q", rec.Body.String())
		}
	})

	t.Run("wrong_token_forbidden", func(t *testing.T) {
		r, _ := setupWebhookRouter(t)

		rec := doRequest(r, "GET",
			"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "")

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("wrong_mode_forbidden", func(t *testing.T) {
		r, _ := setupWebhookRouter(t)

		rec := doRequest(r, "GET",
			"/webhook?hub.mode=unsubscribe&hub.verify_token="+verifyToken+"&hub.challenge=12345", "")

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestWebhookReceive(t *testing.T) {
	t.Run("payload_is_persisted_and_acknowledged", func(t *testing.T) {
		r, db := setupWebhookRouter(t)

		rec := doRequest(r, "POST", "/webhook", `{"object":"whatsapp_business_account","entry":[]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var count int64
		db.Model(&models.MessageLog{}).Count(&count)
		if count != 1 {
			t.Errorf("expected one persisted message log, got %d", count)
		}
	})

	t.Run("unknown_sender_still_acknowledged", func(t *testing.T) {
		r, db := setupWebhookRouter(t)

		payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"56900000000","type":"text","text":{"body":"hola"}}]}}]}]}`
		rec := doRequest(r, "POST", "/webhook", payload)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var log models.MessageLog
		if err := db.First(&log).Error; err != nil {
			t.Fatalf("expected a persisted message log: %v", err)
		}
		if !log.Processed {
			t.Error("expected log to be marked processed")
		}
		if log.Error != "" {
			t.Errorf("expected no processing error, got %q", log.Error)
		}
	})

	t.Run("empty_body_ignored", func(t *testing.T) {
		r, db := setupWebhookRouter(t)

		rec := doRequest(r, "POST", "/webhook", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var count int64
		db.Model(&models.MessageLog{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no message log for empty body, got %d", count)
		}
	})
}
