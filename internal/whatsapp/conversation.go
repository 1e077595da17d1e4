package whatsapp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alvarovalenzuelac/presuapp/internal/logger"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
)

// Interactive tokens exchanged with the provider. Category ids travel inside
// list-row ids with a short prefix; encoding and decoding stays in this
// package.
const (
	tokenNewExpense  = "BTN_NUEVO_GASTO"
	tokenShowSummary = "BTN_VER_RESUMEN"
	tokenBack        = "VOLVER"
	tokenGeneral     = "cat_general"

	parentTokenPrefix = "padre_"
	childTokenPrefix  = "cat_"
)

// globalKeywords reset the conversation from any state.
var globalKeywords = map[string]bool{
	"menu":     true,
	"cancelar": true,
	"inicio":   true,
	"hola":     true,
}

// Scratch is the partial expense collected across messages, serialized as
// JSON into the session row.
type Scratch struct {
	Kind     models.TransactionKind `json:"kind,omitempty"`
	Amount   decimal.Decimal        `json:"amount,omitempty"`
	ParentID string                 `json:"parent_id,omitempty"`
}

// Conversation advances a user's session one inbound token at a time. It
// mutates the session in place; the caller persists it.
type Conversation struct {
	categoryService    services.CategoryServicer
	transactionService services.TransactionServicer
	messenger          Messenger
}

// NewConversation creates a Conversation state machine.
func NewConversation(
	categoryService services.CategoryServicer,
	transactionService services.TransactionServicer,
	messenger Messenger,
) *Conversation {
	return &Conversation{
		categoryService:    categoryService,
		transactionService: transactionService,
		messenger:          messenger,
	}
}

// Handle processes one inbound token for the user. Invalid input reprompts
// and leaves the state unchanged; only service failures return an error.
func (c *Conversation) Handle(user *models.User, session *models.ConversationSession, token string) error {
	session.LastMessageAt = time.Now()

	trimmed := strings.TrimSpace(token)
	if globalKeywords[strings.ToLower(trimmed)] {
		c.reset(session)
		c.sendMainMenu(session.Phone, user.FirstName)
		return nil
	}

	switch session.State {
	case models.SessionStateAwaitingAmount:
		return c.handleAmount(user, session, trimmed)
	case models.SessionStateAwaitingParentCategory:
		return c.handleParentCategory(user, session, trimmed)
	case models.SessionStateAwaitingChildCategory:
		return c.handleChildCategory(user, session, trimmed)
	default:
		return c.handleStart(user, session, trimmed)
	}
}

func (c *Conversation) handleStart(user *models.User, session *models.ConversationSession, token string) error {
	switch token {
	case tokenNewExpense:
		if err := c.saveScratch(session, &Scratch{Kind: models.TransactionKindExpense}); err != nil {
			return err
		}
		session.State = models.SessionStateAwaitingAmount
		c.messenger.SendText(session.Phone, "¿Cuánto gastaste? Escribe solo el monto, sin puntos ni signos.")
		return nil

	case tokenShowSummary:
		now := time.Now()
		summary, err := c.transactionService.GetMonthlySummary(user.ID, now.Year(), int(now.Month()))
		if err != nil {
			return err
		}
		c.messenger.SendText(session.Phone, fmt.Sprintf(
			"Resumen de %s:\nIngresos: $%s\nGastos: $%s\nBalance: $%s",
			now.Format("01/2006"),
			summary.Income.StringFixed(0),
			summary.Expense.StringFixed(0),
			summary.Balance.StringFixed(0)))
		c.sendMainMenu(session.Phone, user.FirstName)
		return nil

	default:
		c.sendMainMenu(session.Phone, user.FirstName)
		return nil
	}
}

func (c *Conversation) handleAmount(user *models.User, session *models.ConversationSession, token string) error {
	amount, err := decimal.NewFromString(token)
	if err != nil || !amount.IsPositive() {
		c.messenger.SendText(session.Phone, "No entendí el monto. Escribe solo números, por ejemplo: 5000.")
		return nil
	}

	scratch, err := c.loadScratch(session)
	if err != nil {
		return err
	}
	scratch.Amount = amount
	if err := c.saveScratch(session, scratch); err != nil {
		return err
	}
	session.State = models.SessionStateAwaitingParentCategory

	return c.sendParentPicker(user, session)
}

func (c *Conversation) handleParentCategory(user *models.User, session *models.ConversationSession, token string) error {
	parentID, ok := strings.CutPrefix(token, parentTokenPrefix)
	if !ok {
		c.messenger.SendText(session.Phone, "Elige una categoría de la lista.")
		return c.sendParentPicker(user, session)
	}

	scratch, err := c.loadScratch(session)
	if err != nil {
		return err
	}
	scratch.ParentID = parentID
	if err := c.saveScratch(session, scratch); err != nil {
		return err
	}
	session.State = models.SessionStateAwaitingChildCategory

	return c.sendChildPicker(user, session, parentID)
}

func (c *Conversation) handleChildCategory(user *models.User, session *models.ConversationSession, token string) error {
	scratch, err := c.loadScratch(session)
	if err != nil {
		return err
	}

	if token == tokenBack {
		session.State = models.SessionStateAwaitingParentCategory
		return c.sendParentPicker(user, session)
	}

	var categoryID *string
	switch {
	case token == tokenGeneral:
		child, err := c.categoryService.FindDefaultChild(user.ID, scratch.ParentID)
		if err == nil && child != nil {
			categoryID = &child.ID
		}
	case strings.HasPrefix(token, childTokenPrefix):
		id := strings.TrimPrefix(token, childTokenPrefix)
		if _, err := c.categoryService.GetCategoryByID(user.ID, id); err == nil {
			categoryID = &id
		}
	default:
		c.messenger.SendText(session.Phone, "Elige una subcategoría de la lista.")
		return c.sendChildPicker(user, session, scratch.ParentID)
	}

	transaction, err := c.transactionService.CreateTransaction(
		user.ID, categoryID, models.TransactionKindExpense, scratch.Amount, "", time.Now())
	if err != nil {
		return err
	}

	c.reset(session)
	c.messenger.SendText(session.Phone,
		fmt.Sprintf("Listo ✅ Registré un gasto de $%s.", transaction.Amount.StringFixed(0)))
	c.sendMainMenu(session.Phone, user.FirstName)
	return nil
}

// sendMainMenu shows the entry-point buttons.
func (c *Conversation) sendMainMenu(phone, firstName string) {
	greeting := "Hola"
	if firstName != "" {
		greeting = "Hola " + firstName
	}
	c.messenger.SendButtonMenu(phone, greeting+" 👋 ¿Qué quieres hacer?", []MenuOption{
		{ID: tokenNewExpense, Title: "Nuevo gasto"},
		{ID: tokenShowSummary, Title: "Ver resumen"},
	})
}

func (c *Conversation) sendParentPicker(user *models.User, session *models.ConversationSession) error {
	roots, err := c.categoryService.GetRootCategories(user.ID)
	if err != nil {
		return err
	}

	options := make([]MenuOption, 0, len(roots))
	for _, cat := range roots {
		options = append(options, MenuOption{ID: parentTokenPrefix + cat.ID, Title: categoryTitle(cat)})
	}
	c.messenger.SendList(session.Phone, "¿En qué categoría?", "Ver categorías", options)
	return nil
}

func (c *Conversation) sendChildPicker(user *models.User, session *models.ConversationSession, parentID string) error {
	children, err := c.categoryService.GetChildCategories(user.ID, parentID)
	if err != nil {
		return err
	}

	options := make([]MenuOption, 0, len(children)+2)
	for _, cat := range children {
		options = append(options, MenuOption{ID: childTokenPrefix + cat.ID, Title: categoryTitle(cat)})
	}
	options = append(options,
		MenuOption{ID: tokenGeneral, Title: "General"},
		MenuOption{ID: tokenBack, Title: "⬅ Volver"},
	)
	c.messenger.SendList(session.Phone, "¿Y la subcategoría?", "Ver opciones", options)
	return nil
}

func categoryTitle(cat models.Category) string {
	if cat.Icon != "" {
		return cat.Icon + " " + cat.Name
	}
	return cat.Name
}

// reset returns the session to the initial state with empty scratch.
func (c *Conversation) reset(session *models.ConversationSession) {
	session.State = models.SessionStateStart
	session.Scratch = "{}"
}

func (c *Conversation) loadScratch(session *models.ConversationSession) (*Scratch, error) {
	scratch := &Scratch{}
	raw := session.Scratch
	if raw == "" {
		return scratch, nil
	}
	if err := json.Unmarshal([]byte(raw), scratch); err != nil {
		// Corrupt scratch means the flow cannot be resumed; start over.
		logger.Get().Warnw("resetting session with unreadable scratch",
			"session_id", session.ID, "error", err)
		return &Scratch{}, nil
	}
	return scratch, nil
}

func (c *Conversation) saveScratch(session *models.ConversationSession, scratch *Scratch) error {
	raw, err := json.Marshal(scratch)
	if err != nil {
		return err
	}
	session.Scratch = string(raw)
	return nil
}
