// Package whatsapp implements the conversational intake channel: decoding
// WhatsApp Cloud API webhook payloads, the per-user conversation state
// machine, and outbound message delivery.
package whatsapp

import "encoding/json"

// Envelope mirrors the WhatsApp Cloud API webhook payload. Only the fields
// the intake channel reads are declared.
type Envelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []InboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is one message inside an envelope.
type InboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// Decode parses a raw webhook payload into (sender phone, input token). The
// token is the text body for text messages, or the reply id for interactive
// ones. ok is false for payloads that carry no processable message, such as
// status-only notifications, which the webhook receives constantly.
func Decode(payload []byte) (phone, token string, ok bool) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", "", false
	}
	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return "", "", false
	}
	messages := env.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return "", "", false
	}

	msg := messages[0]
	switch {
	case msg.Text != nil:
		return msg.From, msg.Text.Body, true
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		return msg.From, msg.Interactive.ButtonReply.ID, true
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		return msg.From, msg.Interactive.ListReply.ID, true
	}
	return "", "", false
}
