package whatsapp

import "testing"

func TestDecode(t *testing.T) {
	t.Run("text_message", func(t *testing.T) {
		payload := `{"entry":[{"changes":[{"value":{"messages":[
			{"from":"56912345678","type":"text","text":{"body":" 5000 "}}
		]}}]}]}`

		phone, token, ok := Decode([]byte(payload))
		if !ok {
			t.Fatal("expected a processable message")
		}
		if phone != "56912345678" {
			t.Errorf("expected sender phone, got %q", phone)
		}
		if token != " 5000 " {
			t.Errorf("expected raw body, got %q", token)
		}
	})

	t.Run("button_reply", func(t *testing.T) {
		payload := `{"entry":[{"changes":[{"value":{"messages":[
			{"from":"56912345678","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"BTN_NUEVO_GASTO","title":"Nuevo gasto"}}}
		]}}]}]}`

		_, token, ok := Decode([]byte(payload))
		if !ok || token != "BTN_NUEVO_GASTO" {
			t.Errorf("expected button id token, got %q (ok=%v)", token, ok)
		}
	})

	t.Run("list_reply", func(t *testing.T) {
		payload := `{"entry":[{"changes":[{"value":{"messages":[
			{"from":"56912345678","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"cat_abc","title":"Supermercado"}}}
		]}}]}]}`

		_, token, ok := Decode([]byte(payload))
		if !ok || token != "cat_abc" {
			t.Errorf("expected list row id token, got %q (ok=%v)", token, ok)
		}
	})

	t.Run("status_only_payload", func(t *testing.T) {
		payload := `{"entry":[{"changes":[{"value":{"statuses":[{"status":"delivered"}]}}]}]}`

		_, _, ok := Decode([]byte(payload))
		if ok {
			t.Error("expected status notification to be skipped")
		}
	})

	t.Run("malformed_json", func(t *testing.T) {
		_, _, ok := Decode([]byte("{not json"))
		if ok {
			t.Error("expected malformed payload to be skipped")
		}
	})

	t.Run("empty_entry", func(t *testing.T) {
		_, _, ok := Decode([]byte(`{"entry":[]}`))
		if ok {
			t.Error("expected empty envelope to be skipped")
		}
	})
}
