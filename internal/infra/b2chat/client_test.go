package b2chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer fakes the OAuth grant plus one API endpoint.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "bot-user" || pass != "bot-pass" {
				t.Errorf("unexpected token auth %q/%q", user, pass)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse token form: %v", err)
			}
			if grant := r.PostForm.Get("grant_type"); grant != "client_credentials" {
				t.Errorf("unexpected grant_type %q", grant)
			}
			w.Write([]byte(`{"access_token":"tok-1"}`))
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("unexpected api auth %q", auth)
		}
		handler(w, r)
	}))
}

func TestOpenChat(t *testing.T) {
	var payload map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bots/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"chat_id":"chat-42"}`))
	})
	defer srv.Close()

	c := NewClient("bot-user", "bot-pass")
	c.SetBaseURL(srv.URL)

	contact := Contact{FullName: "8-123-4567", Identification: 33, CallingCode: 507, Number: 61234567}
	chatID, err := c.OpenChat(context.Background(), contact, "necesito ayuda")
	if err != nil {
		t.Fatalf("OpenChat failed: %v", err)
	}
	if chatID != "chat-42" {
		t.Fatalf("unexpected chat id %q", chatID)
	}

	contactPayload, _ := payload["contact"].(map[string]any)
	if contactPayload["full_name"] != "8-123-4567" {
		t.Fatalf("unexpected contact payload: %v", contactPayload)
	}
	botChat, _ := payload["bot_chat"].([]any)
	if len(botChat) != 1 {
		t.Fatalf("expected one opening message, got %v", botChat)
	}
	opening, _ := botChat[0].(map[string]any)
	if opening["text"] != "necesito ayuda" {
		t.Fatalf("unexpected opening text: %v", opening["text"])
	}
	from, _ := opening["from"].(map[string]any)
	if from["is_bot"] != true {
		t.Fatalf("opening message must come from the bot: %v", from)
	}
}

func TestOpenChat_NoChatID(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	c := NewClient("bot-user", "bot-pass")
	c.SetBaseURL(srv.URL)

	if _, err := c.OpenChat(context.Background(), Contact{}, "hola"); err == nil {
		t.Fatalf("expected error when the response has no chat_id")
	}
}

func TestSendText(t *testing.T) {
	var gotPath string
	var body map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	c := NewClient("bot-user", "bot-pass")
	c.SetBaseURL(srv.URL)

	if err := c.SendText(context.Background(), "chat-42", "hola agente"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotPath != "/bots/chat-42/textMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if body["text"] != "hola agente" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendText_APIError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"chat closed"}`, http.StatusGone)
	})
	defer srv.Close()

	c := NewClient("bot-user", "bot-pass")
	c.SetBaseURL(srv.URL)

	if err := c.SendText(context.Background(), "chat-42", "hola"); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

func TestSendImageAndFilePaths(t *testing.T) {
	var paths []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	c := NewClient("bot-user", "bot-pass")
	c.SetBaseURL(srv.URL)

	if err := c.SendImage(context.Background(), "chat-42", "https://cdn.example/a.jpg"); err != nil {
		t.Fatalf("SendImage failed: %v", err)
	}
	if err := c.SendFile(context.Background(), "chat-42", "https://cdn.example/b.pdf"); err != nil {
		t.Fatalf("SendFile failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/bots/chat-42/sendImage" || paths[1] != "/bots/chat-42/sendFile" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
