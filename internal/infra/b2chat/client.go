// Package b2chat is a minimal client for the B2Chat bot API: OAuth token
// grant, chat creation and message relay onto an open chat.
package b2chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.b2chat.io"

// Contact identifies the end user a new chat is opened for.
type Contact struct {
	FullName       string
	Identification int
	CallingCode    int
	Number         int64
}

// Client talks to the B2Chat bot API. Every call fetches a fresh access
// token; the API hands out short-lived client-credential tokens and the
// message volume does not justify caching them.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a new B2Chat client with the given bot credentials.
func NewClient(username, password string) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// token performs the client-credentials grant and returns a bearer token.
func (c *Client) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("b2chat token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("b2chat token: %s body=%s", resp.Status, body)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("b2chat token decode: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("b2chat token: empty access_token")
	}
	return out.AccessToken, nil
}

// OpenChat creates a new bot chat for the contact and returns its chat id.
// The opening message is attributed to the bot in the chat transcript.
func (c *Client) OpenChat(ctx context.Context, contact Contact, openingMsg string) (string, error) {
	payload := map[string]any{
		"contact": map[string]any{
			"full_name":      contact.FullName,
			"identification": contact.Identification,
			"mobileNumber": map[string]any{
				"country_calling_code": contact.CallingCode,
				"number":               contact.Number,
			},
		},
		"bot_chat": []map[string]any{
			{
				"datetime":   time.Now().Unix(),
				"message_id": uuid.NewString(),
				"text":       openingMsg,
				"from": map[string]any{
					"full_name": "BOT-A-AGENTE",
					"is_bot":    true,
				},
				"to": map[string]any{
					"full_name": contact.FullName,
					"is_bot":    false,
				},
			},
		},
	}

	var out struct {
		ChatID string `json:"chat_id"`
	}
	if err := c.post(ctx, "/bots/chat", payload, &out); err != nil {
		return "", err
	}
	if out.ChatID == "" {
		return "", fmt.Errorf("b2chat open chat: response carried no chat_id")
	}
	return out.ChatID, nil
}

// SendText posts a text message onto an open chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.post(ctx, "/bots/"+chatID+"/textMessage", map[string]any{"text": text}, nil)
}

// SendImage posts an image by public URL onto an open chat.
func (c *Client) SendImage(ctx context.Context, chatID, imageURL string) error {
	return c.post(ctx, "/bots/"+chatID+"/sendImage", map[string]any{"url": imageURL}, nil)
}

// SendFile posts a file by public URL onto an open chat.
func (c *Client) SendFile(ctx context.Context, chatID, fileURL string) error {
	return c.post(ctx, "/bots/"+chatID+"/sendFile", map[string]any{"url": fileURL}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("b2chat request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("b2chat api error on %s: %s body=%s", path, resp.Status, respBody)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
