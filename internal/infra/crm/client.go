// Package crm is a minimal client for the CreditsPanama back-office API
// used to look up a customer's account by identity number.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://lab.creditspanama.com/api/v1"

// Client talks to the back-office API. The API uses a two-step scheme: the
// static key buys a short-lived session token, the token authorizes lookups.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a new back-office client.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used in tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// login exchanges the API key for a session token.
func (c *Client) login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("crm login read: %w", err)
	}

	var out struct {
		SessionAuth string `json:"session_auth"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("crm login decode: %w (body=%s)", err, body)
	}
	if out.SessionAuth == "" {
		return "", fmt.Errorf("crm login: no session_auth in response")
	}
	return out.SessionAuth, nil
}

// Customer looks up a customer record by DNI. The returned map is the raw
// "data" object; a record with an "error" key means the DNI is unknown.
func (c *Client) Customer(ctx context.Context, dni string) (map[string]any, error) {
	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"dni": dni})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat_bots/customer", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm customer lookup: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("crm customer decode: %w", err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("crm customer lookup: response carried no data object")
	}
	return out.Data, nil
}
