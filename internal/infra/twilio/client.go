// Package twilio is a minimal client for the Twilio Conversations API:
// outbound replies, media resolution and webhook signature validation.
package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultConversationsURL = "https://conversations.twilio.com/v1"
	defaultMediaURL         = "https://mcs.us1.twilio.com/v1"

	// botAuthor is the author name outbound bot replies carry, so the
	// agent-side webhook can tell them apart from client messages.
	botAuthor = "creditspanama-chatbot"
)

// Client talks to the Twilio Conversations and Media Content services.
type Client struct {
	accountSID       string
	authToken        string
	conversationsURL string
	mediaURL         string
	http             *http.Client
}

// NewClient creates a new Twilio client with the given account credentials.
func NewClient(accountSID, authToken string) *Client {
	return &Client{
		accountSID:       accountSID,
		authToken:        authToken,
		conversationsURL: defaultConversationsURL,
		mediaURL:         defaultMediaURL,
		http:             &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURLs overrides the API endpoints, used in tests.
func (c *Client) SetBaseURLs(conversations, media string) {
	c.conversationsURL = strings.TrimSuffix(conversations, "/")
	c.mediaURL = strings.TrimSuffix(media, "/")
}

// BotAuthor returns the author name the client stamps on outbound replies.
func (c *Client) BotAuthor() string { return botAuthor }

// SendMessage posts a bot reply into a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationSID, body string) error {
	form := url.Values{
		"Author": {botAuthor},
		"Body":   {body},
	}
	endpoint := fmt.Sprintf("%s/Conversations/%s/Messages", c.conversationsURL, conversationSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio api error: %s body=%s", resp.Status, respBody)
	}
	return nil
}

// FetchMediaURL resolves a media SID to a short-lived direct download URL.
func (c *Client) FetchMediaURL(ctx context.Context, mediaSID, chatServiceSID string) (string, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/Media/%s", c.mediaURL, chatServiceSID, mediaSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twilio media error: %s body=%s", resp.Status, respBody)
	}

	var out struct {
		Links struct {
			ContentDirectTemporary string `json:"content_direct_temporary"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("twilio media decode: %w", err)
	}
	if out.Links.ContentDirectTemporary == "" {
		return "", fmt.Errorf("twilio media %s: no temporary content link", mediaSID)
	}
	return out.Links.ContentDirectTemporary, nil
}

// ValidateSignature checks the X-Twilio-Signature header of a webhook: the
// signature is the base64 HMAC-SHA1 of the full request URL with every form
// parameter appended in lexicographic key order.
func (c *Client) ValidateSignature(requestURL string, form url.Values, signature string) bool {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(c.authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
