package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/usecase"
)

// SignatureValidator checks a webhook's authenticity header.
type SignatureValidator interface {
	ValidateSignature(requestURL string, form url.Values, signature string) bool
}

// TurnSubmitter is the slice of the debounce coordinator the webhook needs.
type TurnSubmitter interface {
	Submit(msg *domain.InboundMessage)
}

// ClientWebhook handles inbound events from the messaging platform: text
// messages, media attachments and the buffered-media release path.
type ClientWebhook struct {
	validator   SignatureValidator
	publicURL   string
	coordinator TurnSubmitter
	media       *usecase.MediaFlow
}

// NewClientWebhook creates the client webhook handler. publicURL is the
// externally visible base URL signatures are computed against.
func NewClientWebhook(validator SignatureValidator, publicURL string, coordinator TurnSubmitter, media *usecase.MediaFlow) *ClientWebhook {
	return &ClientWebhook{
		validator:   validator,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		coordinator: coordinator,
		media:       media,
	}
}

// mediaPayload is one entry of the webhook's Media JSON field.
type mediaPayload struct {
	Sid         string `json:"Sid"`
	ContentType string `json:"ContentType"`
}

// Handle processes one webhook delivery. The platform retries non-200
// responses aggressively, so every outcome, including a failed signature
// check, answers 200 "Ok".
func (h *ClientWebhook) Handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		fmt.Printf("[Webhook] Malformed client webhook form: %v\n", err)
		ok(w)
		return
	}

	signature := r.Header.Get("X-Twilio-Signature")
	if !h.validator.ValidateSignature(h.publicURL+r.URL.Path, r.PostForm, signature) {
		fmt.Printf("[Webhook] Signature check failed for %s, dropping request\n", r.URL.Path)
		ok(w)
		return
	}

	body := r.PostForm.Get("Body")
	author := r.PostForm.Get("Author")
	conversationSID := r.PostForm.Get("ConversationSid")
	chatServiceSID := r.PostForm.Get("ChatServiceSid")

	if body != "" {
		msg := &domain.InboundMessage{
			Text:           body,
			Author:         author,
			ConversationID: conversationSID,
		}
		handled, err := h.media.ReleasePending(r.Context(), msg)
		if err != nil {
			fmt.Printf("[Webhook] Media release failed for %s: %v\n", conversationSID, err)
		}
		if handled {
			ok(w)
			return
		}
	}

	if raw := r.PostForm.Get("Media"); raw != "" {
		h.handleMedia(r.Context(), conversationSID, author, chatServiceSID, raw)
		ok(w)
		return
	}

	if body == "" {
		ok(w)
		return
	}

	h.coordinator.Submit(&domain.InboundMessage{
		Text:           body,
		Author:         author,
		ConversationID: conversationSID,
	})
	ok(w)
}

func (h *ClientWebhook) handleMedia(ctx context.Context, conversationSID, author, chatServiceSID, raw string) {
	var payload []mediaPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		fmt.Printf("[Webhook] Malformed Media field for %s: %v\n", conversationSID, err)
		return
	}

	items := make([]usecase.MediaItem, 0, len(payload))
	for _, m := range payload {
		items = append(items, usecase.MediaItem{SID: m.Sid, ContentType: m.ContentType})
	}
	if err := h.media.HandleIncoming(ctx, conversationSID, author, chatServiceSID, items); err != nil {
		fmt.Printf("[Webhook] Media handling failed for %s: %v\n", conversationSID, err)
	}
}

func ok(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ok"))
}
