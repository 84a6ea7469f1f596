package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/biz/usecase"
)

// AgentWebhook handles callbacks from the agent platform: agent messages to
// relay back to the client, and chat lifecycle events.
type AgentWebhook struct {
	handoffs  repo.HandoffRepo
	sessions  repo.SessionRepo
	memory    repo.MemoryRepo
	messenger repo.Messenger
}

// NewAgentWebhook creates the agent webhook handler.
func NewAgentWebhook(store *repo.Store, messenger repo.Messenger) *AgentWebhook {
	return &AgentWebhook{
		handoffs:  store.Handoffs,
		sessions:  store.Sessions,
		memory:    store.Memory,
		messenger: messenger,
	}
}

type agentPayload struct {
	Messages []agentMessage `json:"messages"`
	Events   []agentEvent   `json:"events"`
}

type agentMessage struct {
	Text string    `json:"text"`
	Chat agentChat `json:"chat"`
}

type agentEvent struct {
	Type string    `json:"type"`
	Chat agentChat `json:"chat"`
}

type agentChat struct {
	ChatID string `json:"chat_id"`
}

// Handle processes one callback. Unknown chats are skipped rather than
// failed: the platform also reports chats this service never opened.
func (h *AgentWebhook) Handle(w http.ResponseWriter, r *http.Request) {
	var payload agentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fmt.Printf("[Webhook] Malformed agent webhook payload: %v\n", err)
		ok(w)
		return
	}

	// Messages are independent of each other; relay them concurrently.
	g, ctx := errgroup.WithContext(r.Context())
	for _, msg := range payload.Messages {
		if msg.Text == "" || msg.Chat.ChatID == "" {
			continue
		}
		g.Go(func() error {
			h.relayMessage(ctx, msg.Chat.ChatID, msg.Text)
			return nil
		})
	}
	_ = g.Wait()

	// Lifecycle events mutate the handoff record, keep them in order.
	for _, event := range payload.Events {
		if event.Type == "" || event.Chat.ChatID == "" {
			continue
		}
		h.handleEvent(r.Context(), event.Type, event.Chat.ChatID)
	}

	ok(w)
}

// relayMessage forwards one agent message into the client conversation.
func (h *AgentWebhook) relayMessage(ctx context.Context, chatID, text string) {
	conversationID, err := h.handoffs.ConversationID(ctx, chatID)
	if err != nil {
		fmt.Printf("[Webhook] Handoff lookup failed for chat %s: %v\n", chatID, err)
		return
	}
	if conversationID == "" {
		return
	}
	phone, _ := h.handoffs.PhoneNumber(ctx, chatID)

	_ = h.memory.AppendPermanent(ctx, conversationID, domain.KindAgent, text, phone)
	if err := h.messenger.SendToClient(ctx, conversationID, text); err != nil {
		fmt.Printf("[Webhook] Failed to relay agent message to %s: %v\n", conversationID, err)
	}
}

func (h *AgentWebhook) handleEvent(ctx context.Context, eventType, chatID string) {
	conversationID, err := h.handoffs.ConversationID(ctx, chatID)
	if err != nil {
		fmt.Printf("[Webhook] Handoff lookup failed for chat %s: %v\n", chatID, err)
		return
	}
	phone, _ := h.handoffs.PhoneNumber(ctx, chatID)

	switch eventType {
	case "CLOSED_CHAT":
		if conversationID != "" {
			h.notify(ctx, conversationID, phone, usecase.ReplyAgentClosed)
			if err := h.sessions.ClearPendingMedia(ctx, conversationID); err != nil {
				fmt.Printf("[Webhook] Failed to clear pending media for %s: %v\n", conversationID, err)
			}
		}
		h.deleteHandoff(ctx, chatID)

	case "ASSIGNED_AGENT", "AGENT_STARTED_CHAT":
		if conversationID != "" {
			h.notify(ctx, conversationID, phone, usecase.ReplyAgentJoined)
		}
		if err := h.handoffs.SetDirectToAgent(ctx, chatID, true); err != nil {
			fmt.Printf("[Webhook] Failed to mark chat %s agent-owned: %v\n", chatID, err)
		}

	case "AGENT_UNAVAILABLE":
		fmt.Printf("[Webhook] Agent platform reports AGENT_UNAVAILABLE for chat %s\n", chatID)
		if conversationID != "" {
			h.notify(ctx, conversationID, phone, usecase.ReplyAgentsBusy)
		}
		h.deleteHandoff(ctx, chatID)

	case "CHAT_UNAVAILABLE":
		fmt.Printf("[Webhook] Agent platform reports CHAT_UNAVAILABLE for chat %s\n", chatID)
		if conversationID != "" {
			h.notify(ctx, conversationID, phone, usecase.ReplyAgentPlatform)
		}
		h.deleteHandoff(ctx, chatID)

	default:
		fmt.Printf("[Webhook] Ignoring agent event %s for chat %s\n", eventType, chatID)
	}
}

// notify persists the lifecycle notice and sends it to the client.
func (h *AgentWebhook) notify(ctx context.Context, conversationID, phone, text string) {
	_ = h.memory.AppendPermanent(ctx, conversationID, domain.KindAgent, text, phone)
	if err := h.messenger.SendToClient(ctx, conversationID, text); err != nil {
		fmt.Printf("[Webhook] Failed to notify %s: %v\n", conversationID, err)
	}
}

func (h *AgentWebhook) deleteHandoff(ctx context.Context, chatID string) {
	if err := h.handoffs.DeleteByChatID(ctx, chatID); err != nil {
		fmt.Printf("[Webhook] Failed to delete handoff for chat %s: %v\n", chatID, err)
	}
}
