package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nyaruka/phonenumbers"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// contactIdentification is the fixed identification type the agent platform
// expects for bot-created contacts.
const contactIdentification = 33

// HandoverConfig contains hand-over configuration.
type HandoverConfig struct {
	// FallbackCallingCode is used when the sender address cannot be parsed
	// as a phone number.
	FallbackCallingCode int
}

// DefaultHandoverConfig returns the default hand-over configuration.
func DefaultHandoverConfig() HandoverConfig {
	return HandoverConfig{FallbackCallingCode: 57}
}

// Handover is the agent-handover gateway. It owns the 1:1 mapping between a
// conversation and its agent-side chat thread: it opens threads, relays
// payloads onto them, and tears the mapping down when the thread dies.
type Handover struct {
	handoffs  repo.HandoffRepo
	agent     repo.AgentChat
	messenger repo.Messenger
	config    HandoverConfig

	// Per-conversation serialization for OpenOrContinue. Two concurrent
	// opens for the same conversation must never produce two records.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewHandover creates a new hand-over gateway.
func NewHandover(handoffs repo.HandoffRepo, agent repo.AgentChat, messenger repo.Messenger, config HandoverConfig) *Handover {
	return &Handover{
		handoffs:  handoffs,
		agent:     agent,
		messenger: messenger,
		config:    config,
		locks:     make(map[string]*sync.Mutex),
	}
}

// OpenOrContinue escalates a conversation to a human agent. With no existing
// hand-off record it opens a new agent-side thread and persists the mapping;
// with one, it marks the bot paused and posts the opening text as a follow-up
// on the existing thread. On upstream failure to open, the end user is told
// about the outage and no record is created.
func (g *Handover) OpenOrContinue(ctx context.Context, identity, conversationID, openingText, senderAddr string) error {
	lock := g.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	chatID, err := g.handoffs.ChatID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("lookup handoff: %w", err)
	}
	if chatID != "" {
		if err := g.handoffs.SetDirectToAgent(ctx, chatID, true); err != nil {
			fmt.Printf("[Handover] Failed to mark bot paused for %s: %v\n", chatID, err)
		}
		return g.ForwardText(ctx, chatID, openingText)
	}

	contact := g.buildContact(identity, senderAddr)
	newChatID, err := g.agent.OpenThread(ctx, contact, openingText)
	if err != nil {
		fmt.Printf("[Handover] Failed to open agent thread for %s: %v\n", conversationID, err)
		_ = g.messenger.SendToClient(ctx, conversationID, ReplyOpenFailed)
		return nil
	}

	h := &domain.Handoff{
		ChatID:         newChatID,
		ConversationID: conversationID,
		PhoneNumber:    senderAddr,
		DirectToAgent:  true,
	}
	if err := g.handoffs.Insert(ctx, h); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race with a concurrent open: continue on whichever
			// thread won.
			existing, lookupErr := g.handoffs.ChatID(ctx, conversationID)
			if lookupErr == nil && existing != "" {
				return g.ForwardText(ctx, existing, openingText)
			}
		}
		return fmt.Errorf("persist handoff: %w", err)
	}
	return nil
}

// ForwardText relays a message onto an existing agent-side thread. On
// upstream failure the conversation's user is notified and the hand-off
// record is deleted, so a future message re-opens a fresh thread.
func (g *Handover) ForwardText(ctx context.Context, chatID, text string) error {
	if err := g.agent.SendText(ctx, chatID, text); err != nil {
		g.teardown(ctx, chatID, err)
		return err
	}
	return nil
}

// ForwardMedia relays a media payload onto an existing agent-side thread,
// with the same self-healing failure behavior as ForwardText.
func (g *Handover) ForwardMedia(ctx context.Context, chatID string, media domain.MediaRef) error {
	var err error
	switch media.Kind {
	case domain.MediaImage:
		err = g.agent.SendImage(ctx, chatID, media.URL)
	default:
		err = g.agent.SendFile(ctx, chatID, media.URL)
	}
	if err != nil {
		g.teardown(ctx, chatID, err)
		return err
	}
	return nil
}

// teardown handles a dead agent-side thread: notify the user, drop the record.
func (g *Handover) teardown(ctx context.Context, chatID string, cause error) {
	fmt.Printf("[Handover] Send failed on chat %s: %v\n", chatID, cause)

	conversationID, err := g.handoffs.ConversationID(ctx, chatID)
	if err == nil && conversationID != "" {
		_ = g.messenger.SendToClient(ctx, conversationID, ReplyThreadLost)
	}
	if err := g.handoffs.DeleteByChatID(ctx, chatID); err != nil {
		fmt.Printf("[Handover] Failed to delete handoff for chat %s: %v\n", chatID, err)
	}
}

// buildContact builds the agent-platform contact record from the raw sender
// address. Unparseable numbers fall back to the configured calling code.
func (g *Handover) buildContact(identity, senderAddr string) domain.Contact {
	contact := domain.Contact{
		FullName:       identity,
		Identification: contactIdentification,
		CallingCode:    g.config.FallbackCallingCode,
		Number:         0,
	}

	raw := strings.TrimPrefix(senderAddr, "whatsapp:")
	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return contact
	}
	contact.CallingCode = int(parsed.GetCountryCode())
	contact.Number = int64(parsed.GetNationalNumber())
	return contact
}

func (g *Handover) conversationLock(conversationID string) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()

	lock, ok := g.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[conversationID] = lock
	}
	return lock
}
