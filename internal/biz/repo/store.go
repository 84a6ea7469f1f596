package repo

import (
	"context"
	"errors"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
)

// Sentinel errors shared by every store backend.
var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate key")
)

// SessionRepo persists per-conversation session state (collection session-dni).
type SessionRepo interface {
	// GetDNI returns the stored identity number, "" when unknown.
	GetDNI(ctx context.Context, conversationID string) (string, error)

	// UpsertDNI stores the identity number, creating the session if needed.
	UpsertDNI(ctx context.Context, conversationID, dni string) error

	// Delete removes the session entirely.
	Delete(ctx context.Context, conversationID string) error

	// AddPendingMedia appends one media reference, preserving insertion order.
	AddPendingMedia(ctx context.Context, conversationID string, media domain.MediaRef) error

	// PendingMedia returns the buffered media in insertion order.
	PendingMedia(ctx context.Context, conversationID string) ([]domain.MediaRef, error)

	// ClearPendingMedia empties the buffered media list.
	ClearPendingMedia(ctx context.Context, conversationID string) error
}

// HandoffRepo persists the agent-side chat mapping (collection chat-handoff).
// Both chat_id and conversation_id are unique; Insert returns ErrDuplicate
// when either already exists.
type HandoffRepo interface {
	Insert(ctx context.Context, h *domain.Handoff) error

	// ChatID returns the agent-side chat id for a conversation, "" when the
	// conversation is bot-owned.
	ChatID(ctx context.Context, conversationID string) (string, error)

	// ConversationID returns the conversation mapped to an agent-side chat,
	// "" when no mapping exists.
	ConversationID(ctx context.Context, chatID string) (string, error)

	// PhoneNumber returns the originating phone number for a chat.
	PhoneNumber(ctx context.Context, chatID string) (string, error)

	// SetDirectToAgent flips the "bot is paused" flag.
	SetDirectToAgent(ctx context.Context, chatID string, direct bool) error

	// DeleteByChatID removes the mapping, returning ownership to the bot.
	DeleteByChatID(ctx context.Context, chatID string) error
}

// MemoryRepo persists conversation history: a working buffer fed to the
// engine (message-store) and a permanent audit log (message-store-permanent).
type MemoryRepo interface {
	// History returns the working buffer in chronological order.
	History(ctx context.Context, conversationID string) ([]domain.MemoryMessage, error)

	// Append writes to both the working buffer and the audit log.
	Append(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error

	// AppendPermanent writes to the audit log only.
	AppendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error

	// ClearWorking discards the working buffer, keeping the audit log.
	ClearWorking(ctx context.Context, conversationID string) error
}

// SwitchRepo persists the global kill-switch (collection switch).
type SwitchRepo interface {
	// BotEnabled reports whether autonomous replies are allowed.
	// Defaults to true when the switch document is absent.
	BotEnabled(ctx context.Context) (bool, error)

	// Toggle flips the switch and returns the new state.
	Toggle(ctx context.Context) (bool, error)
}

// AnalyticsRepo persists usage counters (collection analytics).
type AnalyticsRepo interface {
	// IncrementMonth bumps the counter for the current calendar month.
	IncrementMonth(ctx context.Context) error

	// YearCounts returns the per-month counters for one year.
	YearCounts(ctx context.Context, year int) ([]domain.MonthlyCount, error)
}

// Store bundles every repository of one document-store backend.
type Store struct {
	Sessions  SessionRepo
	Handoffs  HandoffRepo
	Memory    MemoryRepo
	Switch    SwitchRepo
	Analytics AnalyticsRepo
}
