package repo

import (
	"context"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
)

// AgentChat is the human-agent chat platform: opens bot-originated threads
// and relays payloads onto them.
type AgentChat interface {
	// OpenThread requests a new agent-side thread for the contact, seeded
	// with the opening message, and returns the platform's chat id.
	OpenThread(ctx context.Context, contact domain.Contact, openingMsg string) (string, error)

	// SendText posts a plain message on an existing thread.
	SendText(ctx context.Context, chatID, text string) error

	// SendImage posts an image by URL on an existing thread.
	SendImage(ctx context.Context, chatID, url string) error

	// SendFile posts a file by URL on an existing thread.
	SendFile(ctx context.Context, chatID, url string) error
}

// Messenger is the end-user messaging platform.
type Messenger interface {
	// SendToClient delivers a bot/agent reply into a conversation.
	SendToClient(ctx context.Context, conversationID, body string) error

	// ResolveMediaURL exchanges a media sid for a fetchable content URL.
	ResolveMediaURL(ctx context.Context, mediaSID, chatServiceSID string) (string, error)
}

// Accounts looks up business context for a resolved identity number.
// Failures the user must hear about are returned as *domain.LookupError.
type Accounts interface {
	Context(ctx context.Context, dni string) (domain.AccountContext, error)
}
