package repo

import (
	"context"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
)

// Engine is the conversation engine: a black-box language model invoked with
// the user's message and the conversation history.
type Engine interface {
	// RestartIntent reports whether the message asks to restart the chat.
	RestartIntent(ctx context.Context, message string) (bool, error)

	// GatherDNI runs the identity-gathering chain (no business context) and
	// returns its reply verbatim.
	GatherDNI(ctx context.Context, message string, history []domain.MemoryMessage) (string, error)

	// Support runs the account-support chain with business context and
	// returns the ordered tagged segments it produced.
	Support(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error)
}
