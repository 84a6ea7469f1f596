package data

import (
	"context"

	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/infra/twilio"
)

// messengerRepo implements the client-messaging port over the Twilio
// Conversations API.
type messengerRepo struct {
	client *twilio.Client
}

// NewMessenger creates a new client-messaging adapter.
func NewMessenger(client *twilio.Client) repo.Messenger {
	return &messengerRepo{client: client}
}

// SendToClient posts a bot reply into the conversation.
func (r *messengerRepo) SendToClient(ctx context.Context, conversationID, body string) error {
	return r.client.SendMessage(ctx, conversationID, body)
}

// ResolveMediaURL resolves a media SID to a temporary download URL.
func (r *messengerRepo) ResolveMediaURL(ctx context.Context, mediaSID, chatServiceSID string) (string, error) {
	return r.client.FetchMediaURL(ctx, mediaSID, chatServiceSID)
}
