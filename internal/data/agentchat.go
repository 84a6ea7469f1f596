package data

import (
	"context"
	"fmt"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/infra/b2chat"
	"github.com/ponxai/credits-bridge/internal/infra/storage"
)

// agentChatRepo implements the agent-platform port over the B2Chat API.
// Media is re-hosted before forwarding: the platform downloads attachments
// lazily and the messaging provider's URLs expire first.
type agentChatRepo struct {
	client  *b2chat.Client
	storage *storage.Client
}

// NewAgentChat creates a new agent-platform adapter.
func NewAgentChat(client *b2chat.Client, store *storage.Client) repo.AgentChat {
	return &agentChatRepo{client: client, storage: store}
}

// OpenThread opens a new agent-side chat for the contact.
func (r *agentChatRepo) OpenThread(ctx context.Context, contact domain.Contact, openingMsg string) (string, error) {
	return r.client.OpenChat(ctx, b2chat.Contact{
		FullName:       contact.FullName,
		Identification: contact.Identification,
		CallingCode:    contact.CallingCode,
		Number:         contact.Number,
	}, openingMsg)
}

// SendText relays a text message onto an open chat.
func (r *agentChatRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

// SendImage re-hosts the image and relays the permanent URL.
func (r *agentChatRepo) SendImage(ctx context.Context, chatID, url string) error {
	hosted, err := r.storage.Rehost(ctx, url, storage.ImageBucket)
	if err != nil {
		return fmt.Errorf("rehost image: %w", err)
	}
	return r.client.SendImage(ctx, chatID, hosted)
}

// SendFile re-hosts the file and relays the permanent URL.
func (r *agentChatRepo) SendFile(ctx context.Context, chatID, url string) error {
	hosted, err := r.storage.Rehost(ctx, url, storage.FileBucket)
	if err != nil {
		return fmt.Errorf("rehost file: %w", err)
	}
	return r.client.SendFile(ctx, chatID, hosted)
}
