package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// MediaItem is one raw media attachment from the messaging platform webhook.
type MediaItem struct {
	SID         string
	ContentType string
}

// Kind classifies the attachment for forwarding.
func (m MediaItem) Kind() domain.MediaKind {
	if strings.HasPrefix(m.ContentType, "image/") {
		return domain.MediaImage
	}
	return domain.MediaFile
}

// TurnBuffer is the slice of the debounce coordinator the media flow needs:
// a media message must drop any text turn pending for the same sender.
type TurnBuffer interface {
	Cancel(senderID string)
}

// MediaFlow handles inbound media: forwarding to an agent thread when the
// sender's identity is known, buffering on the session until it is.
type MediaFlow struct {
	sessions  repo.SessionRepo
	handoffs  repo.HandoffRepo
	memory    repo.MemoryRepo
	messenger repo.Messenger
	handover  *Handover
	buffer    TurnBuffer
}

// NewMediaFlow creates a new media flow.
func NewMediaFlow(
	store *repo.Store,
	messenger repo.Messenger,
	handover *Handover,
	buffer TurnBuffer,
) *MediaFlow {
	return &MediaFlow{
		sessions:  store.Sessions,
		handoffs:  store.Handoffs,
		memory:    store.Memory,
		messenger: messenger,
		handover:  handover,
		buffer:    buffer,
	}
}

// HandleIncoming processes media attachments from one webhook event.
func (f *MediaFlow) HandleIncoming(ctx context.Context, conversationID, author, chatServiceSID string, items []MediaItem) error {
	dni, err := f.sessions.GetDNI(ctx, conversationID)
	if err != nil {
		fmt.Printf("[Media] Session lookup failed for %s: %v\n", conversationID, err)
	}
	if dni != "" {
		return f.forwardKnown(ctx, conversationID, author, chatServiceSID, dni, items)
	}
	return f.bufferUnknown(ctx, conversationID, author, chatServiceSID, items)
}

// forwardKnown relays media for an identified sender, opening an agent
// thread on the fly when the conversation is still bot-owned.
func (f *MediaFlow) forwardKnown(ctx context.Context, conversationID, author, chatServiceSID, dni string, items []MediaItem) error {
	for _, item := range items {
		url, err := f.messenger.ResolveMediaURL(ctx, item.SID, chatServiceSID)
		if err != nil {
			fmt.Printf("[Media] Failed to resolve media %s: %v\n", item.SID, err)
			continue
		}
		media := domain.MediaRef{URL: url, Kind: item.Kind()}

		chatID, err := f.handoffs.ChatID(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("lookup handoff: %w", err)
		}

		opened := false
		if chatID == "" {
			opening := "Image"
			if media.Kind == domain.MediaFile {
				opening = "File"
			}
			if err := f.handover.OpenOrContinue(ctx, dni, conversationID, opening, author); err != nil {
				return fmt.Errorf("open handover: %w", err)
			}
			chatID, err = f.handoffs.ChatID(ctx, conversationID)
			if err != nil || chatID == "" {
				// Open failed upstream; the user was already notified.
				continue
			}
			opened = true
		}

		if err := f.handover.ForwardMedia(ctx, chatID, media); err != nil {
			continue
		}
		_ = f.memory.AppendPermanent(ctx, conversationID, domain.KindClient, url, author)

		if opened {
			_ = f.messenger.SendToClient(ctx, conversationID, ReplyAgentSoon)
		}
	}
	return nil
}

// bufferUnknown stores media on the session and asks for the cedula. Any
// text turn pending for the sender is dropped first.
func (f *MediaFlow) bufferUnknown(ctx context.Context, conversationID, author, chatServiceSID string, items []MediaItem) error {
	if f.buffer != nil {
		f.buffer.Cancel(author)
	}

	var lastKind domain.MediaKind
	for _, item := range items {
		url, err := f.messenger.ResolveMediaURL(ctx, item.SID, chatServiceSID)
		if err != nil {
			fmt.Printf("[Media] Failed to resolve media %s: %v\n", item.SID, err)
			continue
		}
		lastKind = item.Kind()
		if err := f.sessions.AddPendingMedia(ctx, conversationID, domain.MediaRef{URL: url, Kind: lastKind}); err != nil {
			return fmt.Errorf("buffer media: %w", err)
		}
	}

	_ = f.memory.Append(ctx, conversationID, domain.KindHuman, fmt.Sprintf("%s_MESSAGE", lastKind), author)
	_ = f.memory.Append(ctx, conversationID, domain.KindBot, ReplyAskDNIForMedia, author)
	return f.messenger.SendToClient(ctx, conversationID, ReplyAskDNIForMedia)
}

// ReleasePending handles a text message that carries a DNI while media is
// buffered: the conversation is escalated and the backlog drains to the new
// agent thread in insertion order. Returns false when the path does not
// apply and normal turn processing should continue.
func (f *MediaFlow) ReleasePending(ctx context.Context, msg *domain.InboundMessage) (bool, error) {
	dni := domain.FindDNI(msg.Text)
	if dni == "" {
		return false, nil
	}
	pending, err := f.sessions.PendingMedia(ctx, msg.ConversationID)
	if err != nil {
		fmt.Printf("[Media] Pending media lookup failed for %s: %v\n", msg.ConversationID, err)
		return false, nil
	}
	if len(pending) == 0 {
		return false, nil
	}

	if err := f.handover.OpenOrContinue(ctx, dni, msg.ConversationID, "Client has sent an image", msg.Author); err != nil {
		return true, fmt.Errorf("open handover: %w", err)
	}
	if err := f.sessions.UpsertDNI(ctx, msg.ConversationID, dni); err != nil {
		fmt.Printf("[Media] Failed to persist DNI for %s: %v\n", msg.ConversationID, err)
	}

	chatID, err := f.handoffs.ChatID(ctx, msg.ConversationID)
	if err != nil || chatID == "" {
		// Open failed upstream; the user was already notified.
		return true, err
	}

	for _, media := range pending {
		if err := f.handover.ForwardMedia(ctx, chatID, media); err != nil {
			return true, err
		}
		_ = f.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindClient, media.URL, msg.Author)
	}
	_ = f.sessions.ClearPendingMedia(ctx, msg.ConversationID)

	_ = f.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindClient, msg.Text, msg.Author)
	if err := f.handover.ForwardText(ctx, chatID, msg.Text); err != nil {
		return true, err
	}

	return true, f.messenger.SendToClient(ctx, msg.ConversationID, ReplyAgentSoon)
}
