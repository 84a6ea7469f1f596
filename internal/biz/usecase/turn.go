package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// TurnProcessor executes exactly one logical conversation turn for one
// resolved (possibly concatenated) message.
type TurnProcessor struct {
	sessions  repo.SessionRepo
	handoffs  repo.HandoffRepo
	memory    repo.MemoryRepo
	killSwitch repo.SwitchRepo
	analytics repo.AnalyticsRepo
	engine    repo.Engine
	accounts  repo.Accounts
	messenger repo.Messenger
	handover  *Handover
}

// NewTurnProcessor creates a new turn processor.
func NewTurnProcessor(
	store *repo.Store,
	engine repo.Engine,
	accounts repo.Accounts,
	messenger repo.Messenger,
	handover *Handover,
) *TurnProcessor {
	return &TurnProcessor{
		sessions:   store.Sessions,
		handoffs:   store.Handoffs,
		memory:     store.Memory,
		killSwitch: store.Switch,
		analytics:  store.Analytics,
		engine:     engine,
		accounts:   accounts,
		messenger:  messenger,
		handover:   handover,
	}
}

// Run processes one turn end to end: decides ownership, executes the bot
// branch when the conversation is bot-owned, and delivers the outcome.
func (p *TurnProcessor) Run(ctx context.Context, msg *domain.InboundMessage) error {
	// Exactly once per turn, before any branch.
	if err := p.analytics.IncrementMonth(ctx); err != nil {
		fmt.Printf("[Turn] Failed to increment monthly counter: %v\n", err)
	}

	chatID, err := p.handoffs.ChatID(ctx, msg.ConversationID)
	if err != nil {
		fmt.Printf("[Turn] Handoff lookup failed for %s, assuming bot-owned: %v\n", msg.ConversationID, err)
		chatID = ""
	}
	if chatID != "" {
		// Agent-owned: the engine never sees the message.
		_ = p.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindClient, msg.Text, msg.Author)
		return p.handover.ForwardText(ctx, chatID, msg.Text)
	}

	enabled, err := p.killSwitch.BotEnabled(ctx)
	if err != nil {
		fmt.Printf("[Turn] Kill-switch lookup failed, assuming enabled: %v\n", err)
		enabled = true
	}
	if !enabled {
		if err := p.handover.OpenOrContinue(ctx, "Bot off", msg.ConversationID, "off-switch-triggered", msg.Author); err != nil {
			return fmt.Errorf("forced handover: %w", err)
		}
		_ = p.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindClient, msg.Text, msg.Author)
		newChatID, err := p.handoffs.ChatID(ctx, msg.ConversationID)
		if err != nil || newChatID == "" {
			return err
		}
		return p.handover.ForwardText(ctx, newChatID, msg.Text)
	}

	reply, err := p.execute(ctx, msg)
	if err != nil {
		return err
	}
	return p.messenger.SendToClient(ctx, msg.ConversationID, reply)
}

// execute runs the bot-owned branch of a turn and returns the reply text.
func (p *TurnProcessor) execute(ctx context.Context, msg *domain.InboundMessage) (string, error) {
	restart, err := p.engine.RestartIntent(ctx, msg.Text)
	if err != nil {
		return p.recoverUpstream(ctx, msg, msg.DNI, err), nil
	}
	if restart {
		// Takes precedence over every other branch. Running it again on an
		// already-empty conversation yields the same notice.
		if err := p.memory.ClearWorking(ctx, msg.ConversationID); err != nil {
			fmt.Printf("[Turn] Failed to clear memory for %s: %v\n", msg.ConversationID, err)
		}
		_ = p.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindHuman, msg.Text, msg.Author)
		_ = p.memory.AppendPermanent(ctx, msg.ConversationID, domain.KindBot, ReplyChatRestarted, msg.Author)
		if err := p.sessions.Delete(ctx, msg.ConversationID); err != nil {
			fmt.Printf("[Turn] Failed to delete session for %s: %v\n", msg.ConversationID, err)
		}
		return ReplyChatRestarted, nil
	}

	// History is loaded before the current message joins it.
	history, err := p.memory.History(ctx, msg.ConversationID)
	if err != nil {
		fmt.Printf("[Turn] History load failed for %s, proceeding with none: %v\n", msg.ConversationID, err)
		history = nil
	}
	_ = p.memory.Append(ctx, msg.ConversationID, domain.KindHuman, msg.Text, msg.Author)

	dni := msg.DNI
	if dni == "" {
		stored, err := p.sessions.GetDNI(ctx, msg.ConversationID)
		if err != nil {
			fmt.Printf("[Turn] Session lookup failed for %s: %v\n", msg.ConversationID, err)
		}
		dni = stored
	}

	firstResolution := false
	if dni == "" {
		dni = domain.FindDNI(msg.Text)
		if dni == "" {
			reply, err := p.engine.GatherDNI(ctx, msg.Text, history)
			if err != nil {
				return p.recoverUpstream(ctx, msg, "", err), nil
			}
			_ = p.memory.Append(ctx, msg.ConversationID, domain.KindBot, reply, msg.Author)
			return reply, nil
		}
		firstResolution = true
	}

	if firstResolution {
		if err := p.sessions.UpsertDNI(ctx, msg.ConversationID, dni); err != nil {
			fmt.Printf("[Turn] Failed to persist DNI for %s: %v\n", msg.ConversationID, err)
		}
	}

	account, err := p.accounts.Context(ctx, dni)
	if err != nil {
		var lookupErr *domain.LookupError
		if errors.As(err, &lookupErr) {
			_ = p.sessions.Delete(ctx, msg.ConversationID)
			if lookupErr.Escalate() {
				_ = p.handover.OpenOrContinue(ctx, dni, msg.ConversationID, lookupErr.AgentNote, msg.Author)
			}
			return lookupErr.UserMessage, nil
		}
		return p.recoverUpstream(ctx, msg, dni, err), nil
	}

	segments, err := p.engine.Support(ctx, msg.Text, history, account)
	if err != nil {
		return p.recoverUpstream(ctx, msg, dni, err), nil
	}

	reply := ""
	for _, segment := range segments {
		switch segment.Target {
		case domain.SegmentClient:
			// Several client segments: the most recent one wins.
			reply = segment.Text
		case domain.SegmentAgent:
			_ = p.handover.OpenOrContinue(ctx, dni, msg.ConversationID, segment.Text, msg.Author)
		}
	}
	if reply == "" {
		// Escalation may be silent toward the user; never leave them with
		// no acknowledgment at all.
		reply = ReplyAgentSoon
	}

	_ = p.memory.Append(ctx, msg.ConversationID, domain.KindBot, reply, msg.Author)
	return reply, nil
}

// recoverUpstream handles vendor failures: escalate the conversation to a
// human with a diagnostic note and apologize to the user in their language.
func (p *TurnProcessor) recoverUpstream(ctx context.Context, msg *domain.InboundMessage, dni string, cause error) string {
	fmt.Printf("[Turn] Upstream failure for %s: %v\n", msg.ConversationID, cause)

	identity := dni
	if identity == "" {
		identity = "unknown"
	}
	note := fmt.Sprintf("Upstream error while processing the turn: %v", cause)
	_ = p.handover.OpenOrContinue(ctx, identity, msg.ConversationID, note, msg.Author)
	return ReplyUpstreamError
}
