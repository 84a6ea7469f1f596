package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
)

func TestRun_DefaultReplyWhenEngineSaysNothingToClient(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "8-123-4567"
	f.engine.segments = nil

	if err := f.processor.Run(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := f.messenger.lastSent(); got != ReplyAgentSoon {
		t.Fatalf("expected fallback acknowledgment, got %q", got)
	}
	if f.analytics.increments != 1 {
		t.Fatalf("expected exactly one counter increment, got %d", f.analytics.increments)
	}
}

func TestRun_LastClientSegmentWinsAndAgentSegmentEscalates(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "8-123-4567"
	f.engine.segments = []domain.Segment{
		{Target: domain.SegmentClient, Text: "primera"},
		{Target: domain.SegmentAgent, Text: "resumen para el agente"},
		{Target: domain.SegmentClient, Text: "segunda"},
	}

	if err := f.processor.Run(context.Background(), inbound("necesito ayuda")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := f.messenger.lastSent(); got != "segunda" {
		t.Fatalf("expected last client segment, got %q", got)
	}
	if f.handoffs.count() != 1 {
		t.Fatalf("expected agent segment to open a handoff, got %d records", f.handoffs.count())
	}
	if len(f.agent.texts) != 0 {
		t.Fatalf("opening text goes via OpenThread, not SendText: %v", f.agent.texts)
	}
}

func TestRun_UnknownDNIAsksForIt(t *testing.T) {
	f := newFixture()
	f.engine.gatherReply = "¿Me puedes compartir tu número de cédula?"

	if err := f.processor.Run(context.Background(), inbound("hola buenas")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := f.messenger.lastSent(); got != f.engine.gatherReply {
		t.Fatalf("expected gather prompt, got %q", got)
	}
	if f.engine.supportCalls != 0 {
		t.Fatalf("support must not run without a DNI")
	}
}

func TestRun_DNIInMessagePersistsAndSkipsGather(t *testing.T) {
	f := newFixture()
	f.engine.segments = []domain.Segment{{Target: domain.SegmentClient, Text: "listo"}}

	if err := f.processor.Run(context.Background(), inbound("mi cedula es 8-123-4567")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.sessions.dni["CH123"] != "8-123-4567" {
		t.Fatalf("expected DNI persisted, got %q", f.sessions.dni["CH123"])
	}
	if f.engine.gatherCalls != 0 {
		t.Fatalf("gather must not run when the message carries the DNI")
	}
	if f.engine.supportCalls != 1 {
		t.Fatalf("expected one support call, got %d", f.engine.supportCalls)
	}
}

func TestRun_RestartClearsStateAndIsIdempotent(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "8-123-4567"
	f.memory.working["CH123"] = []domain.MemoryMessage{{Kind: domain.KindHuman, Text: "antes"}}
	f.engine.restart = true

	for i := 0; i < 2; i++ {
		if err := f.processor.Run(context.Background(), inbound("reiniciar chat")); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
		if got := f.messenger.lastSent(); got != ReplyChatRestarted {
			t.Fatalf("run %d: expected restart notice, got %q", i, got)
		}
	}
	if len(f.memory.working["CH123"]) != 0 {
		t.Fatalf("expected working memory cleared, got %v", f.memory.working["CH123"])
	}
	if _, ok := f.sessions.dni["CH123"]; ok {
		t.Fatalf("expected session deleted")
	}
	// The audit log keeps the restart exchanges.
	if len(f.memory.permanent) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(f.memory.permanent))
	}
}

func TestRun_AgentOwnedConversationBypassesEngine(t *testing.T) {
	f := newFixture()
	f.handoffs.byConv["CH123"] = &domain.Handoff{ChatID: "chat-9", ConversationID: "CH123"}
	f.handoffs.byChat["chat-9"] = f.handoffs.byConv["CH123"]

	if err := f.processor.Run(context.Background(), inbound("sigo esperando")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.engine.calls() != 0 {
		t.Fatalf("engine must not run for an agent-owned conversation")
	}
	if len(f.agent.texts) != 1 || f.agent.texts[0] != "sigo esperando" {
		t.Fatalf("expected message relayed to agent, got %v", f.agent.texts)
	}
	if len(f.messenger.sent) != 0 {
		t.Fatalf("no bot reply expected, got %v", f.messenger.sent)
	}
	if f.analytics.increments != 1 {
		t.Fatalf("counter still increments on the forward path, got %d", f.analytics.increments)
	}
	if len(f.memory.permanent) != 1 || f.memory.permanent[0].Kind != domain.KindClient {
		t.Fatalf("expected one client audit entry, got %v", f.memory.permanent)
	}
}

func TestRun_KillSwitchForcesHandover(t *testing.T) {
	f := newFixture()
	f.killSwitch.enabled = false

	if err := f.processor.Run(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.engine.calls() != 0 {
		t.Fatalf("engine must not run while the switch is off")
	}
	if f.handoffs.count() != 1 {
		t.Fatalf("expected a forced handoff, got %d records", f.handoffs.count())
	}
	if len(f.agent.texts) != 1 || f.agent.texts[0] != "hola" {
		t.Fatalf("expected client text relayed after forced open, got %v", f.agent.texts)
	}
}

func TestRun_AccountLookupRejectionAnswersWithoutEscalating(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "9-999-9999"
	f.accounts.err = &domain.LookupError{
		UserMessage: "Lo sentimos, no pudimos encontrar ese número de DNI. ¿Podrías verificar si es correcto?",
	}

	if err := f.processor.Run(context.Background(), inbound("ese es mi numero")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := f.messenger.lastSent(); got != f.accounts.err.(*domain.LookupError).UserMessage {
		t.Fatalf("expected lookup rejection message, got %q", got)
	}
	if f.handoffs.count() != 0 {
		t.Fatalf("a not-found DNI must not escalate")
	}
	if _, ok := f.sessions.dni["CH123"]; ok {
		t.Fatalf("expected session dropped so the user can retry")
	}
}

func TestRun_UpstreamFailureEscalatesAndApologizes(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "8-123-4567"
	f.engine.supportErr = errors.New("rate limited")

	if err := f.processor.Run(context.Background(), inbound("hola")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := f.messenger.lastSent(); got != ReplyUpstreamError {
		t.Fatalf("expected upstream apology, got %q", got)
	}
	if f.handoffs.count() != 1 {
		t.Fatalf("expected escalation on upstream failure")
	}
}

func TestRun_HistoryExcludesCurrentMessage(t *testing.T) {
	f := newFixture()
	f.sessions.dni["CH123"] = "8-123-4567"
	f.memory.working["CH123"] = []domain.MemoryMessage{{Kind: domain.KindBot, Text: "previa"}}

	var seen int
	f.engine.segments = []domain.Segment{{Target: domain.SegmentClient, Text: "ok"}}
	base := f.engine
	f.processor.engine = engineFunc(func(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error) {
		seen = len(history)
		return base.Support(ctx, message, history, account)
	})

	if err := f.processor.Run(context.Background(), inbound("actual")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected 1 prior message in history, got %d", seen)
	}
}

// engineFunc adapts a support callback into a full engine for one test.
type engineFunc func(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error)

func (f engineFunc) RestartIntent(ctx context.Context, message string) (bool, error) {
	return false, nil
}

func (f engineFunc) GatherDNI(ctx context.Context, message string, history []domain.MemoryMessage) (string, error) {
	return "", nil
}

func (f engineFunc) Support(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error) {
	return f(ctx, message, history, account)
}
