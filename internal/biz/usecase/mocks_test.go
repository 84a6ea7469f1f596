package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// Mock implementations shared by the usecase tests.

type mockSessions struct {
	mu      sync.Mutex
	dni     map[string]string
	media   map[string][]domain.MediaRef
	deletes int
}

func newMockSessions() *mockSessions {
	return &mockSessions{dni: make(map[string]string), media: make(map[string][]domain.MediaRef)}
}

func (m *mockSessions) GetDNI(ctx context.Context, conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dni[conversationID], nil
}

func (m *mockSessions) UpsertDNI(ctx context.Context, conversationID, dni string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dni[conversationID] = dni
	return nil
}

func (m *mockSessions) Delete(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dni, conversationID)
	delete(m.media, conversationID)
	m.deletes++
	return nil
}

func (m *mockSessions) AddPendingMedia(ctx context.Context, conversationID string, media domain.MediaRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[conversationID] = append(m.media[conversationID], media)
	return nil
}

func (m *mockSessions) PendingMedia(ctx context.Context, conversationID string) ([]domain.MediaRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.media[conversationID], nil
}

func (m *mockSessions) ClearPendingMedia(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[conversationID] = nil
	return nil
}

type mockHandoffs struct {
	mu     sync.Mutex
	byConv map[string]*domain.Handoff
	byChat map[string]*domain.Handoff
}

func newMockHandoffs() *mockHandoffs {
	return &mockHandoffs{byConv: make(map[string]*domain.Handoff), byChat: make(map[string]*domain.Handoff)}
}

func (m *mockHandoffs) Insert(ctx context.Context, h *domain.Handoff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byConv[h.ConversationID]; ok {
		return repo.ErrDuplicate
	}
	if _, ok := m.byChat[h.ChatID]; ok {
		return repo.ErrDuplicate
	}
	m.byConv[h.ConversationID] = h
	m.byChat[h.ChatID] = h
	return nil
}

func (m *mockHandoffs) ChatID(ctx context.Context, conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byConv[conversationID]; ok {
		return h.ChatID, nil
	}
	return "", nil
}

func (m *mockHandoffs) ConversationID(ctx context.Context, chatID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byChat[chatID]; ok {
		return h.ConversationID, nil
	}
	return "", nil
}

func (m *mockHandoffs) PhoneNumber(ctx context.Context, chatID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byChat[chatID]; ok {
		return h.PhoneNumber, nil
	}
	return "", nil
}

func (m *mockHandoffs) SetDirectToAgent(ctx context.Context, chatID string, direct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byChat[chatID]; ok {
		h.DirectToAgent = direct
	}
	return nil
}

func (m *mockHandoffs) DeleteByChatID(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byChat[chatID]; ok {
		delete(m.byConv, h.ConversationID)
		delete(m.byChat, chatID)
	}
	return nil
}

func (m *mockHandoffs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byConv)
}

type auditEntry struct {
	ConversationID string
	Kind           domain.MessageKind
	Text           string
}

type mockMemory struct {
	mu        sync.Mutex
	working   map[string][]domain.MemoryMessage
	permanent []auditEntry
}

func newMockMemory() *mockMemory {
	return &mockMemory{working: make(map[string][]domain.MemoryMessage)}
}

func (m *mockMemory) History(ctx context.Context, conversationID string) ([]domain.MemoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.working[conversationID], nil
}

func (m *mockMemory) Append(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[conversationID] = append(m.working[conversationID], domain.MemoryMessage{Kind: kind, Text: text})
	m.permanent = append(m.permanent, auditEntry{conversationID, kind, text})
	return nil
}

func (m *mockMemory) AppendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permanent = append(m.permanent, auditEntry{conversationID, kind, text})
	return nil
}

func (m *mockMemory) ClearWorking(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.working, conversationID)
	return nil
}

type mockSwitch struct {
	enabled bool
}

func (m *mockSwitch) BotEnabled(ctx context.Context) (bool, error) { return m.enabled, nil }

func (m *mockSwitch) Toggle(ctx context.Context) (bool, error) {
	m.enabled = !m.enabled
	return m.enabled, nil
}

type mockAnalytics struct {
	mu         sync.Mutex
	increments int
}

func (m *mockAnalytics) IncrementMonth(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments++
	return nil
}

func (m *mockAnalytics) YearCounts(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	return nil, nil
}

type mockEngine struct {
	restart      bool
	restartErr   error
	gatherReply  string
	gatherErr    error
	segments     []domain.Segment
	supportErr   error
	supportCalls int
	gatherCalls  int
}

func (m *mockEngine) RestartIntent(ctx context.Context, message string) (bool, error) {
	return m.restart, m.restartErr
}

func (m *mockEngine) GatherDNI(ctx context.Context, message string, history []domain.MemoryMessage) (string, error) {
	m.gatherCalls++
	return m.gatherReply, m.gatherErr
}

func (m *mockEngine) Support(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error) {
	m.supportCalls++
	return m.segments, m.supportErr
}

func (m *mockEngine) calls() int {
	return m.supportCalls + m.gatherCalls
}

type mockAccounts struct {
	account domain.AccountContext
	err     error
}

func (m *mockAccounts) Context(ctx context.Context, dni string) (domain.AccountContext, error) {
	return m.account, m.err
}

type sentMessage struct {
	ConversationID string
	Body           string
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *mockMessenger) SendToClient(ctx context.Context, conversationID, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{conversationID, body})
	return nil
}

func (m *mockMessenger) ResolveMediaURL(ctx context.Context, mediaSID, chatServiceSID string) (string, error) {
	return "https://media.example/" + mediaSID, nil
}

func (m *mockMessenger) lastSent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Body
}

type mockAgent struct {
	mu      sync.Mutex
	opened  int
	openErr error
	sendErr error
	texts   []string
	images  []string
	files   []string
}

func (m *mockAgent) OpenThread(ctx context.Context, contact domain.Contact, openingMsg string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return "", m.openErr
	}
	m.opened++
	return fmt.Sprintf("chat-%d", m.opened), nil
}

func (m *mockAgent) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockAgent) SendImage(ctx context.Context, chatID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.images = append(m.images, url)
	return nil
}

func (m *mockAgent) SendFile(ctx context.Context, chatID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.files = append(m.files, url)
	return nil
}

// fixture bundles a fully mocked turn-processing stack.
type fixture struct {
	sessions  *mockSessions
	handoffs  *mockHandoffs
	memory    *mockMemory
	killSwitch *mockSwitch
	analytics *mockAnalytics
	engine    *mockEngine
	accounts  *mockAccounts
	messenger *mockMessenger
	agent     *mockAgent
	handover  *Handover
	processor *TurnProcessor
}

func newFixture() *fixture {
	f := &fixture{
		sessions:   newMockSessions(),
		handoffs:   newMockHandoffs(),
		memory:     newMockMemory(),
		killSwitch: &mockSwitch{enabled: true},
		analytics:  &mockAnalytics{},
		engine:     &mockEngine{},
		accounts:   &mockAccounts{account: domain.AccountContext{"total_debt": "100"}},
		messenger:  &mockMessenger{},
		agent:      &mockAgent{},
	}
	f.handover = NewHandover(f.handoffs, f.agent, f.messenger, DefaultHandoverConfig())
	store := &repo.Store{
		Sessions:  f.sessions,
		Handoffs:  f.handoffs,
		Memory:    f.memory,
		Switch:    f.killSwitch,
		Analytics: f.analytics,
	}
	f.processor = NewTurnProcessor(store, f.engine, f.accounts, f.messenger, f.handover)
	return f
}

func inbound(text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		Text:           text,
		Author:         "whatsapp:+50760000000",
		ConversationID: "CH123",
	}
}
