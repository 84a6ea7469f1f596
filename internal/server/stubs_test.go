package server

import (
	"context"
	"net/url"
	"sync"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// Test doubles for the HTTP handlers.

type stubValidator struct {
	valid   bool
	lastURL string
}

func (v *stubValidator) ValidateSignature(requestURL string, form url.Values, signature string) bool {
	v.lastURL = requestURL
	return v.valid
}

type stubCoordinator struct {
	mu        sync.Mutex
	submitted []*domain.InboundMessage
	cancelled []string
}

func (c *stubCoordinator) Submit(msg *domain.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, msg)
}

func (c *stubCoordinator) Cancel(senderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, senderID)
}

type stubSessions struct {
	mu      sync.Mutex
	dni     map[string]string
	media   map[string][]domain.MediaRef
	cleared []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{dni: make(map[string]string), media: make(map[string][]domain.MediaRef)}
}

func (s *stubSessions) GetDNI(ctx context.Context, conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dni[conversationID], nil
}

func (s *stubSessions) UpsertDNI(ctx context.Context, conversationID, dni string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dni[conversationID] = dni
	return nil
}

func (s *stubSessions) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dni, conversationID)
	return nil
}

func (s *stubSessions) AddPendingMedia(ctx context.Context, conversationID string, media domain.MediaRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[conversationID] = append(s.media[conversationID], media)
	return nil
}

func (s *stubSessions) PendingMedia(ctx context.Context, conversationID string) ([]domain.MediaRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media[conversationID], nil
}

func (s *stubSessions) ClearPendingMedia(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[conversationID] = nil
	s.cleared = append(s.cleared, conversationID)
	return nil
}

type stubHandoffs struct {
	mu      sync.Mutex
	byChat  map[string]*domain.Handoff
	deleted []string
	direct  map[string]bool
}

func newStubHandoffs() *stubHandoffs {
	return &stubHandoffs{byChat: make(map[string]*domain.Handoff), direct: make(map[string]bool)}
}

func (s *stubHandoffs) add(h *domain.Handoff) {
	s.byChat[h.ChatID] = h
}

func (s *stubHandoffs) Insert(ctx context.Context, h *domain.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byChat[h.ChatID]; ok {
		return repo.ErrDuplicate
	}
	s.byChat[h.ChatID] = h
	return nil
}

func (s *stubHandoffs) ChatID(ctx context.Context, conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.byChat {
		if h.ConversationID == conversationID {
			return h.ChatID, nil
		}
	}
	return "", nil
}

func (s *stubHandoffs) ConversationID(ctx context.Context, chatID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byChat[chatID]; ok {
		return h.ConversationID, nil
	}
	return "", nil
}

func (s *stubHandoffs) PhoneNumber(ctx context.Context, chatID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byChat[chatID]; ok {
		return h.PhoneNumber, nil
	}
	return "", nil
}

func (s *stubHandoffs) SetDirectToAgent(ctx context.Context, chatID string, direct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct[chatID] = direct
	return nil
}

func (s *stubHandoffs) DeleteByChatID(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
	s.deleted = append(s.deleted, chatID)
	return nil
}

type auditEntry struct {
	ConversationID string
	Kind           domain.MessageKind
	Text           string
	Phone          string
}

type stubMemory struct {
	mu        sync.Mutex
	permanent []auditEntry
}

func (s *stubMemory) History(ctx context.Context, conversationID string) ([]domain.MemoryMessage, error) {
	return nil, nil
}

func (s *stubMemory) Append(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	return s.AppendPermanent(ctx, conversationID, kind, text, phone)
}

func (s *stubMemory) AppendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permanent = append(s.permanent, auditEntry{conversationID, kind, text, phone})
	return nil
}

func (s *stubMemory) ClearWorking(ctx context.Context, conversationID string) error {
	return nil
}

type stubSwitch struct {
	enabled bool
}

func (s *stubSwitch) BotEnabled(ctx context.Context) (bool, error) { return s.enabled, nil }

func (s *stubSwitch) Toggle(ctx context.Context) (bool, error) {
	s.enabled = !s.enabled
	return s.enabled, nil
}

type stubAnalytics struct {
	counts []domain.MonthlyCount
}

func (s *stubAnalytics) IncrementMonth(ctx context.Context) error { return nil }

func (s *stubAnalytics) YearCounts(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	return s.counts, nil
}

type sentMessage struct {
	ConversationID string
	Body           string
}

type stubMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *stubMessenger) SendToClient(ctx context.Context, conversationID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{conversationID, body})
	return nil
}

func (s *stubMessenger) ResolveMediaURL(ctx context.Context, mediaSID, chatServiceSID string) (string, error) {
	return "https://media.example/" + mediaSID, nil
}

type stubAgentChat struct {
	mu     sync.Mutex
	opened int
	texts  []string
	images []string
	files  []string
}

func (s *stubAgentChat) OpenThread(ctx context.Context, contact domain.Contact, openingMsg string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return "chat-stub", nil
}

func (s *stubAgentChat) SendText(ctx context.Context, chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubAgentChat) SendImage(ctx context.Context, chatID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, url)
	return nil
}

func (s *stubAgentChat) SendFile(ctx context.Context, chatID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, url)
	return nil
}

// newStubStore bundles the stubs into a repo.Store.
func newStubStore(sessions *stubSessions, handoffs *stubHandoffs, memory *stubMemory) *repo.Store {
	return &repo.Store{
		Sessions:  sessions,
		Handoffs:  handoffs,
		Memory:    memory,
		Switch:    &stubSwitch{enabled: true},
		Analytics: &stubAnalytics{},
	}
}
