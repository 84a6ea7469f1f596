package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
	"github.com/ponxai/credits-bridge/internal/conf"
	"github.com/ponxai/credits-bridge/internal/infra/llm"
)

// chatClient is the slice of the LLM client the engine needs.
type chatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// engineRepo implements the conversation engine over a chat-completions API.
type engineRepo struct {
	chat    chatClient
	prompts *conf.PromptsConfig
}

// NewEngine creates a new conversation engine.
func NewEngine(chat *llm.Client, prompts *conf.PromptsConfig) repo.Engine {
	if prompts == nil {
		prompts = conf.DefaultPromptsConfig()
	}
	return &engineRepo{chat: chat, prompts: prompts}
}

// RestartIntent classifies whether the message asks to restart the chat.
// History is deliberately not sent: the classification is cheap and local.
func (e *engineRepo) RestartIntent(ctx context.Context, message string) (bool, error) {
	prompt := strings.ReplaceAll(e.prompts.Engine.RestartTemplate, "{message}", message)
	reply, err := e.chat.Chat(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.TrimSpace(strings.ToUpper(reply)), "Y"), nil
}

// GatherDNI runs the pre-identification chain: greet, answer general
// questions, steer the user toward providing their cedula.
func (e *engineRepo) GatherDNI(ctx context.Context, message string, history []domain.MemoryMessage) (string, error) {
	prompt := strings.NewReplacer(
		"{history}", renderHistory(history),
		"{message}", message,
	).Replace(e.prompts.Engine.GatherTemplate)

	reply, err := e.chat.Chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Support runs the account-support chain and decodes its segmented output.
func (e *engineRepo) Support(ctx context.Context, message string, history []domain.MemoryMessage, account domain.AccountContext) ([]domain.Segment, error) {
	prompt := strings.NewReplacer(
		"{user_context}", renderAccount(account),
		"{history}", renderHistory(history),
		"{message}", message,
	).Replace(e.prompts.Engine.SupportTemplate)

	reply, err := e.chat.Chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	segments, err := domain.DecodeSegments([]byte(stripCodeFence(reply)))
	if err != nil {
		return nil, fmt.Errorf("support chain output: %w", err)
	}
	return segments, nil
}

// renderHistory formats the working buffer the way the prompts expect it.
func renderHistory(history []domain.MemoryMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Kind {
		case domain.KindBot:
			b.WriteString("AI: ")
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(m.Text)
	}
	return b.String()
}

// renderAccount serializes the account context as JSON so field names stay
// exactly as the prompt rules reference them.
func renderAccount(account domain.AccountContext) string {
	b, err := json.Marshal(account)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// stripCodeFence unwraps a ```json ... ``` block when the model adds one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
