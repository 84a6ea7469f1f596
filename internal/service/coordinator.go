package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
)

// TurnRunner processes one resolved (possibly concatenated) message.
type TurnRunner interface {
	Run(ctx context.Context, msg *domain.InboundMessage) error
}

// Coordinator collapses bursts of messages from one sender into a single
// logical turn. Every new message restarts the sender's quiescence timer;
// when the sender stays quiet for the full window, the buffered texts are
// space-joined in arrival order and handed to the turn runner exactly once.
//
// The buffer is process-local: running several instances splits senders
// across independent windows. Known scaling limitation.
type Coordinator struct {
	runner  TurnRunner
	window  time.Duration
	timeout time.Duration // upper bound for one downstream turn

	mu      sync.Mutex
	buffers map[string]*senderBuffer
	nextGen uint64
}

// senderBuffer holds the not-yet-processed messages of one sender plus the
// currently scheduled quiescence timer.
type senderBuffer struct {
	messages []*domain.InboundMessage
	timer    *time.Timer
	gen      uint64
}

// CoordinatorConfig contains coordinator configuration.
type CoordinatorConfig struct {
	Window      time.Duration // quiescence window, default 16s
	TurnTimeout time.Duration // per-turn processing bound, default 2m
}

// DefaultCoordinatorConfig returns the default coordinator configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Window:      16 * time.Second,
		TurnTimeout: 2 * time.Minute,
	}
}

// NewCoordinator creates a new debounce coordinator.
func NewCoordinator(runner TurnRunner, cfg CoordinatorConfig) *Coordinator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultCoordinatorConfig().Window
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultCoordinatorConfig().TurnTimeout
	}
	return &Coordinator{
		runner:  runner,
		window:  cfg.Window,
		timeout: cfg.TurnTimeout,
		buffers: make(map[string]*senderBuffer),
	}
}

// Submit buffers one inbound message and (re)starts the sender's quiescence
// timer. Safe for concurrent use across and within senders.
func (c *Coordinator) Submit(msg *domain.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.buffers[msg.Author]
	if !ok {
		buf = &senderBuffer{}
		c.buffers[msg.Author] = buf
	}
	buf.messages = append(buf.messages, msg)

	if buf.timer != nil {
		buf.timer.Stop()
	}

	// The generation is globally monotonic: a superseded callback that
	// already fired past Stop finds a mismatch and backs off, even if the
	// buffer has been drained and recreated in the meantime.
	c.nextGen++
	gen := c.nextGen
	buf.gen = gen

	sender := msg.Author
	buf.timer = time.AfterFunc(c.window, func() {
		c.flush(sender, gen)
	})
}

// Cancel discards the sender's pending buffer, if any. Used when a media
// message preempts the text flow.
func (c *Coordinator) Cancel(senderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.buffers[senderID]
	if !ok {
		return
	}
	if buf.timer != nil {
		buf.timer.Stop()
	}
	delete(c.buffers, senderID)
}

// Pending reports whether the sender currently has a buffered turn.
func (c *Coordinator) Pending(senderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.buffers[senderID]
	return ok
}

// flush is the quiescence callback: it atomically snapshots and removes the
// sender's buffer, then runs the turn outside the lock.
func (c *Coordinator) flush(senderID string, gen uint64) {
	c.mu.Lock()
	buf, ok := c.buffers[senderID]
	if !ok || buf.gen != gen {
		// Raced with a concurrent clear or a newer timer.
		c.mu.Unlock()
		return
	}
	messages := buf.messages
	delete(c.buffers, senderID)
	c.mu.Unlock()

	if len(messages) == 0 {
		return
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}

	// One synthetic message carrying the first message's metadata.
	combined := *messages[0]
	combined.Text = strings.Join(texts, " ")

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// The buffer is already gone: a runner failure cannot re-trigger the
	// same batch.
	if err := c.runner.Run(ctx, &combined); err != nil {
		fmt.Printf("[Coordinator] Turn failed for %s: %v\n", senderID, err)
	}
}
