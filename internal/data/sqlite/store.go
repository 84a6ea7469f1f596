// Package sqlite implements the document store on a local SQLite file. It
// serves local development and single-node deployments without a MongoDB.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const monthLayout = "01/2006"

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the database file and returns the
// repository bundle.
func NewStore(dbPath string) (*repo.Store, *Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			dni_number TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS pending_media (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			url TEXT NOT NULL,
			kind TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS handoffs (
			chat_id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL,
			direct_to_agent INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			message TEXT NOT NULL,
			date INTEGER NOT NULL,
			type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages_permanent (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			message TEXT NOT NULL,
			date INTEGER NOT NULL,
			type TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS switch (
			id TEXT PRIMARY KEY,
			chatbot_on INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analytics (
			formatted_date TEXT PRIMARY KEY,
			counter INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_media_session ON pending_media(session_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &Store{db: db}
	bundle := &repo.Store{
		Sessions:  &sessionRepo{db: db},
		Handoffs:  &handoffRepo{db: db},
		Memory:    &memoryRepo{db: db},
		Switch:    &switchRepo{db: db},
		Analytics: &analyticsRepo{db: db},
	}
	return bundle, s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// sessionRepo implements repo.SessionRepo.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) GetDNI(ctx context.Context, conversationID string) (string, error) {
	var dni string
	err := r.db.QueryRowContext(ctx,
		`SELECT dni_number FROM sessions WHERE session_id = ?`, conversationID).Scan(&dni)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	return dni, nil
}

func (r *sessionRepo) UpsertDNI(ctx context.Context, conversationID, dni string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, dni_number) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET dni_number = excluded.dni_number
	`, conversationID, dni)
	if err != nil {
		return fmt.Errorf("session upsert: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, conversationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, conversationID); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_media WHERE session_id = ?`, conversationID); err != nil {
		return fmt.Errorf("pending media delete: %w", err)
	}
	return nil
}

func (r *sessionRepo) AddPendingMedia(ctx context.Context, conversationID string, media domain.MediaRef) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, dni_number) VALUES (?, '')
		ON CONFLICT(session_id) DO NOTHING
	`, conversationID)
	if err != nil {
		return fmt.Errorf("session upsert: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pending_media (session_id, url, kind) VALUES (?, ?, ?)`,
		conversationID, media.URL, string(media.Kind))
	if err != nil {
		return fmt.Errorf("buffer media: %w", err)
	}
	return nil
}

func (r *sessionRepo) PendingMedia(ctx context.Context, conversationID string) ([]domain.MediaRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, kind FROM pending_media WHERE session_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("pending media lookup: %w", err)
	}
	defer rows.Close()

	var refs []domain.MediaRef
	for rows.Next() {
		var url, kind string
		if err := rows.Scan(&url, &kind); err != nil {
			return nil, fmt.Errorf("pending media scan: %w", err)
		}
		refs = append(refs, domain.MediaRef{URL: url, Kind: domain.MediaKind(kind)})
	}
	return refs, rows.Err()
}

func (r *sessionRepo) ClearPendingMedia(ctx context.Context, conversationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_media WHERE session_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear pending media: %w", err)
	}
	return nil
}

// handoffRepo implements repo.HandoffRepo.
type handoffRepo struct {
	db *sql.DB
}

func (r *handoffRepo) Insert(ctx context.Context, h *domain.Handoff) error {
	direct := 0
	if h.DirectToAgent {
		direct = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO handoffs (chat_id, conversation_id, phone_number, direct_to_agent)
		VALUES (?, ?, ?, ?)
	`, h.ChatID, h.ConversationID, h.PhoneNumber, direct)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("handoff insert: %w", err)
	}
	return nil
}

func (r *handoffRepo) ChatID(ctx context.Context, conversationID string) (string, error) {
	var chatID string
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id FROM handoffs WHERE conversation_id = ?`, conversationID).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return chatID, nil
}

func (r *handoffRepo) ConversationID(ctx context.Context, chatID string) (string, error) {
	var conversationID string
	err := r.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM handoffs WHERE chat_id = ?`, chatID).Scan(&conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return conversationID, nil
}

func (r *handoffRepo) PhoneNumber(ctx context.Context, chatID string) (string, error) {
	var phone string
	err := r.db.QueryRowContext(ctx,
		`SELECT phone_number FROM handoffs WHERE chat_id = ?`, chatID).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return phone, nil
}

func (r *handoffRepo) SetDirectToAgent(ctx context.Context, chatID string, direct bool) error {
	val := 0
	if direct {
		val = 1
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE handoffs SET direct_to_agent = ? WHERE chat_id = ?`, val, chatID); err != nil {
		return fmt.Errorf("handoff update: %w", err)
	}
	return nil
}

func (r *handoffRepo) DeleteByChatID(ctx context.Context, chatID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM handoffs WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("handoff delete: %w", err)
	}
	return nil
}

// memoryRepo implements repo.MemoryRepo.
type memoryRepo struct {
	db *sql.DB
}

func (r *memoryRepo) History(ctx context.Context, conversationID string) ([]domain.MemoryMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message, type FROM messages WHERE session = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var history []domain.MemoryMessage
	for rows.Next() {
		var text, kind string
		if err := rows.Scan(&text, &kind); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		history = append(history, domain.MemoryMessage{Kind: domain.MessageKind(kind), Text: text})
	}
	return history, rows.Err()
}

func (r *memoryRepo) Append(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (session, message, date, type) VALUES (?, ?, ?, ?)`,
		conversationID, text, now, string(kind))
	if err != nil {
		return fmt.Errorf("memory insert: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO messages_permanent (session, message, date, type, phone_number) VALUES (?, ?, ?, ?, ?)`,
		conversationID, text, now, string(kind), phone)
	if err != nil {
		return fmt.Errorf("permanent insert: %w", err)
	}
	return nil
}

func (r *memoryRepo) AppendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages_permanent (session, message, date, type, phone_number) VALUES (?, ?, ?, ?, ?)`,
		conversationID, text, time.Now().UTC().Unix(), string(kind), phone)
	if err != nil {
		return fmt.Errorf("permanent insert: %w", err)
	}
	return nil
}

func (r *memoryRepo) ClearWorking(ctx context.Context, conversationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE session = ?`, conversationID); err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	return nil
}

// switchRepo implements repo.SwitchRepo.
type switchRepo struct {
	db *sql.DB
}

func (r *switchRepo) BotEnabled(ctx context.Context) (bool, error) {
	var on int
	err := r.db.QueryRowContext(ctx, `SELECT chatbot_on FROM switch WHERE id = 'switch'`).Scan(&on)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("switch lookup: %w", err)
	}
	return on != 0, nil
}

func (r *switchRepo) Toggle(ctx context.Context) (bool, error) {
	var on int
	err := r.db.QueryRowContext(ctx, `SELECT chatbot_on FROM switch WHERE id = 'switch'`).Scan(&on)
	newState := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, fmt.Errorf("switch lookup: %w", err)
	default:
		newState = on == 0
	}

	val := 0
	if newState {
		val = 1
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO switch (id, chatbot_on) VALUES ('switch', ?)
		ON CONFLICT(id) DO UPDATE SET chatbot_on = excluded.chatbot_on
	`, val)
	if err != nil {
		return false, fmt.Errorf("switch update: %w", err)
	}
	return newState, nil
}

// analyticsRepo implements repo.AnalyticsRepo.
type analyticsRepo struct {
	db *sql.DB
}

func (r *analyticsRepo) IncrementMonth(ctx context.Context) error {
	month := time.Now().Format(monthLayout)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics (formatted_date, counter) VALUES (?, 1)
		ON CONFLICT(formatted_date) DO UPDATE SET counter = counter + 1
	`, month)
	if err != nil {
		return fmt.Errorf("analytics increment: %w", err)
	}
	return nil
}

func (r *analyticsRepo) YearCounts(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT formatted_date, counter FROM analytics
		WHERE formatted_date >= ? AND formatted_date <= ?
		ORDER BY formatted_date
	`, fmt.Sprintf("01/%d", year), fmt.Sprintf("12/%d", year))
	if err != nil {
		return nil, fmt.Errorf("analytics query: %w", err)
	}
	defer rows.Close()

	var counts []domain.MonthlyCount
	for rows.Next() {
		var c domain.MonthlyCount
		if err := rows.Scan(&c.Month, &c.Counter); err != nil {
			return nil, fmt.Errorf("analytics scan: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
