// Package mongo implements the document store over MongoDB. It is the
// production backend; collection layout matches the live database.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ponxai/credits-bridge/internal/biz/domain"
	"github.com/ponxai/credits-bridge/internal/biz/repo"
)

// monthLayout is the formatted_date layout of analytics documents.
const monthLayout = "01/2006"

// Store owns the MongoDB client and the per-collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and returns the repository bundle.
func NewStore(ctx context.Context, uri, dbName string) (*repo.Store, *Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	bundle := &repo.Store{
		Sessions:  &sessionRepo{col: s.db.Collection("session-dni")},
		Handoffs:  &handoffRepo{col: s.db.Collection("chat-handoff")},
		Memory: &memoryRepo{
			working:   s.db.Collection("message-store"),
			permanent: s.db.Collection("message-store-permanent"),
		},
		Switch:    &switchRepo{col: s.db.Collection("switch")},
		Analytics: &analyticsRepo{col: s.db.Collection("analytics")},
	}
	return bundle, s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes creates the unique indexes the hand-over invariants rely on.
func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.db.Collection("session-dni").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("session index: %w", err)
	}

	_, err = s.db.Collection("chat-handoff").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("handoff indexes: %w", err)
	}
	return nil
}

// sessionRepo implements repo.SessionRepo on the session-dni collection.
type sessionRepo struct {
	col *mongo.Collection
}

type sessionDoc struct {
	SessionID    string     `bson:"session_id"`
	DNINumber    string     `bson:"dni_number"`
	PendingMedia []mediaDoc `bson:"unprocessed_media_urls"`
}

type mediaDoc struct {
	URL  string `bson:"url"`
	Type string `bson:"type"`
}

func (r *sessionRepo) GetDNI(ctx context.Context, conversationID string) (string, error) {
	var doc sessionDoc
	err := r.col.FindOne(ctx, bson.M{"session_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	return doc.DNINumber, nil
}

func (r *sessionRepo) UpsertDNI(ctx context.Context, conversationID, dni string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": conversationID},
		bson.M{
			"$set":         bson.M{"dni_number": dni},
			"$setOnInsert": bson.M{"unprocessed_media_urls": []mediaDoc{}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("session upsert: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, conversationID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"session_id": conversationID})
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (r *sessionRepo) AddPendingMedia(ctx context.Context, conversationID string, media domain.MediaRef) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": conversationID},
		bson.M{"$push": bson.M{"unprocessed_media_urls": mediaDoc{URL: media.URL, Type: string(media.Kind)}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("buffer media: %w", err)
	}
	return nil
}

func (r *sessionRepo) PendingMedia(ctx context.Context, conversationID string) ([]domain.MediaRef, error) {
	var doc sessionDoc
	err := r.col.FindOne(ctx, bson.M{"session_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending media lookup: %w", err)
	}

	refs := make([]domain.MediaRef, 0, len(doc.PendingMedia))
	for _, m := range doc.PendingMedia {
		refs = append(refs, domain.MediaRef{URL: m.URL, Kind: domain.MediaKind(m.Type)})
	}
	return refs, nil
}

func (r *sessionRepo) ClearPendingMedia(ctx context.Context, conversationID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": conversationID},
		bson.M{"$set": bson.M{"unprocessed_media_urls": []mediaDoc{}}},
	)
	if err != nil {
		return fmt.Errorf("clear pending media: %w", err)
	}
	return nil
}

// handoffRepo implements repo.HandoffRepo on the chat-handoff collection.
type handoffRepo struct {
	col *mongo.Collection
}

type handoffDoc struct {
	ChatID         string `bson:"chat_id"`
	ConversationID string `bson:"conversation_id"`
	PhoneNumber    string `bson:"phone_number"`
	DirectToAgent  bool   `bson:"direct_to_agent"`
}

func (r *handoffRepo) Insert(ctx context.Context, h *domain.Handoff) error {
	_, err := r.col.InsertOne(ctx, handoffDoc{
		ChatID:         h.ChatID,
		ConversationID: h.ConversationID,
		PhoneNumber:    h.PhoneNumber,
		DirectToAgent:  h.DirectToAgent,
	})
	if mongo.IsDuplicateKeyError(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("handoff insert: %w", err)
	}
	return nil
}

func (r *handoffRepo) ChatID(ctx context.Context, conversationID string) (string, error) {
	var doc handoffDoc
	err := r.col.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return doc.ChatID, nil
}

func (r *handoffRepo) ConversationID(ctx context.Context, chatID string) (string, error) {
	var doc handoffDoc
	err := r.col.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return doc.ConversationID, nil
}

func (r *handoffRepo) PhoneNumber(ctx context.Context, chatID string) (string, error) {
	var doc handoffDoc
	err := r.col.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("handoff lookup: %w", err)
	}
	return doc.PhoneNumber, nil
}

func (r *handoffRepo) SetDirectToAgent(ctx context.Context, chatID string, direct bool) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"direct_to_agent": direct}},
	)
	if err != nil {
		return fmt.Errorf("handoff update: %w", err)
	}
	return nil
}

func (r *handoffRepo) DeleteByChatID(ctx context.Context, chatID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return fmt.Errorf("handoff delete: %w", err)
	}
	return nil
}

// memoryRepo implements repo.MemoryRepo on the message-store collections.
type memoryRepo struct {
	working   *mongo.Collection
	permanent *mongo.Collection
}

type messageDoc struct {
	Session     string    `bson:"session"`
	Message     string    `bson:"message"`
	Date        time.Time `bson:"date"`
	Type        string    `bson:"type"`
	PhoneNumber string    `bson:"phone_number,omitempty"`
}

func (r *memoryRepo) History(ctx context.Context, conversationID string) ([]domain.MemoryMessage, error) {
	cursor, err := r.working.Find(ctx,
		bson.M{"session": conversationID},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("history find: %w", err)
	}
	defer cursor.Close(ctx)

	var history []domain.MemoryMessage
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("history decode: %w", err)
		}
		history = append(history, domain.MemoryMessage{
			Kind: domain.MessageKind(doc.Type),
			Text: doc.Message,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("history cursor: %w", err)
	}
	return history, nil
}

func (r *memoryRepo) Append(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	now := time.Now().UTC()
	_, err := r.working.InsertOne(ctx, messageDoc{
		Session: conversationID,
		Message: text,
		Date:    now,
		Type:    string(kind),
	})
	if err != nil {
		return fmt.Errorf("memory insert: %w", err)
	}
	return r.appendPermanent(ctx, conversationID, kind, text, phone, now)
}

func (r *memoryRepo) AppendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string) error {
	return r.appendPermanent(ctx, conversationID, kind, text, phone, time.Now().UTC())
}

func (r *memoryRepo) appendPermanent(ctx context.Context, conversationID string, kind domain.MessageKind, text, phone string, at time.Time) error {
	_, err := r.permanent.InsertOne(ctx, messageDoc{
		Session:     conversationID,
		Message:     text,
		Date:        at,
		Type:        string(kind),
		PhoneNumber: phone,
	})
	if err != nil {
		return fmt.Errorf("permanent insert: %w", err)
	}
	return nil
}

func (r *memoryRepo) ClearWorking(ctx context.Context, conversationID string) error {
	_, err := r.working.DeleteMany(ctx, bson.M{"session": conversationID})
	if err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	return nil
}

// switchRepo implements repo.SwitchRepo on the switch collection. The state
// lives in one well-known document.
type switchRepo struct {
	col *mongo.Collection
}

type switchDoc struct {
	ID        string `bson:"_id"`
	ChatbotOn bool   `bson:"chatbot_on"`
}

func (r *switchRepo) BotEnabled(ctx context.Context) (bool, error) {
	var doc switchDoc
	err := r.col.FindOne(ctx, bson.M{"_id": "switch"}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// No document ever written means the bot was never turned off.
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("switch lookup: %w", err)
	}
	return doc.ChatbotOn, nil
}

func (r *switchRepo) Toggle(ctx context.Context) (bool, error) {
	var doc switchDoc
	err := r.col.FindOne(ctx, bson.M{"_id": "switch"}).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("switch lookup: %w", err)
	}

	newState := true
	if err == nil {
		newState = !doc.ChatbotOn
	}
	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": "switch"},
		bson.M{"$set": bson.M{"chatbot_on": newState}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("switch update: %w", err)
	}
	return newState, nil
}

// analyticsRepo implements repo.AnalyticsRepo on the analytics collection.
type analyticsRepo struct {
	col *mongo.Collection
}

type analyticsDoc struct {
	FormattedDate string `bson:"formatted_date"`
	Counter       int64  `bson:"counter"`
}

func (r *analyticsRepo) IncrementMonth(ctx context.Context) error {
	month := time.Now().Format(monthLayout)
	_, err := r.col.UpdateOne(ctx,
		bson.M{"formatted_date": month},
		bson.M{"$inc": bson.M{"counter": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("analytics increment: %w", err)
	}
	return nil
}

func (r *analyticsRepo) YearCounts(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	cursor, err := r.col.Find(ctx, bson.M{
		"formatted_date": bson.M{
			"$gte": fmt.Sprintf("01/%d", year),
			"$lte": fmt.Sprintf("12/%d", year),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analytics find: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []domain.MonthlyCount
	for cursor.Next(ctx) {
		var doc analyticsDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("analytics decode: %w", err)
		}
		counts = append(counts, domain.MonthlyCount{Month: doc.FormattedDate, Counter: doc.Counter})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("analytics cursor: %w", err)
	}
	return counts, nil
}
