package domain

// MediaKind distinguishes forwardable media payloads.
type MediaKind string

const (
	MediaImage MediaKind = "IMAGE"
	MediaFile  MediaKind = "FILE"
)

// MediaRef is one buffered media item waiting for the conversation to be
// escalated to an agent.
type MediaRef struct {
	URL  string
	Kind MediaKind
}

// Session represents the per-conversation session state.
// Created on the first inbound message lacking a resolved identity, deleted
// when the conversation restarts or terminates.
type Session struct {
	ConversationID string
	DNI            string
	PendingMedia   []MediaRef // insertion order preserved
}

// Handoff maps an agent-side chat thread to a conversation.
// Its presence is the sole authority for "this conversation is agent-owned".
type Handoff struct {
	ChatID         string
	ConversationID string
	PhoneNumber    string
	DirectToAgent  bool // true while the bot is paused for this conversation
}

// Contact is the agent-platform contact record built for a new thread.
type Contact struct {
	FullName       string // the DNI number doubles as the display name
	Identification int
	CallingCode    int
	Number         int64
}
