package domain

// MessageKind identifies who authored a stored message.
type MessageKind string

const (
	KindHuman  MessageKind = "human"  // end user, while the bot owns the conversation
	KindBot    MessageKind = "ai"     // bot reply
	KindAgent  MessageKind = "agent"  // human agent on the agent platform
	KindClient MessageKind = "client" // end user, while an agent owns the conversation
)

// InboundMessage is one message received from the messaging platform webhook.
type InboundMessage struct {
	Text           string
	Author         string // raw sender address, e.g. "whatsapp:+50760000000"
	ConversationID string
	DNI            string // resolved identity number, empty until known
}

// MemoryMessage is one entry of the persisted conversation history.
type MemoryMessage struct {
	Kind MessageKind
	Text string
}

// MonthlyCount is one month of turn-processing analytics.
type MonthlyCount struct {
	Month   string // formatted MM/YYYY
	Counter int64
}
