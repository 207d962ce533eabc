package domain

import "context"

// SessionRecord is a persisted chat session.
type SessionRecord struct {
	ID       string
	Channel  string
	Language string
}

// MessageRecord is the persisted form of a ChatMessage.
type MessageRecord struct {
	SessionID string
	Sender    string
	Content   string
	View      string
	Slots     string // JSON-encoded IntentSlots, empty when none
}

// TranscriptStore persists session transcripts so a restarted process can
// restore history. Booking data and payment state are deliberately not part
// of this store.
type TranscriptStore interface {
	EnsureSession(ctx context.Context, rec SessionRecord) error
	AppendMessage(ctx context.Context, rec MessageRecord) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}
