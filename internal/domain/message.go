package domain

import "time"

// ViewTag labels a bot message with the UI surface the surrounding shell
// should present next. The core never renders anything itself.
type ViewTag string

const (
	ViewChat      ViewTag = "chat"
	ViewBooking   ViewTag = "booking"
	ViewDashboard ViewTag = "dashboard"
	ViewPlanner   ViewTag = "ai-planner"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// IntentSlots carries parameters extracted from an utterance during
// classification. Fields are intent-specific; unused fields stay empty.
type IntentSlots struct {
	BookingType string `json:"bookingType,omitempty"` // "hotel" | "flight"
	Destination string `json:"destination,omitempty"`
	Language    string `json:"language,omitempty"`
}

// ChatMessage is one entry in a session transcript. Messages are append-only
// and immutable once appended; the most recent bot message carries the
// session's active view tag.
type ChatMessage struct {
	Text      string
	Sender    Sender
	Image     []byte // optional image attached to a user message
	ImageMIME string
	View      ViewTag // bot messages only
	Slots     *IntentSlots
	Timestamp time.Time
}

type InboundMessage struct {
	Channel   string
	ChatID    string
	SenderID  string
	Content   string
	Image     []byte
	ImageMIME string
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	View    ViewTag
	Slots   *IntentSlots
	Audio   []byte // finished WAV container, set only on audio deliveries
}

// MessageBus is the in-process transport between channels and the orchestrator.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
