package dialogue

import (
	"sync"
	"time"

	"tripbot/internal/domain"
)

// Session owns the state of one conversation: the append-only message
// history, the simulated authentication flag, the response language, and the
// typing flag that gates the dialogue cycle. All access goes through the
// handle; nothing here is ambient global state.
type Session struct {
	ID      string
	Channel string

	mu            sync.Mutex
	history       []domain.ChatMessage
	authenticated bool
	language      string
	typing        bool
}

func NewSession(id, channel, language string) *Session {
	return &Session{ID: id, Channel: channel, language: language}
}

// BeginTurn claims the single dialogue cycle. Returns false when a turn is
// already in flight; the caller must then reject the input, not queue it.
func (s *Session) BeginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typing {
		return false
	}
	s.typing = true
	return true
}

func (s *Session) EndTurn() {
	s.mu.Lock()
	s.typing = false
	s.mu.Unlock()
}

func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Session) Append(msg domain.ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.mu.Unlock()
}

// History returns a copy; appended messages are immutable.
func (s *Session) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// LastBotMessage returns the most recently appended bot message.
func (s *Session) LastBotMessage() (domain.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Sender == domain.SenderBot {
			return s.history[i], true
		}
	}
	return domain.ChatMessage{}, false
}

// ActiveView is the view tag of the latest bot message; a fresh session
// starts in the chat view.
func (s *Session) ActiveView() domain.ViewTag {
	if msg, ok := s.LastBotMessage(); ok && msg.View != "" {
		return msg.View
	}
	return domain.ViewChat
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
}

// Reset clears history and flags for a session restart. The language
// preference survives; it belongs to the user, not the conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	s.history = nil
	s.authenticated = false
	s.typing = false
	s.mu.Unlock()
}
