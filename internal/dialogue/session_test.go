package dialogue

import (
	"testing"

	"tripbot/internal/domain"
)

func TestSession_BeginTurnIsExclusive(t *testing.T) {
	s := NewSession("cli:1", "cli", "English")
	if !s.BeginTurn() {
		t.Fatal("idle session must accept a turn")
	}
	if s.BeginTurn() {
		t.Fatal("second turn must be rejected while one is in flight")
	}
	s.EndTurn()
	if !s.BeginTurn() {
		t.Fatal("session must accept a turn after EndTurn")
	}
}

func TestSession_HistoryIsCopied(t *testing.T) {
	s := NewSession("cli:1", "cli", "English")
	s.Append(domain.ChatMessage{Text: "hi", Sender: domain.SenderUser})

	h := s.History()
	h[0].Text = "mutated"

	if s.History()[0].Text != "hi" {
		t.Fatal("History must return a copy")
	}
}

func TestSession_LastBotMessage(t *testing.T) {
	s := NewSession("cli:1", "cli", "English")
	if _, ok := s.LastBotMessage(); ok {
		t.Fatal("fresh session has no bot message")
	}
	s.Append(domain.ChatMessage{Text: "hi", Sender: domain.SenderUser})
	s.Append(domain.ChatMessage{Text: "hello!", Sender: domain.SenderBot, View: domain.ViewChat})
	s.Append(domain.ChatMessage{Text: "book a hotel", Sender: domain.SenderUser})

	msg, ok := s.LastBotMessage()
	if !ok || msg.Text != "hello!" {
		t.Fatalf("expected latest bot message, got %+v (ok=%v)", msg, ok)
	}
}

func TestSession_ResetKeepsLanguage(t *testing.T) {
	s := NewSession("cli:1", "cli", "Hindi")
	s.SetAuthenticated(true)
	s.Append(domain.ChatMessage{Text: "hi", Sender: domain.SenderUser})

	s.Reset()

	if len(s.History()) != 0 {
		t.Fatal("reset must clear history")
	}
	if s.Authenticated() {
		t.Fatal("reset must clear the authentication flag")
	}
	if s.Language() != "Hindi" {
		t.Fatalf("reset must keep the language, got %q", s.Language())
	}
}
