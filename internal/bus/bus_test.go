package bus

import (
	"io"
	"log/slog"
	"testing"

	"tripbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(4, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "cli", ChatID: "1", Content: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "hello" {
			t.Fatalf("expected 'hello', got %q", msg.Content)
		}
	default:
		t.Fatal("expected a buffered message")
	}
}

func TestSendOutbound_RoutesToRegisteredHandler(t *testing.T) {
	b := New(4, testLogger())
	defer b.Close()

	var got domain.OutboundMessage
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) { got = msg })

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "9", Content: "hi", View: domain.ViewChat})

	if got.ChatID != "9" || got.Content != "hi" {
		t.Fatalf("handler did not receive message: %+v", got)
	}
}

func TestSendOutbound_UnknownChannelIsDropped(t *testing.T) {
	b := New(4, testLogger())
	defer b.Close()
	// Must not panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "nope", Content: "x"})
}

func TestPublishAfterClose(t *testing.T) {
	b := New(4, testLogger())
	b.Close()
	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "late"})
}
