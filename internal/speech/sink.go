package speech

import (
	"context"

	"tripbot/internal/domain"
)

// BusSink delivers finished audio containers back through the message bus as
// outbound messages; each channel decides how to surface a playable blob
// (file on disk for the CLI, audio upload for Telegram).
type BusSink struct {
	Bus domain.MessageBus
}

func (s *BusSink) Play(ctx context.Context, p Playback) error {
	s.Bus.SendOutbound(domain.OutboundMessage{
		Channel: p.Channel,
		ChatID:  p.ChatID,
		Audio:   p.WAV,
	})
	return nil
}
