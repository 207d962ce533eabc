// Package speech turns bot utterances into playable audio. It is a second
// concurrency domain, deliberately independent from the dialogue cycle: a
// synthesis request may run while a text turn is in flight, and neither
// blocks the other.
package speech

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"tripbot/internal/audio"
	"tripbot/internal/domain"
)

const (
	defaultSampleRate = 24000
	defaultTimeout    = 60 * time.Second
)

// Request asks for one utterance to be synthesized and played.
type Request struct {
	Text     string
	Language string
	Channel  string
	ChatID   string
}

// Playback is a finished audio container addressed to its delivery target.
type Playback struct {
	Channel string
	ChatID  string
	WAV     []byte
}

// Sink is the shared playback device. Play hands the container off; it must
// not block for the duration of playback. Only the Speaker writes to it.
type Sink interface {
	Play(ctx context.Context, p Playback) error
}

type Config struct {
	Generator         domain.Generator
	Sink              Sink
	Voice             string
	DefaultSampleRate int
	Timeout           time.Duration
	Logger            *slog.Logger
}

// Speaker serializes synthesis: at most one synthesize+decode+encode pipeline
// runs at a time. A request arriving while busy is dropped, never queued, so
// two utterances can never overlap on the playback device.
type Speaker struct {
	gen         domain.Generator
	sink        Sink
	voice       string
	defaultRate int
	timeout     time.Duration
	logger      *slog.Logger

	busy   atomic.Bool
	onDone func() // test hook
}

func NewSpeaker(cfg Config) *Speaker {
	if cfg.DefaultSampleRate <= 0 {
		cfg.DefaultSampleRate = defaultSampleRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Speaker{
		gen:         cfg.Generator,
		sink:        cfg.Sink,
		voice:       cfg.Voice,
		defaultRate: cfg.DefaultSampleRate,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Busy reports whether a synthesis pipeline is currently in flight.
func (s *Speaker) Busy() bool { return s.busy.Load() }

// Speak starts an asynchronous synthesis+playback cycle and returns
// immediately. Returns false when the request was dropped: empty text, or a
// cycle already in flight (first writer wins). Audio is a non-essential
// enhancement — every failure downstream is a silent no-op.
func (s *Speaker) Speak(req Request) bool {
	if req.Text == "" {
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("speech busy, request dropped", "channel", req.Channel, "chat", req.ChatID)
		return false
	}
	go s.run(req)
	return true
}

func (s *Speaker) run(req Request) {
	defer func() {
		s.busy.Store(false)
		if s.onDone != nil {
			s.onDone()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.gen.Generate(ctx, domain.GenerationRequest{
		Prompt:   req.Text,
		Modality: domain.ModalityAudio,
		Language: req.Language,
		Voice:    s.voice,
	})
	if err != nil {
		s.logger.Warn("speech synthesis failed", "err", err)
		return
	}

	samples, err := audio.DecodeBase64PCM16(res.AudioData)
	if err != nil {
		s.logger.Warn("speech payload decode failed", "err", err)
		return
	}

	rate := res.SampleRateHint
	if rate <= 0 {
		rate = s.defaultRate
	}
	wav, err := audio.EncodeWAV(samples, rate)
	if err != nil {
		s.logger.Warn("speech container encode failed", "err", err)
		return
	}

	if err := s.sink.Play(ctx, Playback{Channel: req.Channel, ChatID: req.ChatID, WAV: wav}); err != nil {
		s.logger.Warn("speech playback handoff failed", "err", err)
		return
	}

	s.logger.Info("speech handed off",
		"channel", req.Channel,
		"chat", req.ChatID,
		"sample_rate", rate,
		"duration_s", audio.Duration(wav),
	)
}
