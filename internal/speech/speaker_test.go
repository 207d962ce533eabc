package speech

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tripbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerator blocks until released so tests can observe the busy window.
type fakeGenerator struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	result  *domain.GenerationResult
	err     error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordingSink struct {
	mu     sync.Mutex
	played []Playback
}

func (s *recordingSink) Play(ctx context.Context, p Playback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, p)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

func pcmPayload(samples ...int16) string {
	raw := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSpeak_DropsSecondRequestWhileBusy(t *testing.T) {
	gen := &fakeGenerator{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  &domain.GenerationResult{AudioData: pcmPayload(1, 2), SampleRateHint: 24000},
	}
	sink := &recordingSink{}
	sp := NewSpeaker(Config{Generator: gen, Sink: sink, Logger: testLogger()})
	done := make(chan struct{})
	sp.onDone = func() { close(done) }

	if !sp.Speak(Request{Text: "first", Channel: "cli", ChatID: "1"}) {
		t.Fatal("first request must be accepted")
	}
	<-gen.started

	if sp.Speak(Request{Text: "second", Channel: "cli", ChatID: "1"}) {
		t.Fatal("second request must be dropped while busy")
	}

	close(gen.release)
	<-done

	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("expected exactly 1 generation call, got %d", n)
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly 1 playback, got %d", sink.count())
	}
	if sp.Busy() {
		t.Fatal("busy flag must clear after handoff")
	}
}

func TestSpeak_PipelineProducesPlayableWAV(t *testing.T) {
	gen := &fakeGenerator{
		result: &domain.GenerationResult{
			AudioData:      pcmPayload(10, -10, 300),
			AudioMIME:      "audio/L16;codec=pcm;rate=16000",
			SampleRateHint: 16000,
		},
	}
	sink := &recordingSink{}
	sp := NewSpeaker(Config{Generator: gen, Sink: sink, Logger: testLogger()})
	done := make(chan struct{})
	sp.onDone = func() { close(done) }

	if !sp.Speak(Request{Text: "hello traveler", Channel: "telegram", ChatID: "42"}) {
		t.Fatal("request must be accepted")
	}
	<-done

	if sink.count() != 1 {
		t.Fatalf("expected 1 playback, got %d", sink.count())
	}
	p := sink.played[0]
	if p.Channel != "telegram" || p.ChatID != "42" {
		t.Fatalf("playback misaddressed: %+v", p)
	}
	if len(p.WAV) != 44+2*3 {
		t.Fatalf("expected 50-byte container, got %d", len(p.WAV))
	}
	if string(p.WAV[0:4]) != "RIFF" {
		t.Fatalf("container missing RIFF header: %q", p.WAV[0:4])
	}
	if rate := binary.LittleEndian.Uint32(p.WAV[24:28]); rate != 16000 {
		t.Fatalf("expected hinted rate 16000, got %d", rate)
	}
}

func TestSpeak_DefaultRateWhenHintAbsent(t *testing.T) {
	gen := &fakeGenerator{result: &domain.GenerationResult{AudioData: pcmPayload(5)}}
	sink := &recordingSink{}
	sp := NewSpeaker(Config{Generator: gen, Sink: sink, Logger: testLogger()})
	done := make(chan struct{})
	sp.onDone = func() { close(done) }

	sp.Speak(Request{Text: "x", Channel: "cli", ChatID: "1"})
	<-done

	if sink.count() != 1 {
		t.Fatalf("expected 1 playback, got %d", sink.count())
	}
	if rate := binary.LittleEndian.Uint32(sink.played[0].WAV[24:28]); rate != 24000 {
		t.Fatalf("expected default rate 24000, got %d", rate)
	}
}

func TestSpeak_FailureIsSilentAndClearsBusy(t *testing.T) {
	gen := &fakeGenerator{err: &domain.GenerationError{Kind: domain.NetworkFailure}}
	sink := &recordingSink{}
	sp := NewSpeaker(Config{Generator: gen, Sink: sink, Logger: testLogger()})
	done := make(chan struct{})
	sp.onDone = func() { close(done) }

	sp.Speak(Request{Text: "x", Channel: "cli", ChatID: "1"})
	<-done

	if sink.count() != 0 {
		t.Fatal("failed synthesis must not reach the sink")
	}
	if sp.Busy() {
		t.Fatal("busy flag must clear on failure")
	}

	// The speaker accepts new work after a failure.
	gen.err = nil
	gen.result = &domain.GenerationResult{AudioData: pcmPayload(1)}
	done2 := make(chan struct{})
	sp.onDone = func() { close(done2) }
	if !sp.Speak(Request{Text: "y", Channel: "cli", ChatID: "1"}) {
		t.Fatal("speaker must accept work after a failure")
	}
	select {
	case <-done2:
	case <-time.After(2 * time.Second):
		t.Fatal("second request did not complete")
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 playback after recovery, got %d", sink.count())
	}
}

func TestSpeak_CorruptPayloadIsSilent(t *testing.T) {
	gen := &fakeGenerator{result: &domain.GenerationResult{AudioData: "!!!"}}
	sink := &recordingSink{}
	sp := NewSpeaker(Config{Generator: gen, Sink: sink, Logger: testLogger()})
	done := make(chan struct{})
	sp.onDone = func() { close(done) }

	sp.Speak(Request{Text: "x", Channel: "cli", ChatID: "1"})
	<-done

	if sink.count() != 0 {
		t.Fatal("undecodable payload must not reach the sink")
	}
	if sp.Busy() {
		t.Fatal("busy flag must clear on decode failure")
	}
}

func TestSpeak_EmptyTextRejected(t *testing.T) {
	gen := &fakeGenerator{}
	sp := NewSpeaker(Config{Generator: gen, Sink: &recordingSink{}, Logger: testLogger()})
	if sp.Speak(Request{Text: ""}) {
		t.Fatal("empty text must be rejected")
	}
	if n := gen.calls.Load(); n != 0 {
		t.Fatalf("expected no generation calls, got %d", n)
	}
}
