package domain

import (
	"context"
	"fmt"
)

// Modality selects the response type requested from the generation service.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityAudio Modality = "AUDIO"
)

// GenerationRequest is the typed request shape the core depends on. The
// provider translates it into the upstream wire envelope; nothing outside
// internal/provider knows that envelope.
type GenerationRequest struct {
	Prompt    string
	Image     []byte // optional inline image
	ImageMIME string
	Modality  Modality
	Language  string // free-text response-language instruction, not a protocol field
	Voice     string // prebuilt voice name, AUDIO requests only
}

// GenerationResult carries either plain text (TEXT) or a base64 raw-audio
// payload plus its MIME descriptor (AUDIO).
type GenerationResult struct {
	Text           string
	AudioData      string // base64-encoded PCM16
	AudioMIME      string // e.g. "audio/L16;codec=pcm;rate=24000"
	SampleRateHint int    // parsed from the MIME rate parameter, 0 if absent
}

type GenerationErrorKind string

const (
	NetworkFailure    GenerationErrorKind = "network_failure"
	ServiceFailure    GenerationErrorKind = "service_failure"
	MalformedResponse GenerationErrorKind = "malformed_response"
)

// GenerationError is the typed failure of a single generation call.
type GenerationError struct {
	Kind   GenerationErrorKind
	Status int // HTTP status for service failures, 0 otherwise
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("generation %s: status %d", e.Kind, e.Status)
	}
	return fmt.Sprintf("generation %s", e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator is the interface the generation provider must implement.
// A call is a single attempt; the caller decides what a failure means.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	Name() string
}
