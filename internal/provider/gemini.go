// Package provider implements the generation-service boundary. The nested
// request/response envelope of the upstream API lives entirely in this
// package; the rest of the module depends only on the typed shapes in
// internal/domain.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tripbot/internal/domain"
)

const (
	defaultAPIBase  = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel    = "gemini-2.0-flash"
	defaultTTSModel = "gemini-2.5-flash-preview-tts"
	defaultVoice    = "Kore"
	defaultTimeout  = 60 * time.Second

	maxErrorBodyBytes = 4096
)

// GeminiConfig configures the Gemini generation client.
type GeminiConfig struct {
	APIBase  string
	APIKey   string
	Model    string // text model
	TTSModel string // speech model for AUDIO requests
	Voice    string // fallback prebuilt voice name
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Gemini implements domain.Generator against the generateContent REST API.
// One call is one attempt: no internal retries, bounded by the client
// timeout and the caller's context.
type Gemini struct {
	apiBase  string
	apiKey   string
	model    string
	ttsModel string
	voice    string
	client   *http.Client
	logger   *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = defaultTTSModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiBase:  strings.TrimSuffix(cfg.APIBase, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		ttsModel: cfg.TTSModel,
		voice:    cfg.Voice,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Healthy reports whether the client is usable at all. It performs no
// network round trip; a missing key is the only startup-detectable fault.
func (g *Gemini) Healthy(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("gemini: API key not configured")
	}
	return nil
}

// --- wire envelope (upstream schema, do not leak outside this package) ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate performs a single generateContent call and maps every failure to
// a typed domain.GenerationError.
func (g *Gemini) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	model := g.model
	if req.Modality == domain.ModalityAudio {
		model = g.ttsModel
	}

	body, err := json.Marshal(g.buildEnvelope(req))
	if err != nil {
		return nil, &domain.GenerationError{Kind: domain.MalformedResponse, Err: fmt.Errorf("encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiBase, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.GenerationError{Kind: domain.NetworkFailure, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Warn("generation request failed", "model", model, "err", err)
		return nil, &domain.GenerationError{Kind: domain.NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		g.logger.Warn("generation service error",
			"model", model,
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return nil, &domain.GenerationError{Kind: domain.ServiceFailure, Status: resp.StatusCode}
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &domain.GenerationError{Kind: domain.MalformedResponse, Err: err}
	}

	result, err := extractResult(envelope, req.Modality)
	if err != nil {
		return nil, err
	}

	g.logger.Info("generation completed",
		"model", model,
		"modality", string(req.Modality),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (g *Gemini) buildEnvelope(req domain.GenerationRequest) generateRequest {
	prompt := req.Prompt
	if req.Language != "" && req.Modality == domain.ModalityText {
		prompt += "\n\nRespond in " + req.Language + "."
	}

	parts := []part{{Text: prompt}}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}

	envelope := generateRequest{Contents: []content{{Parts: parts}}}
	if req.Modality == domain.ModalityAudio {
		voice := req.Voice
		if voice == "" {
			voice = g.voice
		}
		envelope.GenerationConfig = &generationConfig{
			ResponseModalities: []string{string(domain.ModalityAudio)},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		}
	}
	return envelope
}

func extractResult(envelope generateResponse, modality domain.Modality) (*domain.GenerationResult, error) {
	if len(envelope.Candidates) == 0 {
		return nil, &domain.GenerationError{Kind: domain.MalformedResponse, Err: fmt.Errorf("no candidates")}
	}
	parts := envelope.Candidates[0].Content.Parts

	if modality == domain.ModalityAudio {
		for _, p := range parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return &domain.GenerationResult{
					AudioData:      p.InlineData.Data,
					AudioMIME:      p.InlineData.MimeType,
					SampleRateHint: parseSampleRate(p.InlineData.MimeType),
				}, nil
			}
		}
		return nil, &domain.GenerationError{Kind: domain.MalformedResponse, Err: fmt.Errorf("no inline audio part")}
	}

	for _, p := range parts {
		if p.Text != "" {
			return &domain.GenerationResult{Text: p.Text}, nil
		}
	}
	return nil, &domain.GenerationError{Kind: domain.MalformedResponse, Err: fmt.Errorf("no text part")}
}

// parseSampleRate pulls the rate parameter out of an audio MIME descriptor
// such as "audio/L16;codec=pcm;rate=24000". Returns 0 when absent; the
// caller applies its own default.
func parseSampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		param = strings.TrimSpace(param)
		if v, ok := strings.CutPrefix(param, "rate="); ok {
			rate, err := strconv.Atoi(v)
			if err == nil && rate > 0 {
				return rate
			}
		}
	}
	return 0
}
