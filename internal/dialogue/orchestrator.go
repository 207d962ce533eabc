// Package dialogue drives the classify → respond → transition cycle of the
// travel assistant. The orchestrator consumes user utterances from the
// message bus, owns every session, and is the only writer of session state.
package dialogue

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"tripbot/internal/domain"
	"tripbot/internal/intent"
	"tripbot/internal/speech"
)

const defaultHistoryLimit = 100

type Config struct {
	Generator    domain.Generator
	Bus          domain.MessageBus
	Store        domain.TranscriptStore // optional transcript persistence
	Speaker      *speech.Speaker        // optional audio playback
	Templates    Templates
	Language     string // default session language, e.g. "English"
	HistoryLimit int
	Logger       *slog.Logger
}

type Orchestrator struct {
	gen          domain.Generator
	bus          domain.MessageBus
	store        domain.TranscriptStore
	speaker      *speech.Speaker
	templates    Templates
	language     string
	historyLimit int
	logger       *slog.Logger

	sessions map[string]*Session
	mu       sync.Mutex
}

func New(cfg Config) *Orchestrator {
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	zero := Templates{}
	if cfg.Templates == zero {
		cfg.Templates = DefaultTemplates()
	}
	return &Orchestrator{
		gen:          cfg.Generator,
		bus:          cfg.Bus,
		store:        cfg.Store,
		speaker:      cfg.Speaker,
		templates:    cfg.Templates,
		language:     cfg.Language,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
		sessions:     make(map[string]*Session),
	}
}

// Run consumes inbound messages until the context is cancelled or the bus
// closes. Messages are handled sequentially; the per-session typing flag is
// what actually serializes the dialogue cycle.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("dialogue orchestrator started")
	inbound := o.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("dialogue orchestrator stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			o.Handle(ctx, msg)
		}
	}
}

// Handle processes one user submission end to end. It never returns an
// error: every failure inside the cycle resolves to a bot message, and the
// session always returns to awaiting input.
func (o *Orchestrator) Handle(ctx context.Context, in domain.InboundMessage) {
	sess := o.session(ctx, in)

	switch strings.TrimSpace(in.Content) {
	case "/clear":
		o.clearSession(ctx, sess, in)
		return
	case "/speak":
		o.speakLast(sess, in)
		return
	}

	if strings.TrimSpace(in.Content) == "" && len(in.Image) == 0 {
		return
	}

	if !sess.BeginTurn() {
		o.logger.Warn("turn already in flight, input rejected",
			"session", sess.ID,
			"channel", in.Channel,
		)
		return
	}

	userMsg := domain.ChatMessage{
		Text:      in.Content,
		Sender:    domain.SenderUser,
		Image:     in.Image,
		ImageMIME: in.ImageMIME,
		Timestamp: in.Timestamp,
	}
	sess.Append(userMsg)
	o.persist(ctx, sess, userMsg)

	var it intent.Intent
	if len(in.Image) > 0 {
		it = intent.Intent{Kind: intent.KindImageAnalysis}
	} else {
		it = intent.Classify(in.Content)
	}

	reply := o.respond(ctx, sess, it, in)
	sess.Append(reply)
	o.persist(ctx, sess, reply)
	sess.EndTurn()

	o.logger.Info("turn completed",
		"session", sess.ID,
		"intent", string(it.Kind),
		"view", string(reply.View),
	)

	o.bus.SendOutbound(domain.OutboundMessage{
		Channel: in.Channel,
		ChatID:  in.ChatID,
		Content: reply.Text,
		View:    reply.View,
		Slots:   reply.Slots,
	})
}

// respond resolves an intent into the bot message for this turn. View
// assignment is intent-determined, never generation-determined.
func (o *Orchestrator) respond(ctx context.Context, sess *Session, it intent.Intent, in domain.InboundMessage) domain.ChatMessage {
	bot := func(text string, view domain.ViewTag, slots *domain.IntentSlots) domain.ChatMessage {
		return domain.ChatMessage{Text: text, Sender: domain.SenderBot, View: view, Slots: slots}
	}

	switch it.Kind {
	case intent.KindGreeting:
		return bot(o.templates.Welcome, domain.ViewChat, nil)
	case intent.KindIdentity:
		return bot(o.templates.Identity, domain.ViewChat, nil)
	case intent.KindBooking:
		slots := it.Slots
		return bot(o.templates.Booking(slots.BookingType), domain.ViewBooking, &slots)
	case intent.KindDashboard:
		if sess.Authenticated() {
			return bot(o.templates.Dashboard, domain.ViewDashboard, nil)
		}
		return bot(o.templates.LoginRequired, domain.ViewChat, nil)
	case intent.KindPlanner:
		return bot(o.templates.Planner, domain.ViewPlanner, nil)
	case intent.KindLogin:
		// Simulated authentication: a stateful transition independent of
		// the generation path.
		sess.SetAuthenticated(true)
		return bot(o.templates.LoginWelcome, domain.ViewChat, nil)
	}

	return bot(o.generateReply(ctx, sess, it, in), domain.ViewChat, nil)
}

// generateReply escalates to the generation service. A failure is absorbed
// into the fixed apology template; it is never surfaced raw.
func (o *Orchestrator) generateReply(ctx context.Context, sess *Session, it intent.Intent, in domain.InboundMessage) string {
	req := domain.GenerationRequest{
		Prompt:   o.buildPrompt(it, in.Content),
		Modality: domain.ModalityText,
		Language: sess.Language(),
	}
	if it.Kind == intent.KindImageAnalysis {
		req.Image = in.Image
		req.ImageMIME = in.ImageMIME
	}

	res, err := o.gen.Generate(ctx, req)
	if err != nil {
		o.logger.Warn("generation failed, substituting apology",
			"session", sess.ID,
			"intent", string(it.Kind),
			"err", err,
		)
		return o.templates.Apology
	}
	return res.Text
}

const assistantPersona = "You are a friendly travel assistant for a travel booking site."

func (o *Orchestrator) buildPrompt(it intent.Intent, utterance string) string {
	switch it.Kind {
	case intent.KindPackingList:
		return assistantPersona + " Write a concise packing list for " + it.Slots.Destination +
			". Group items into short bullet sections (clothing, documents, health, electronics)."
	case intent.KindPhrasebook:
		lang := it.Slots.Language
		if lang == "" {
			lang = "the local language of the destination"
		}
		return assistantPersona + " List 12 essential travel phrases in " + lang +
			" with pronunciation and English meaning."
	case intent.KindImageAnalysis:
		prompt := assistantPersona + " Describe this travel photo and identify the place or landmark if you can."
		if strings.TrimSpace(utterance) != "" {
			prompt += " The traveler asks: " + utterance
		}
		return prompt
	}
	return assistantPersona + " Answer the traveler's question. Keep it brief and practical.\n\n" + utterance
}

// speakLast renders the latest bot utterance as audio. The request shares
// nothing with the dialogue cycle: it may run while a text turn is in
// flight, and a busy speaker drops it silently.
func (o *Orchestrator) speakLast(sess *Session, in domain.InboundMessage) {
	if o.speaker == nil {
		return
	}
	msg, ok := sess.LastBotMessage()
	if !ok {
		return
	}
	accepted := o.speaker.Speak(speech.Request{
		Text:     msg.Text,
		Language: sess.Language(),
		Channel:  in.Channel,
		ChatID:   in.ChatID,
	})
	if !accepted {
		o.logger.Debug("speech request dropped", "session", sess.ID)
	}
}

func (o *Orchestrator) clearSession(ctx context.Context, sess *Session, in domain.InboundMessage) {
	sess.Reset()
	if o.store != nil {
		if err := o.store.DeleteSession(ctx, sess.ID); err != nil {
			o.logger.Warn("failed to clear persisted transcript", "session", sess.ID, "err", err)
		}
	}
	o.logger.Info("session cleared", "session", sess.ID)
	o.bus.SendOutbound(domain.OutboundMessage{
		Channel: in.Channel,
		ChatID:  in.ChatID,
		Content: o.templates.Cleared,
		View:    domain.ViewChat,
	})
}

// session returns the session for this channel/chat pair, restoring
// persisted history on first sight.
func (o *Orchestrator) session(ctx context.Context, in domain.InboundMessage) *Session {
	key := in.Channel + ":" + in.ChatID

	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok := o.sessions[key]; ok {
		return sess
	}

	sess := NewSession(key, in.Channel, o.language)
	if o.store != nil {
		o.restore(ctx, sess)
	}
	o.sessions[key] = sess
	return sess
}

func (o *Orchestrator) restore(ctx context.Context, sess *Session) {
	if err := o.store.EnsureSession(ctx, domain.SessionRecord{
		ID:       sess.ID,
		Channel:  sess.Channel,
		Language: o.language,
	}); err != nil {
		o.logger.Warn("transcript session init failed", "session", sess.ID, "err", err)
		return
	}

	records, err := o.store.GetMessages(ctx, sess.ID, o.historyLimit)
	if err != nil {
		o.logger.Warn("transcript restore failed", "session", sess.ID, "err", err)
		return
	}
	for _, r := range records {
		msg := domain.ChatMessage{
			Text:   r.Content,
			Sender: domain.Sender(r.Sender),
			View:   domain.ViewTag(r.View),
		}
		if r.Slots != "" {
			var slots domain.IntentSlots
			if err := json.Unmarshal([]byte(r.Slots), &slots); err == nil {
				msg.Slots = &slots
			}
		}
		sess.Append(msg)
	}
	if len(records) > 0 {
		o.logger.Info("transcript restored", "session", sess.ID, "messages", len(records))
	}
}

func (o *Orchestrator) persist(ctx context.Context, sess *Session, msg domain.ChatMessage) {
	if o.store == nil {
		return
	}
	rec := domain.MessageRecord{
		SessionID: sess.ID,
		Sender:    string(msg.Sender),
		Content:   msg.Text,
		View:      string(msg.View),
	}
	if msg.Slots != nil {
		if data, err := json.Marshal(msg.Slots); err == nil {
			rec.Slots = string(data)
		}
	}
	if err := o.store.AppendMessage(ctx, rec); err != nil {
		o.logger.Warn("transcript append failed", "session", sess.ID, "err", err)
	}
}
