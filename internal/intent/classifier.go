// Package intent classifies free-text traveler utterances into a closed set
// of intents with extracted slot values. Classification is pure pattern
// matching over an ordered rule table; no network access, no side effects.
package intent

import (
	"regexp"
	"strings"

	"tripbot/internal/domain"
)

type Kind string

const (
	KindGreeting      Kind = "greeting"
	KindIdentity      Kind = "identity"
	KindPackingList   Kind = "packing_list"
	KindPhrasebook    Kind = "phrasebook"
	KindImageAnalysis Kind = "image_analysis"
	KindBooking       Kind = "booking"
	KindDashboard     Kind = "dashboard"
	KindPlanner       Kind = "planner"
	KindLogin         Kind = "login"
	KindUnclassified  Kind = "unclassified"
)

// Intent is the tagged classification result. An unclassified utterance is a
// normal outcome, not a failure; it escalates to open-domain generation.
type Intent struct {
	Kind  Kind
	Slots domain.IntentSlots
}

// NeedsGeneration reports whether the intent escalates to the generation
// service instead of resolving to a fixed template response.
func (i Intent) NeedsGeneration() bool {
	switch i.Kind {
	case KindPackingList, KindPhrasebook, KindImageAnalysis, KindUnclassified:
		return true
	}
	return false
}

type rule struct {
	kind    Kind
	re      *regexp.Regexp
	extract func(match []string) domain.IntentSlots
}

// rules are evaluated top to bottom, first match wins. The ordering is a
// published contract: slot-extracting generation intents outrank greetings,
// which outrank navigation intents, which outrank the catch-all.
var rules = []rule{
	{
		kind: KindPackingList,
		re:   regexp.MustCompile(`(?i)packing\s+list(?:\s+for\s+([^.!?]+))?`),
		extract: func(m []string) domain.IntentSlots {
			dest := strings.TrimSpace(m[1])
			if dest == "" {
				dest = "a trip"
			}
			return domain.IntentSlots{Destination: dest}
		},
	},
	{
		kind: KindPhrasebook,
		re:   regexp.MustCompile(`(?i)(?:phrase\s?book|(?:common|useful|basic|local)\s+phrases)(?:\s+(?:for|in)\s+([^.!?]+))?`),
		extract: func(m []string) domain.IntentSlots {
			return domain.IntentSlots{Language: strings.TrimSpace(m[1])}
		},
	},
	{
		kind: KindGreeting,
		re:   regexp.MustCompile(`(?i)\b(?:hi|hello|hey|namaste|good\s+(?:morning|afternoon|evening))\b`),
	},
	{
		kind: KindIdentity,
		re:   regexp.MustCompile(`(?i)who\s+are\s+you|what(?:'s|\s+is)\s+your\s+name|what\s+can\s+you\s+do`),
	},
	{
		kind: KindBooking,
		re:   regexp.MustCompile(`(?i)\bhotels?\b|\b(?:room|stay|accommodation)\b`),
		extract: func(m []string) domain.IntentSlots {
			return domain.IntentSlots{BookingType: "hotel"}
		},
	},
	{
		kind: KindBooking,
		re:   regexp.MustCompile(`(?i)\bflights?\b|\bfly\s+to\b|\bairline\b`),
		extract: func(m []string) domain.IntentSlots {
			return domain.IntentSlots{BookingType: "flight"}
		},
	},
	{
		kind: KindDashboard,
		re:   regexp.MustCompile(`(?i)\bdashboard\b|\bmy\s+(?:bookings?|trips?|reservations?)\b`),
	},
	{
		kind: KindPlanner,
		re:   regexp.MustCompile(`(?i)\bplan\b.*\btrip\b|\btrip\s+plann(?:er|ing)\b|\bitinerary\b`),
	},
	{
		kind: KindLogin,
		re:   regexp.MustCompile(`(?i)\b(?:log\s?in|sign\s?in|sign\s?up|register)\b`),
	},
}

// Classify maps an utterance to an intent. Case-insensitive, deterministic;
// absence of a match yields KindUnclassified.
func Classify(utterance string) Intent {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Intent{Kind: KindUnclassified}
	}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		it := Intent{Kind: r.kind}
		if r.extract != nil {
			it.Slots = r.extract(m)
		}
		return it
	}
	return Intent{Kind: KindUnclassified}
}
