package dialogue

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Templates are the fixed bot responses for statically answered intents.
// Defaults ship in code; a YAML file can override individual entries.
type Templates struct {
	Welcome       string `yaml:"welcome"`
	Identity      string `yaml:"identity"`
	BookingHotel  string `yaml:"bookingHotel"`
	BookingFlight string `yaml:"bookingFlight"`
	Dashboard     string `yaml:"dashboard"`
	LoginRequired string `yaml:"loginRequired"`
	LoginWelcome  string `yaml:"loginWelcome"`
	Planner       string `yaml:"planner"`
	Apology       string `yaml:"apology"`
	Cleared       string `yaml:"cleared"`
}

func DefaultTemplates() Templates {
	return Templates{
		Welcome:       "Hello! I'm your travel assistant. I can help you book hotels and flights, plan trips, build packing lists, and answer travel questions.",
		Identity:      "I'm a travel assistant. Ask me to book a hotel or flight, plan a trip, or put together a packing list for your next destination.",
		BookingHotel:  "Great, let's find you a hotel. I've opened the hotel booking form below.",
		BookingFlight: "Sure, let's book a flight. I've opened the flight booking form below.",
		Dashboard:     "Here's your travel dashboard with your bookings and saved trips.",
		LoginRequired: "Please log in or register first to see your dashboard.",
		LoginWelcome:  "Welcome! You're signed in now. You can view your dashboard or start a new booking.",
		Planner:       "Let's plan your trip! Fill in the planner below and I'll put together an itinerary.",
		Apology:       "Sorry, I'm having technical difficulties right now. Please try again in a moment.",
		Cleared:       "Conversation cleared. How can I help with your travels?",
	}
}

// Booking selects the booking prompt for the extracted booking type.
func (t Templates) Booking(bookingType string) string {
	if bookingType == "flight" {
		return t.BookingFlight
	}
	return t.BookingHotel
}

// LoadTemplates reads YAML overrides from path and merges them over the
// defaults. A missing file is not an error; a present-but-broken file is.
func LoadTemplates(path string, logger *slog.Logger) (Templates, error) {
	base := DefaultTemplates()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("template override file not found, using defaults", "path", path)
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("read templates %s: %w", path, err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return base, fmt.Errorf("parse templates %s: %w", path, err)
	}

	merged := merge(base, override)
	logger.Info("response templates loaded", "path", path)
	return merged, nil
}

func merge(base, override Templates) Templates {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}
	return Templates{
		Welcome:       pick(base.Welcome, override.Welcome),
		Identity:      pick(base.Identity, override.Identity),
		BookingHotel:  pick(base.BookingHotel, override.BookingHotel),
		BookingFlight: pick(base.BookingFlight, override.BookingFlight),
		Dashboard:     pick(base.Dashboard, override.Dashboard),
		LoginRequired: pick(base.LoginRequired, override.LoginRequired),
		LoginWelcome:  pick(base.LoginWelcome, override.LoginWelcome),
		Planner:       pick(base.Planner, override.Planner),
		Apology:       pick(base.Apology, override.Apology),
		Cleared:       pick(base.Cleared, override.Cleared),
	}
}
