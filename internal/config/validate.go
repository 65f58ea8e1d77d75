package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for the SJ booking backend as observed in production.
const (
	DefaultBaseURL     = "https://prod-api.adp.sj.se/public/sales/booking/v3"
	DefaultSearchPath  = "/search"
	DefaultResultsPath = "/departures/search/{id}"
	DefaultOffersPath  = "/departures/{id}/offers"
	DefaultPlacesPath  = "https://www.sj.se/api/typeahead/places" // public site, not the booking API
	DefaultClientName  = "sjse-booking-client"
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.6 Safari/605.1.15"
	DefaultBookingURL  = "https://www.sj.se"
	DefaultCurrency    = "SEK"
	DefaultTelegramURL = "https://api.telegram.org"

	DefaultTimeout         = 30 * time.Second
	DefaultResultsDelay    = 1 * time.Second
	DefaultRequestInterval = 250 * time.Millisecond
)

var (
	DefaultJourneyKeys = []string{"travels.departures", "departures", "journeys"}
	DefaultFareClasses = []string{"seatOffers", "bedOffers", "couchetteOffers"}
)

// ConfigurationError reports missing or invalid input. It is fatal and is
// raised before any network call.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

func (c *Config) applyDefaults() {
	b := &c.Booking
	if b.BaseURL == "" {
		b.BaseURL = DefaultBaseURL
	}
	if b.SearchPath == "" {
		b.SearchPath = DefaultSearchPath
	}
	if b.ResultsPath == "" {
		b.ResultsPath = DefaultResultsPath
	}
	if b.OffersPath == "" {
		b.OffersPath = DefaultOffersPath
	}
	if b.PlacesPath == "" {
		b.PlacesPath = DefaultPlacesPath
	}
	if b.ClientName == "" {
		b.ClientName = DefaultClientName
	}
	if b.UserAgent == "" {
		b.UserAgent = DefaultUserAgent
	}
	if b.Timeout == 0 {
		b.Timeout = DefaultTimeout
	}
	if b.ResultsDelay == 0 {
		b.ResultsDelay = DefaultResultsDelay
	}
	if b.RequestInterval == 0 {
		b.RequestInterval = DefaultRequestInterval
	}
	if len(b.JourneyKeys) == 0 {
		b.JourneyKeys = append([]string(nil), DefaultJourneyKeys...)
	}
	if len(b.FareClasses) == 0 {
		b.FareClasses = append([]string(nil), DefaultFareClasses...)
	}
	if b.Currency == "" {
		b.Currency = DefaultCurrency
	}
	if b.BookingURL == "" {
		b.BookingURL = DefaultBookingURL
	}

	if len(c.Trip.Passengers) == 0 {
		c.Trip.Passengers = []string{"ADULT"}
	}
	if c.ArrivalWindow.After == "" && c.ArrivalWindow.Before == "" {
		c.ArrivalWindow.After = "00:00"
		c.ArrivalWindow.Before = "23:59"
		c.ArrivalWindow.IncludeAfter = true
		c.ArrivalWindow.IncludeBefore = true
	}
	// nil means the key was absent; an explicit empty list disables heartbeats
	if c.HeartbeatDays == nil {
		c.HeartbeatDays = []string{"monday"}
	}

	if c.Notify.Channel == "" {
		c.Notify.Channel = ChannelAuto
	}
	if c.Notify.TelegramAPIURL == "" {
		c.Notify.TelegramAPIURL = DefaultTelegramURL
	}
}

// Validate collects every problem instead of stopping at the first one.
func (c *Config) Validate() error {
	return problemsError(append(c.tripProblems(), c.bookingProblems()...))
}

// ValidateTrip checks what a watchdog run needs beyond backend access: the trip,
// the arrival window and the heartbeat days.
func (c *Config) ValidateTrip() error {
	return problemsError(c.tripProblems())
}

// ValidateBooking checks backend access and notification settings only. Station
// lookup runs with this alone, before any trip is configured.
func (c *Config) ValidateBooking() error {
	return problemsError(c.bookingProblems())
}

func problemsError(problems []string) error {
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func (c *Config) tripProblems() []string {
	var problems []string

	if c.Trip.Origin == "" || c.Trip.Destination == "" || c.Trip.Date == "" {
		problems = append(problems, "trip: date, origin, and destination are required")
	}
	if c.Trip.Date != "" {
		if _, err := c.Trip.TravelDate(); err != nil {
			problems = append(problems, fmt.Sprintf("trip: %v", err))
		}
	}
	for i, p := range c.Trip.Passengers {
		if strings.TrimSpace(p) == "" {
			problems = append(problems, fmt.Sprintf("trip: passenger %d has no category", i))
		}
	}

	if _, err := time.Parse("15:04", c.ArrivalWindow.After); err != nil {
		problems = append(problems, fmt.Sprintf("arrival_window: invalid after %q", c.ArrivalWindow.After))
	}
	if _, err := time.Parse("15:04", c.ArrivalWindow.Before); err != nil {
		problems = append(problems, fmt.Sprintf("arrival_window: invalid before %q", c.ArrivalWindow.Before))
	}

	for _, d := range c.HeartbeatDays {
		if !isWeekday(d) {
			problems = append(problems, fmt.Sprintf("heartbeat_days: unknown weekday %q", d))
		}
	}

	return problems
}

func (c *Config) bookingProblems() []string {
	var problems []string

	if c.Booking.APIKey == "" {
		problems = append(problems, EnvAPIKey+" environment variable is required")
	}
	if c.Booking.Timeout < 0 || c.Booking.ResultsDelay < 0 || c.Booking.RequestInterval < 0 {
		problems = append(problems, "booking: durations must not be negative")
	}
	if !strings.Contains(c.Booking.ResultsPath, "{id}") || !strings.Contains(c.Booking.OffersPath, "{id}") {
		problems = append(problems, "booking: results_path and offers_path must contain {id}")
	}

	switch c.Notify.Channel {
	case ChannelAuto, ChannelTelegram, ChannelPushover, ChannelConsole:
	default:
		problems = append(problems, fmt.Sprintf("notify: unknown channel %q", c.Notify.Channel))
	}

	return problems
}

func isWeekday(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return true
		}
	}
	return false
}
