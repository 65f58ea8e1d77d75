package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding secrets. They are never read from the YAML file.
const (
	EnvAPIKey         = "SJ_API_KEY"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	EnvPushoverToken  = "PUSHOVER_TOKEN"
	EnvPushoverUser   = "PUSHOVER_USER"
)

const dateLayout = "2006-01-02"

// Notification channels accepted by notify.channel.
const (
	ChannelAuto     = "auto"
	ChannelTelegram = "telegram"
	ChannelPushover = "pushover"
	ChannelConsole  = "console"
)

type TripConfig struct {
	Date            string   `yaml:"date"` // YYYY-MM-DD, sent to the backend as-is
	Origin          string   `yaml:"origin"`
	Destination     string   `yaml:"destination"`
	OriginName      string   `yaml:"origin_name"`
	DestinationName string   `yaml:"destination_name"`
	Passengers      []string `yaml:"passengers"` // e.g., ["ADULT", "ADULT"]
}

// Route returns a human readable "origin -> destination" label, preferring
// station names over backend ids.
func (t TripConfig) Route() string {
	from, to := t.OriginName, t.DestinationName
	if from == "" {
		from = t.Origin
	}
	if to == "" {
		to = t.Destination
	}
	return from + " -> " + to
}

func (t TripConfig) TravelDate() (time.Time, error) {
	d, err := time.Parse(dateLayout, t.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid travel date %q: %w", t.Date, err)
	}
	return d, nil
}

type WindowConfig struct {
	After         string `yaml:"after"`  // HH:MM
	Before        string `yaml:"before"` // HH:MM
	IncludeAfter  bool   `yaml:"include_after"`
	IncludeBefore bool   `yaml:"include_before"`
}

type BookingConfig struct {
	BaseURL     string `yaml:"base_url"`
	SearchPath  string `yaml:"search_path"`
	ResultsPath string `yaml:"results_path"` // {id} is replaced by the search session id
	OffersPath  string `yaml:"offers_path"`  // {id} is replaced by the journey id
	PlacesPath  string `yaml:"places_path"`

	ClientName string `yaml:"client_name"`
	UserAgent  string `yaml:"user_agent"`
	APIKey     string `yaml:"-"`

	Timeout         time.Duration `yaml:"timeout"`
	ResultsDelay    time.Duration `yaml:"results_delay"`
	RequestInterval time.Duration `yaml:"request_interval"`

	JourneyKeys []string `yaml:"journey_keys"`
	FareClasses []string `yaml:"fare_classes"`
	Currency    string   `yaml:"currency"`
	BookingURL  string   `yaml:"booking_url"`
}

type NotifyConfig struct {
	Channel        string `yaml:"channel"`
	TelegramAPIURL string `yaml:"telegram_api_url"`

	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"-"`
	PushoverToken  string `yaml:"-"`
	PushoverUser   string `yaml:"-"`
}

func (n NotifyConfig) HasTelegram() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

func (n NotifyConfig) HasPushover() bool {
	return n.PushoverToken != "" && n.PushoverUser != ""
}

type Config struct {
	Trip          TripConfig    `yaml:"trip"`
	ArrivalWindow WindowConfig  `yaml:"arrival_window"`
	HeartbeatDays []string      `yaml:"heartbeat_days"` // e.g., ["monday"]
	Booking       BookingConfig `yaml:"booking"`
	Notify        NotifyConfig  `yaml:"notify"`
}

// IsHeartbeatDay returns true if the given weekday is in the configured
// heartbeat days. An empty list disables heartbeats.
func (c *Config) IsHeartbeatDay(weekday time.Weekday) bool {
	dayName := strings.ToLower(weekday.String())
	for _, d := range c.HeartbeatDays {
		if strings.ToLower(strings.TrimSpace(d)) == dayName {
			return true
		}
	}
	return false
}

// LoadEnvFile seeds the process environment from a dotenv file. Variables that
// are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// Load reads and fully validates the config used by watchdog runs.
func Load(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, os.Getenv)
}

// LoadBooking reads the config but only validates backend access, so a file
// without a trip section is accepted.
func LoadBooking(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBooking(data, os.Getenv)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("reading config file: %v", err)}}
	}
	return data, nil
}

// Parse decodes YAML config, fills secrets through getenv, applies defaults and
// validates the result.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	cfg, err := decode(data, getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseBooking is Parse restricted to ValidateBooking.
func ParseBooking(data []byte, getenv func(string) string) (*Config, error) {
	cfg, err := decode(data, getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateBooking(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("parsing config file: %v", err)}}
	}

	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.Booking.APIKey = getenv(EnvAPIKey)
	c.Notify.TelegramToken = getenv(EnvTelegramToken)
	c.Notify.TelegramChatID = getenv(EnvTelegramChatID)
	c.Notify.PushoverToken = getenv(EnvPushoverToken)
	c.Notify.PushoverUser = getenv(EnvPushoverUser)
}
