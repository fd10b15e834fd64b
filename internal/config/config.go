package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level deskbot configuration.
type Config struct {
	Bot        BotConfig        `json:"bot"`
	Hours      HoursConfig      `json:"hours"`
	Rules      RulesConfig      `json:"rules"`
	Provider   ProviderConfig   `json:"provider"`
	Transcribe TranscribeConfig `json:"transcribe"`
	Directory  DirectoryConfig  `json:"directory"`
	Connectors ConnectorConfig  `json:"connectors"`
	API        APIConfig        `json:"api"`
}

// BotConfig holds process-level settings.
type BotConfig struct {
	DataDir      string `json:"data_dir"`
	SnapshotFile string `json:"snapshot_file,omitempty"` // default: <data_dir>/state.json
	TicketsDB    string `json:"tickets_db,omitempty"`    // default: <data_dir>/tickets.db
	Timezone     string `json:"timezone"`                // IANA name, e.g. America/Sao_Paulo
	AdminID      string `json:"admin_id,omitempty"`      // user allowed to run admin commands
	OnCallName   string `json:"on_call_name,omitempty"`
	OnCallPhone  string `json:"on_call_phone,omitempty"`
}

// HoursConfig defines the business-hours window.
type HoursConfig struct {
	Weekdays  []time.Weekday `json:"weekdays,omitempty"` // default Mon-Fri
	StartHour int            `json:"start_hour"`         // inclusive
	EndHour   int            `json:"end_hour"`           // exclusive
}

// RulesConfig holds scheduling intervals and thresholds.
type RulesConfig struct {
	InactivityMinutes       int `json:"inactivity_minutes,omitempty"`        // default 30
	SweepSeconds            int `json:"sweep_seconds,omitempty"`             // default 60
	DirectoryRefreshMinutes int `json:"directory_refresh_minutes,omitempty"` // default 30
}

// ProviderConfig holds generative text service settings.
type ProviderConfig struct {
	Type    string   `json:"type,omitempty"` // "openai" (default) or "anthropic"
	APIKey  string   `json:"api_key"`
	BaseURL string   `json:"base_url,omitempty"`
	Models  []string `json:"models"` // ordered fallback list
}

// TranscribeConfig holds speech-to-text service settings.
type TranscribeConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// DirectoryConfig holds the client directory service settings.
type DirectoryConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"`
}

// ConnectorConfig holds settings for chat platform transports.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with DESKBOT_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			DataDir:     getenv("DESKBOT_DATA_DIR", "/data"),
			Timezone:    getenv("DESKBOT_TIMEZONE", "America/Sao_Paulo"),
			AdminID:     os.Getenv("DESKBOT_ADMIN_ID"),
			OnCallName:  os.Getenv("DESKBOT_ON_CALL_NAME"),
			OnCallPhone: os.Getenv("DESKBOT_ON_CALL_PHONE"),
		},
		Hours: HoursConfig{
			StartHour: getenvInt("DESKBOT_START_HOUR", 8),
			EndHour:   getenvInt("DESKBOT_END_HOUR", 18),
		},
		Provider: ProviderConfig{
			Type:    getenv("DESKBOT_PROVIDER_TYPE", "openai"),
			APIKey:  os.Getenv("DESKBOT_PROVIDER_API_KEY"),
			BaseURL: os.Getenv("DESKBOT_PROVIDER_BASE_URL"),
			Models:  splitList(getenv("DESKBOT_MODELS", "gpt-4o-mini,gpt-4o")),
		},
		Transcribe: TranscribeConfig{
			APIKey:  os.Getenv("DESKBOT_TRANSCRIBE_API_KEY"),
			BaseURL: os.Getenv("DESKBOT_TRANSCRIBE_BASE_URL"),
		},
		Directory: DirectoryConfig{
			BaseURL: os.Getenv("DESKBOT_DIRECTORY_URL"),
			APIKey:  os.Getenv("DESKBOT_DIRECTORY_API_KEY"),
		},
		API: APIConfig{
			Host: getenv("DESKBOT_API_HOST", "0.0.0.0"),
			Port: getenvInt("DESKBOT_API_PORT", 8080),
			Key:  os.Getenv("DESKBOT_API_KEY"),
		},
	}

	if token := os.Getenv("DESKBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("DESKBOT_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: DESKBOT_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}
	if bot := os.Getenv("DESKBOT_SLACK_BOT_TOKEN"); bot != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken: bot,
			AppToken: os.Getenv("DESKBOT_SLACK_APP_TOKEN"),
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.SnapshotFile == "" {
		c.Bot.SnapshotFile = c.Bot.DataDir + "/state.json"
	}
	if c.Bot.TicketsDB == "" {
		c.Bot.TicketsDB = c.Bot.DataDir + "/tickets.db"
	}
	if c.Bot.Timezone == "" {
		c.Bot.Timezone = "America/Sao_Paulo"
	}
	if len(c.Hours.Weekdays) == 0 {
		c.Hours.Weekdays = []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		}
	}
	if c.Rules.InactivityMinutes <= 0 {
		c.Rules.InactivityMinutes = 30
	}
	if c.Rules.SweepSeconds <= 0 {
		c.Rules.SweepSeconds = 60
	}
	if c.Rules.DirectoryRefreshMinutes <= 0 {
		c.Rules.DirectoryRefreshMinutes = 30
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Bot.DataDir == "" {
		errs = append(errs, "bot.data_dir is required")
	}
	if _, err := time.LoadLocation(c.Bot.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("bot.timezone %q is invalid", c.Bot.Timezone))
	}
	if c.Hours.StartHour < 0 || c.Hours.StartHour > 23 {
		errs = append(errs, "hours.start_hour must be in [0,23]")
	}
	if c.Hours.EndHour < 1 || c.Hours.EndHour > 24 {
		errs = append(errs, "hours.end_hour must be in [1,24]")
	}
	if c.Hours.EndHour <= c.Hours.StartHour {
		errs = append(errs, "hours.end_hour must be after hours.start_hour")
	}
	if c.Provider.APIKey == "" {
		errs = append(errs, "provider.api_key is required")
	}
	if len(c.Provider.Models) == 0 {
		errs = append(errs, "provider.models must list at least one model")
	}
	if c.Connectors.Telegram == nil && c.Connectors.Slack == nil {
		errs = append(errs, "at least one connector is required")
	}
	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location resolves the configured timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Bot.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
