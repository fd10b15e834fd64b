package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"bot": {"data_dir": "/tmp/deskbot", "timezone": "America/Sao_Paulo"},
		"hours": {"start_hour": 8, "end_hour": 18},
		"provider": {"api_key": "sk-test", "models": ["gpt-4o-mini", "gpt-4o"]},
		"connectors": {"telegram": {"token": "123:abc"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Bot.SnapshotFile != "/tmp/deskbot/state.json" {
		t.Errorf("SnapshotFile = %q", cfg.Bot.SnapshotFile)
	}
	if cfg.Bot.TicketsDB != "/tmp/deskbot/tickets.db" {
		t.Errorf("TicketsDB = %q", cfg.Bot.TicketsDB)
	}
	if got := len(cfg.Hours.Weekdays); got != 5 {
		t.Errorf("default weekdays = %d, want 5", got)
	}
	if cfg.Rules.InactivityMinutes != 30 {
		t.Errorf("InactivityMinutes = %d", cfg.Rules.InactivityMinutes)
	}
	if cfg.Rules.DirectoryRefreshMinutes != 30 {
		t.Errorf("DirectoryRefreshMinutes = %d", cfg.Rules.DirectoryRefreshMinutes)
	}
	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Errorf("Location = %v", cfg.Location())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "no provider key",
			json: `{"bot": {"data_dir": "/d"}, "hours": {"start_hour": 8, "end_hour": 18},
				"provider": {"models": ["m"]}, "connectors": {"telegram": {"token": "t"}}}`,
			want: "provider.api_key",
		},
		{
			name: "no models",
			json: `{"bot": {"data_dir": "/d"}, "hours": {"start_hour": 8, "end_hour": 18},
				"provider": {"api_key": "k", "models": []}, "connectors": {"telegram": {"token": "t"}}}`,
			want: "provider.models",
		},
		{
			name: "no connector",
			json: `{"bot": {"data_dir": "/d"}, "hours": {"start_hour": 8, "end_hour": 18},
				"provider": {"api_key": "k", "models": ["m"]}}`,
			want: "connector",
		},
		{
			name: "inverted hours",
			json: `{"bot": {"data_dir": "/d"}, "hours": {"start_hour": 18, "end_hour": 8},
				"provider": {"api_key": "k", "models": ["m"]}, "connectors": {"telegram": {"token": "t"}}}`,
			want: "end_hour",
		},
		{
			name: "bad timezone",
			json: `{"bot": {"data_dir": "/d", "timezone": "Mars/Olympus"}, "hours": {"start_hour": 8, "end_hour": 18},
				"provider": {"api_key": "k", "models": ["m"]}, "connectors": {"telegram": {"token": "t"}}}`,
			want: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.json))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DESKBOT_DATA_DIR", t.TempDir())
	t.Setenv("DESKBOT_PROVIDER_API_KEY", "sk-env")
	t.Setenv("DESKBOT_MODELS", "model-a, model-b")
	t.Setenv("DESKBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DESKBOT_TELEGRAM_ALLOW_FROM", "10, 20")
	t.Setenv("DESKBOT_START_HOUR", "9")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if got := cfg.Provider.Models; len(got) != 2 || got[0] != "model-a" || got[1] != "model-b" {
		t.Errorf("Models = %v", got)
	}
	if cfg.Hours.StartHour != 9 {
		t.Errorf("StartHour = %d", cfg.Hours.StartHour)
	}
	if cfg.Connectors.Telegram == nil || len(cfg.Connectors.Telegram.AllowFrom) != 2 {
		t.Fatalf("telegram config = %+v", cfg.Connectors.Telegram)
	}
	if cfg.Connectors.Telegram.AllowFrom[1] != 20 {
		t.Errorf("AllowFrom = %v", cfg.Connectors.Telegram.AllowFrom)
	}
	if len(cfg.Hours.Weekdays) != 5 || cfg.Hours.Weekdays[0] != time.Monday {
		t.Errorf("Weekdays = %v", cfg.Hours.Weekdays)
	}
}

func TestLoadFromEnvBadAllowList(t *testing.T) {
	t.Setenv("DESKBOT_DATA_DIR", t.TempDir())
	t.Setenv("DESKBOT_PROVIDER_API_KEY", "sk-env")
	t.Setenv("DESKBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DESKBOT_TELEGRAM_ALLOW_FROM", "not-a-number")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for invalid allow list")
	}
}
