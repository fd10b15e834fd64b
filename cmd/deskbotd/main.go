package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	apiPkg "github.com/deskbot-io/deskbot/internal/api"
	"github.com/deskbot-io/deskbot/internal/config"
	"github.com/deskbot-io/deskbot/internal/connector"
	slackconn "github.com/deskbot-io/deskbot/internal/connector/slack"
	"github.com/deskbot-io/deskbot/internal/connector/telegram"
	"github.com/deskbot-io/deskbot/internal/coordinator"
	"github.com/deskbot-io/deskbot/internal/directory"
	"github.com/deskbot-io/deskbot/internal/logbuf"
	"github.com/deskbot-io/deskbot/internal/provider"
	"github.com/deskbot-io/deskbot/internal/scheduler"
	"github.com/deskbot-io/deskbot/internal/session"
	"github.com/deskbot-io/deskbot/internal/snapshot"
	"github.com/deskbot-io/deskbot/internal/summarizer"
	"github.com/deskbot-io/deskbot/internal/ticket"
	"github.com/deskbot-io/deskbot/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	envFile := flag.String("env-file", "", "Path to .env file loaded before reading the environment")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		godotenv.Load() // .env in the working directory, if present
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logRing := logbuf.NewRing(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logRing))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc := cfg.Location()
	logger.Info("deskbotd starting", "timezone", loc.String(), "data_dir", cfg.Bot.DataDir)

	// Ticket store
	os.MkdirAll(cfg.Bot.DataDir, 0o755)
	store, err := ticket.NewSQLiteStore(cfg.Bot.TicketsDB, loc)
	if err != nil {
		logger.Error("failed to open ticket store", "path", cfg.Bot.TicketsDB, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Generative provider
	var gen provider.Generator
	switch cfg.Provider.Type {
	case "anthropic":
		var opts []provider.AnthropicOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(cfg.Provider.BaseURL))
		}
		gen = provider.NewAnthropic(cfg.Provider.APIKey, opts...)
	default: // "openai" or empty
		var opts []provider.OpenAIOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(cfg.Provider.BaseURL))
		}
		gen = provider.NewOpenAI(cfg.Provider.APIKey, opts...)
	}
	logger.Info("provider initialized", "type", gen.Name(), "models", cfg.Provider.Models)

	// Speech-to-text is optional; without it voice notes degrade to a
	// placeholder log entry.
	var stt transcribe.Transcriber
	if cfg.Transcribe.BaseURL != "" {
		stt = transcribe.New(cfg.Transcribe.BaseURL, cfg.Transcribe.APIKey)
		logger.Info("transcription enabled", "base_url", cfg.Transcribe.BaseURL)
	}

	// Directory cache over the external client directory
	dirSvc := directory.NewHTTPService(cfg.Directory.BaseURL, cfg.Directory.APIKey)
	dirCache := directory.NewCache(dirSvc, logger.With("component", "directory"))

	registry := session.NewRegistry()
	summ := summarizer.New(
		gen,
		cfg.Provider.Models,
		logger.With("component", "summarizer"),
		summarizer.WithLinkEnricher(summarizer.NewLinkEnricher(logger.With("component", "links"))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transport: telegram is primary; slack is the notice-only alternative.
	var transport connector.Transport
	var co *coordinator.Coordinator

	onMessage := func(ctx context.Context, msg connector.Message) error {
		return co.HandleMessage(ctx, msg)
	}
	onAction := func(ctx context.Context, act connector.Action) error {
		return co.HandleAction(ctx, act)
	}

	switch {
	case cfg.Connectors.Telegram != nil:
		tg, err := telegram.New(telegram.Config{
			Token:     cfg.Connectors.Telegram.Token,
			AllowFrom: cfg.Connectors.Telegram.AllowFrom,
		}, onMessage, onAction, logger.With("connector", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		transport = tg
	case cfg.Connectors.Slack != nil:
		sl, err := slackconn.New(slackconn.Config{
			BotToken: cfg.Connectors.Slack.BotToken,
			AppToken: cfg.Connectors.Slack.AppToken,
		}, onMessage, onAction, logger.With("connector", "slack"))
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		transport = sl
	}

	settings := coordinator.Settings{
		AdminID:     cfg.Bot.AdminID,
		OnCallName:  cfg.Bot.OnCallName,
		OnCallPhone: cfg.Bot.OnCallPhone,
		Inactivity:  time.Duration(cfg.Rules.InactivityMinutes) * time.Minute,
		Hours: scheduler.Hours{
			Weekdays: cfg.Hours.Weekdays,
			Start:    cfg.Hours.StartHour,
			End:      cfg.Hours.EndHour,
			Location: loc,
		},
	}
	co = coordinator.New(transport, registry, store, dirCache, summ, stt, nil, settings, logger.With("component", "coordinator"))

	// Snapshot restore, then wire the write-behind snapshotter.
	snapper := snapshot.New(cfg.Bot.SnapshotFile, co, logger.With("component", "snapshot"))
	co.SetSnapshotter(snapper)
	blob, err := snapshot.Load(cfg.Bot.SnapshotFile)
	if err != nil {
		logger.Error("snapshot load failed", "path", cfg.Bot.SnapshotFile, "error", err)
		os.Exit(1)
	}
	if err := co.RestoreSnapshot(blob); err != nil {
		logger.Error("snapshot restore failed", "error", err)
		os.Exit(1)
	}
	if dirCache.Len() == 0 {
		if err := dirCache.Refresh(ctx); err != nil {
			logger.Warn("initial directory refresh failed", "error", err)
		}
	}

	// Scheduled jobs
	sched := scheduler.New(loc, logger.With("component", "scheduler"))
	jobs := []struct {
		name string
		err  error
	}{
		{"directory-refresh", sched.Every(time.Duration(cfg.Rules.DirectoryRefreshMinutes)*time.Minute, "directory-refresh", co.RefreshDirectory)},
		{"scheduled-open", sched.AtHour(cfg.Hours.StartHour, cfg.Hours.Weekdays, "scheduled-open", co.OpenAll)},
		{"scheduled-close", sched.AtHour(cfg.Hours.EndHour, cfg.Hours.Weekdays, "scheduled-close", co.CloseAll)},
		{"inactivity-sweep", sched.Every(time.Duration(cfg.Rules.SweepSeconds)*time.Second, "inactivity-sweep", co.Sweep)},
	}
	for _, j := range jobs {
		if j.err != nil {
			logger.Error("failed to register job", "job", j.name, "error", j.err)
			os.Exit(1)
		}
	}

	apiSrv := apiPkg.NewServer(co, store, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"), logRing)

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			safeGo(logger, name, fn)
		}()
	}
	run("coordinator", func() { co.Run(ctx) })
	run("snapshotter", func() { snapper.Run(ctx) })
	run("scheduler", func() { sched.Start(ctx) })
	run("transport", func() { transport.Start(ctx) })
	run("api-server", func() { apiSrv.Start(ctx) })
	logger.Info("deskbotd running", "transport", transport.Name(), "api_port", cfg.API.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	transport.Stop()
	wg.Wait()
	logger.Info("deskbotd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
