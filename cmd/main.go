package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"wikilist/internal/api"
	"wikilist/internal/bot"
	"wikilist/internal/config"
	"wikilist/internal/metrics"
	"wikilist/internal/redis"
	"wikilist/internal/search"
	"wikilist/internal/tui"
)

func main() {
	flags := pflag.NewFlagSet("wikilist", pflag.ExitOnError)
	flags.String("mode", config.ModeTUI, "front-end to run: tui or bot")
	configDir := flags.String("config", "configs", "directory holding config.yml")
	_ = flags.Parse(os.Args[1:])

	cfg, v, err := config.Load(*configDir, flags)
	if err != nil {
		slog.Error("init config err", "error", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.Level)
	logOut, closeLog, err := logOutput(cfg)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level})))
	config.WatchLogLevel(v, level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Address); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	profilesAPI := api.NewProfilesAPI(cfg.API.Endpoint, cfg.API.Timeout)
	viewOpts := search.Options{
		Debounce: cfg.Search.Debounce,
		PageSize: cfg.Search.PageSize,
	}

	switch cfg.Mode {
	case config.ModeBot:
		err = runBot(ctx, cfg, profilesAPI, viewOpts)
	default:
		err = runTUI(profilesAPI, viewOpts)
	}
	if err != nil {
		slog.Error("wikilist stopped with error", "error", err)
		os.Exit(1)
	}
}

// logOutput keeps the terminal free for the TUI by logging to a file there.
func logOutput(cfg *config.Config) (*os.File, func(), error) {
	if cfg.Mode != config.ModeTUI || cfg.Log.File == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func runTUI(profilesAPI *api.ProfilesAPI, viewOpts search.Options) error {
	m := tui.New(profilesAPI, viewOpts)
	defer m.Close()

	if _, err := tea.NewProgram(m).Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func runBot(ctx context.Context, cfg *config.Config, profilesAPI *api.ProfilesAPI, viewOpts search.Options) (err error) {
	images, err := bot.NewImageCache(cfg.Image.Fallback, cfg.Image.NotFound)
	if err != nil {
		return fmt.Errorf("init image cache: %w", err)
	}
	go images.ClearPeriodically(ctx, cfg.Image.Cache.TTL)

	redisClient, err := redis.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	tgBot, err := bot.NewBot(cfg.TelegramToken, redisClient, profilesAPI, images, viewOpts, cfg.Redis.TTL)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	tgBot.Start()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	<-stopChan
	slog.Info("Shutting down gracefully...")
	tgBot.Stop()
	slog.Info("Application shutdown complete")
	return err
}
