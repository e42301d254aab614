package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeTUI = "tui"
	ModeBot = "bot"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	TelegramToken string        `mapstructure:"telegramToken"`
	API           APIConfig     `mapstructure:"api"`
	Search        SearchConfig  `mapstructure:"search"`
	Redis         RedisConfig   `mapstructure:"redis"`
	Image         ImageConfig   `mapstructure:"image"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
	Log           LogConfig     `mapstructure:"log"`
}

type APIConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	PageSize int           `mapstructure:"pageSize"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ImageConfig struct {
	Cache struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Fallback string `mapstructure:"fallback"`
	NotFound string `mapstructure:"notFound"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level slog.Level `mapstructure:"level"`
	File  string     `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeTUI)
	v.SetDefault("api.endpoint", "https://wikied-api.vercel.app/6-4")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("search.debounce", 1300*time.Millisecond)
	v.SetDefault("search.pageSize", 6)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("image.cache.ttl", time.Hour)
	v.SetDefault("image.fallback", "./static/basic-profile.png")
	v.SetDefault("image.notFound", "./static/no-search.png")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "wikilist.log")
}

// Load reads .env (optional), configDir/config.yml (optional) and the
// bound flags, in increasing order of precedence for flags.
func Load(configDir string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	if err := v.BindEnv("telegramToken", "TELEGRAM_TOKEN"); err != nil {
		return nil, nil, fmt.Errorf("bind telegram token: %w", err)
	}
	if flags != nil {
		if err := v.BindPFlag("mode", flags.Lookup("mode")); err != nil {
			return nil, nil, fmt.Errorf("bind mode flag: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
		slog.Warn("No config file found, using defaults", "dir", configDir)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Mode = strings.ToLower(c.Mode)
	switch c.Mode {
	case ModeTUI:
	case ModeBot:
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required in %s mode", ModeBot)
		}
		if c.Image.Cache.TTL <= 0 {
			return fmt.Errorf("invalid image.cache.ttl %s", c.Image.Cache.TTL)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if c.Search.Debounce <= 0 {
		return fmt.Errorf("invalid search.debounce %s", c.Search.Debounce)
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("invalid search.pageSize %d", c.Search.PageSize)
	}
	return nil
}

// WatchLogLevel re-reads log.level whenever the config file changes.
func WatchLogLevel(v *viper.Viper, level *slog.LevelVar) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var next slog.Level
		if err := next.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
			slog.Error("Ignoring invalid log level", "file", e.Name, "error", err)
			return
		}
		if next != level.Level() {
			slog.Info("Log level changed", "from", level.Level(), "to", next)
			level.Set(next)
		}
	})
	v.WatchConfig()
}
