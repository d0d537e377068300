// Package config loads joinwatch settings from flags, the environment
// and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmurray2011/joinwatch/internal/notify"
	"github.com/jmurray2011/joinwatch/internal/watcher"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingSetting is wrapped by Load when a required setting is unset.
var ErrMissingSetting = errors.New("missing required setting(s)")

// Setting keys. Each is also read from the environment variable in envNames.
const (
	KeyConfigFile   = "config"
	KeyLogPath      = "log-path"
	KeyBotToken     = "bot-token"
	KeyChatID       = "chat-id"
	KeyStrategy     = "strategy"
	KeyPollInterval = "poll-interval"
	KeySendTimeout  = "send-timeout"
	KeySendRate     = "send-rate"
	KeySendBurst    = "send-burst"
	KeyQueueSize    = "queue-size"
	KeyAPIURL       = "api-url"
	KeyLogLevel     = "log-level"
)

var envNames = map[string]string{
	KeyConfigFile:   "JOINWATCH_CONFIG",
	KeyLogPath:      "LOG_PATH",
	KeyBotToken:     "BOT_TOKEN",
	KeyChatID:       "CHAT_ID",
	KeyStrategy:     "WATCH_STRATEGY",
	KeyPollInterval: "POLL_INTERVAL",
	KeySendTimeout:  "SEND_TIMEOUT",
	KeySendRate:     "SEND_RATE",
	KeySendBurst:    "SEND_BURST",
	KeyQueueSize:    "QUEUE_SIZE",
	KeyAPIURL:       "TELEGRAM_API_URL",
	KeyLogLevel:     "LOG_LEVEL",
}

// required lists the settings without a usable default, in report order.
var required = []string{KeyLogPath, KeyBotToken, KeyChatID}

// Config is the resolved process configuration.
type Config struct {
	LogPath      string
	BotToken     string
	ChatID       string
	Strategy     watcher.Strategy
	PollInterval time.Duration
	SendTimeout  time.Duration
	SendRate     float64
	SendBurst    int
	QueueSize    int
	APIURL       string
	LogLevel     slog.Level
}

// RegisterFlags adds a long flag for every setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfigFile, "", "optional TOML config file")
	fs.String(KeyLogPath, "", "server log file to follow (env LOG_PATH)")
	fs.String(KeyBotToken, "", "Telegram bot token (env BOT_TOKEN)")
	fs.String(KeyChatID, "", "Telegram chat to notify (env CHAT_ID)")
	fs.String(KeyStrategy, string(watcher.StrategyNotify), "change detection: notify or poll (env WATCH_STRATEGY)")
	fs.Duration(KeyPollInterval, watcher.DefaultPollInterval, "interval for the poll strategy (env POLL_INTERVAL)")
	fs.Duration(KeySendTimeout, 10*time.Second, "timeout for one notification (env SEND_TIMEOUT)")
	fs.Float64(KeySendRate, 1, "sustained notifications per second (env SEND_RATE)")
	fs.Int(KeySendBurst, 5, "notifications sent back to back before rate limiting (env SEND_BURST)")
	fs.Int(KeyQueueSize, 256, "notifications held while waiting for delivery; more are dropped with a warning (env QUEUE_SIZE)")
	fs.String(KeyAPIURL, notify.DefaultAPIURL, "Telegram Bot API base URL (env TELEGRAM_API_URL)")
	fs.String(KeyLogLevel, "info", "diagnostic level: debug, info, warn, error (env LOG_LEVEL)")
}

// Bind wires v to the flags registered by RegisterFlags and to the
// environment. Every setting must have a flag in fs.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
		flag := fs.Lookup(key)
		if flag == nil {
			return fmt.Errorf("binding --%s: flag not registered", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", key, err)
		}
	}
	return nil
}

// Load resolves the configuration from v, reading the TOML file named by
// the config setting first if there is one. Every missing required
// setting is reported in a single error wrapping ErrMissingSetting.
func Load(v *viper.Viper) (Config, error) {
	if path := strings.TrimSpace(v.GetString(KeyConfigFile)); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, envNames[key])
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	cfg := Config{
		LogPath:      strings.TrimSpace(v.GetString(KeyLogPath)),
		BotToken:     strings.TrimSpace(v.GetString(KeyBotToken)),
		ChatID:       strings.TrimSpace(v.GetString(KeyChatID)),
		Strategy:     watcher.Strategy(strings.ToLower(strings.TrimSpace(v.GetString(KeyStrategy)))),
		PollInterval: v.GetDuration(KeyPollInterval),
		SendTimeout:  v.GetDuration(KeySendTimeout),
		SendRate:     v.GetFloat64(KeySendRate),
		SendBurst:    v.GetInt(KeySendBurst),
		QueueSize:    v.GetInt(KeyQueueSize),
		APIURL:       strings.TrimSpace(v.GetString(KeyAPIURL)),
	}
	if cfg.Strategy == "" {
		cfg.Strategy = watcher.StrategyNotify
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", envNames[KeyLogLevel], err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Strategy {
	case watcher.StrategyNotify, watcher.StrategyPoll:
	default:
		return fmt.Errorf("invalid %s %q: use %q or %q", envNames[KeyStrategy], c.Strategy, watcher.StrategyNotify, watcher.StrategyPoll)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid %s %s: must be positive", envNames[KeyPollInterval], c.PollInterval)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("invalid %s %s: must be positive", envNames[KeySendTimeout], c.SendTimeout)
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("invalid %s %v: must be positive", envNames[KeySendRate], c.SendRate)
	}
	if c.SendBurst < 1 {
		return fmt.Errorf("invalid %s %d: must be at least 1", envNames[KeySendBurst], c.SendBurst)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("invalid %s %d: must be at least 1", envNames[KeyQueueSize], c.QueueSize)
	}
	return nil
}
