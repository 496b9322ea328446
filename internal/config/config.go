package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pairwatch/internal/chain"
)

// DefaultSources are the factories watched when none are configured.
const DefaultSources = "PopSwap=0x195b605fa7c6f379fd27ddeec89cfae6caabfae9,RockSwap=0x02c73ecb9b82e545e32665edc42ae903f8aa86a9"

// Command receiver modes.
const (
	CommandModeNone    = "none"
	CommandModePoll    = "poll"
	CommandModeWebhook = "webhook"
)

// Source is a named factory contract.
type Source struct {
	Name    string
	Factory string
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL               string
	Sources              []Source
	PollInterval         time.Duration
	CallTimeout          time.Duration
	MaxBlockSpan         uint64
	TelegramToken        string
	TelegramChatID       string
	TelegramAPIEndpoint  string
	MarketBaseURL        string
	MarketNetwork        string
	MarketRPS            float64
	NativeSymbol         string
	DispatchMaxAttempts  int
	DispatchRetryBackoff time.Duration
	CommandMode          string
	WebhookURL           string
	Listen               string
	ArchiveOut           string
	PGDSN                string
	LogLevel             string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAIRWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("sources", DefaultSources)
	v.SetDefault("poll-interval", 10*time.Second)
	v.SetDefault("call-timeout", 15*time.Second)
	v.SetDefault("max-block-span", uint64(2000))
	v.SetDefault("market-base-url", "https://api.geckoterminal.com/api/v2")
	v.SetDefault("market-network", "bitrock")
	v.SetDefault("market-rps", 0.5)
	v.SetDefault("native-symbol", "BROCK")
	v.SetDefault("dispatch-max-attempts", 1)
	v.SetDefault("dispatch-retry-backoff", time.Second)
	v.SetDefault("command-mode", CommandModeNone)
	v.SetDefault("listen", ":5000")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	sources, err := getSources(v, "sources")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:               v.GetString("rpc"),
		Sources:              sources,
		PollInterval:         v.GetDuration("poll-interval"),
		CallTimeout:          v.GetDuration("call-timeout"),
		MaxBlockSpan:         v.GetUint64("max-block-span"),
		TelegramToken:        v.GetString("telegram-token"),
		TelegramChatID:       strings.TrimSpace(v.GetString("telegram-chat-id")),
		TelegramAPIEndpoint:  v.GetString("telegram-api-endpoint"),
		MarketBaseURL:        v.GetString("market-base-url"),
		MarketNetwork:        v.GetString("market-network"),
		MarketRPS:            v.GetFloat64("market-rps"),
		NativeSymbol:         v.GetString("native-symbol"),
		DispatchMaxAttempts:  v.GetInt("dispatch-max-attempts"),
		DispatchRetryBackoff: v.GetDuration("dispatch-retry-backoff"),
		CommandMode:          strings.ToLower(strings.TrimSpace(v.GetString("command-mode"))),
		WebhookURL:           v.GetString("webhook-url"),
		Listen:               v.GetString("listen"),
		ArchiveOut:           v.GetString("archive-out"),
		PGDSN:                v.GetString("pg-dsn"),
		LogLevel:             v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate reports the startup errors that must abort the process. A missing
// chat id is not one of them.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RPCURL) == "" {
		errs = append(errs, errors.New("rpc is required"))
	}
	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	for _, src := range c.Sources {
		if _, err := chain.ParseAddress(src.Factory); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
		}
	}
	if strings.TrimSpace(c.TelegramToken) == "" {
		errs = append(errs, errors.New("telegram-token is required"))
	}
	switch c.CommandMode {
	case CommandModeNone, CommandModePoll, CommandModeWebhook:
	default:
		errs = append(errs, fmt.Errorf("unknown command-mode %q", c.CommandMode))
	}
	return errors.Join(errs...)
}

// SourceNames returns the configured source names in order.
func (c Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		names = append(names, src.Name)
	}
	return names
}

// getSources reads name=address pairs. Flag and env values keep their order;
// a map from a config file is ordered by name.
func getSources(v *viper.Viper, key string) ([]Source, error) {
	if !v.IsSet(key) {
		return nil, nil
	}

	var entries map[string]string
	switch typed := v.Get(key).(type) {
	case map[string]string:
		entries = typed
	case map[string]interface{}:
		entries = make(map[string]string, len(typed))
		for k, val := range typed {
			entries[k] = fmt.Sprintf("%v", val)
		}
	case map[interface{}]interface{}:
		entries = make(map[string]string, len(typed))
		for k, val := range typed {
			entries[fmt.Sprintf("%v", k)] = fmt.Sprintf("%v", val)
		}
	default:
		return parseSources(getStringSlice(v, key))
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]string, 0, len(names))
	for _, name := range names {
		items = append(items, name+"="+entries[name])
	}
	return parseSources(items)
}

func parseSources(items []string) ([]Source, error) {
	out := make([]Source, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid source %q: want name=address", item)
		}
		name := strings.TrimSpace(parts[0])
		factory := strings.TrimSpace(parts[1])
		if name == "" || factory == "" {
			return nil, fmt.Errorf("invalid source %q: want name=address", item)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate source %q", name)
		}
		seen[name] = struct{}{}
		out = append(out, Source{Name: name, Factory: factory})
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
