package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, []Source{
		{Name: "PopSwap", Factory: "0x195b605fa7c6f379fd27ddeec89cfae6caabfae9"},
		{Name: "RockSwap", Factory: "0x02c73ecb9b82e545e32665edc42ae903f8aa86a9"},
	}, cfg.Sources)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.CallTimeout)
	assert.Equal(t, uint64(2000), cfg.MaxBlockSpan)
	assert.Equal(t, "bitrock", cfg.MarketNetwork)
	assert.Equal(t, "BROCK", cfg.NativeSymbol)
	assert.Equal(t, 1, cfg.DispatchMaxAttempts)
	assert.Equal(t, CommandModeNone, cfg.CommandMode)
	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAIRWATCH_RPC", "http://localhost:8545")
	t.Setenv("PAIRWATCH_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("PAIRWATCH_TELEGRAM_CHAT_ID", " @pairs ")
	t.Setenv("PAIRWATCH_SOURCES", "Alpha=0x0000000000000000000000000000000000000001, Beta=0x0000000000000000000000000000000000000002")
	t.Setenv("PAIRWATCH_POLL_INTERVAL", "3s")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "@pairs", cfg.TelegramChatID)
	assert.Equal(t, []string{"Alpha", "Beta"}, cfg.SourceNames())
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.String("command-mode", "", "")
	require.NoError(t, flags.Parse([]string{"--rpc", "ws://node:8546", "--command-mode", "Webhook"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "ws://node:8546", cfg.RPCURL)
	assert.Equal(t, CommandModeWebhook, cfg.CommandMode)
}

func TestLoadConfigFileSourcesMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairwatch.yaml")
	content := "rpc: http://node\nsources:\n  zeta: \"0x0000000000000000000000000000000000000009\"\n  alpha: \"0x0000000000000000000000000000000000000001\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://node", cfg.RPCURL)
	assert.Equal(t, []string{"alpha", "zeta"}, cfg.SourceNames())
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestParseSourcesRejectsMalformed(t *testing.T) {
	_, err := parseSources([]string{"PopSwap"})
	assert.Error(t, err)

	_, err = parseSources([]string{"A=0x1", "A=0x2"})
	assert.Error(t, err)

	_, err = parseSources([]string{"=0x1"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		RPCURL:        "http://node",
		Sources:       []Source{{Name: "PopSwap", Factory: "0x195b605fa7c6f379fd27ddeec89cfae6caabfae9"}},
		TelegramToken: "123:abc",
		CommandMode:   CommandModeNone,
	}
	assert.NoError(t, valid.Validate(), "missing chat id is not fatal")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing rpc", mutate: func(c *Config) { c.RPCURL = "" }},
		{name: "no sources", mutate: func(c *Config) { c.Sources = nil }},
		{name: "bad address", mutate: func(c *Config) { c.Sources = []Source{{Name: "X", Factory: "0x123"}} }},
		{name: "missing token", mutate: func(c *Config) { c.TelegramToken = " " }},
		{name: "bad mode", mutate: func(c *Config) { c.CommandMode = "push" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
