package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pairwatch",
		Short:        "Watch DEX factories for new pairs and announce them on Telegram",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pair watcher",
		RunE:  runWatcher,
	}

	runCmd.Flags().String("rpc", "", "chain RPC URL (http(s) or ws(s))")
	runCmd.Flags().String("sources", "", "factories to watch (comma-separated name=address)")
	runCmd.Flags().Duration("poll-interval", 10*time.Second, "pause between polls of one source")
	runCmd.Flags().Duration("call-timeout", 15*time.Second, "timeout for each outbound call")
	runCmd.Flags().Uint64("max-block-span", 2000, "max blocks per eth_getLogs call")
	runCmd.Flags().String("telegram-token", "", "Telegram bot token")
	runCmd.Flags().String("telegram-chat-id", "", "destination chat id or @channel")
	runCmd.Flags().String("telegram-api-endpoint", "", "Telegram Bot API endpoint format (default public API)")
	runCmd.Flags().String("market-base-url", "https://api.geckoterminal.com/api/v2", "market data API base URL")
	runCmd.Flags().String("market-network", "bitrock", "market data network identifier")
	runCmd.Flags().Float64("market-rps", 0.5, "market data requests per second")
	runCmd.Flags().String("native-symbol", "BROCK", "native currency ticker shown in messages")
	runCmd.Flags().Int("dispatch-max-attempts", 1, "delivery attempts per message (1 disables retries)")
	runCmd.Flags().Duration("dispatch-retry-backoff", time.Second, "initial backoff between delivery attempts")
	runCmd.Flags().String("command-mode", "none", "bot command receiver (none, poll, webhook)")
	runCmd.Flags().String("webhook-url", "", "public URL registered with Telegram in webhook mode")
	runCmd.Flags().String("listen", ":5000", "HTTP listen address (empty disables the server)")
	runCmd.Flags().String("archive-out", "", "optional JSONL discovery archive path")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the discovery archive")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Print the configured factory sources",
		RunE:  runSources,
	}

	sourcesCmd.Flags().String("sources", "", "factories to watch (comma-separated name=address)")

	root.AddCommand(sourcesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
