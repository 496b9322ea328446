package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pairwatch/internal/chain"
	"pairwatch/internal/command"
	"pairwatch/internal/config"
	"pairwatch/internal/dedup"
	"pairwatch/internal/dex"
	"pairwatch/internal/market"
	"pairwatch/internal/metrics"
	"pairwatch/internal/notify"
	"pairwatch/internal/storage"
	"pairwatch/internal/storage/postgres"
	"pairwatch/internal/watcher"
)

func runWatcher(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipeline := metrics.NewPipeline(registry)

	sources, err := buildSources(chainClient, cfg, logger.Named("source"))
	if err != nil {
		return err
	}

	bot, err := notify.NewBot(cfg.TelegramToken, cfg.TelegramAPIEndpoint, cfg.CallTimeout, logger)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	dispatcher := notify.NewTelegramDispatcher(bot, notify.DispatcherConfig{
		Retry: notify.RetryPolicy{
			MaxAttempts:    uint(max(cfg.DispatchMaxAttempts, 1)),
			InitialBackoff: cfg.DispatchRetryBackoff,
		},
		Metrics: pipeline,
	}, logger.Named("dispatch"))

	archive, closeArchive, err := openArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	poller, err := watcher.NewPoller(watcher.Config{
		ChatID:    cfg.TelegramChatID,
		Interval:  cfg.PollInterval,
		Formatter: notify.Formatter{NativeSymbol: cfg.NativeSymbol, Placeholder: notify.Placeholder},
	}, watcher.Deps{
		Sources: sources,
		Claims:  dedup.NewStore(),
		Symbols: dex.NewSymbolResolver(chainClient, dex.SymbolResolverConfig{
			Placeholder: notify.Placeholder,
			CallTimeout: cfg.CallTimeout,
			Metrics:     pipeline,
		}, logger.Named("symbols")),
		Market: market.NewClient(market.ClientConfig{
			BaseURL:           cfg.MarketBaseURL,
			Network:           cfg.MarketNetwork,
			Timeout:           cfg.CallTimeout,
			RequestsPerSecond: cfg.MarketRPS,
			Burst:             len(sources),
			Metrics:           pipeline,
		}, logger.Named("market")),
		Dispatcher: dispatcher,
		Archive:    archive,
		Metrics:    pipeline,
	}, logger.Named("watcher"))
	if err != nil {
		return err
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}

	logger.Info("pairwatch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Strings("sources", cfg.SourceNames()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("call_timeout", cfg.CallTimeout),
		zap.Bool("chat_configured", cfg.TelegramChatID != ""),
		zap.String("command_mode", cfg.CommandMode),
		zap.String("listen", cfg.Listen),
		zap.String("archive_out", cfg.ArchiveOut),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	handler := command.NewHandler(dispatcher, cfg.SourceNames(), logger.Named("command"))

	var receiver command.UpdateSource
	if cfg.CommandMode == config.CommandModePoll {
		receiver, err = notify.NewBot(cfg.TelegramToken, cfg.TelegramAPIEndpoint, command.ReceiverClientTimeout(cfg.CallTimeout), nil)
		if err != nil {
			return fmt.Errorf("connect telegram receiver: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gctx)
	})

	serverCfg := command.ServerConfig{Addr: cfg.Listen, Gatherer: registry}
	switch cfg.CommandMode {
	case config.CommandModePoll:
		g.Go(func() error {
			return command.Receive(gctx, receiver, handler, logger.Named("command"))
		})
	case config.CommandModeWebhook:
		if cfg.Listen == "" {
			logger.Warn("webhook mode without listen address; updates will not be received")
		}
		if err := command.RegisterWebhook(bot, cfg.WebhookURL); err != nil {
			logger.Warn("webhook registration failed", zap.Error(err))
		}
		serverCfg.Handler = handler
	}

	if cfg.Listen != "" {
		server := command.NewServer(serverCfg, logger.Named("http"))
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("pairwatch stopped")
	return err
}

// buildSources creates one factory source per configured entry, in order.
func buildSources(reader chain.LogReader, cfg config.Config, logger *zap.Logger) ([]watcher.EventSource, error) {
	sources := make([]watcher.EventSource, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		factory, err := chain.ParseAddress(src.Factory)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		source, err := dex.NewFactorySource(reader, dex.FactorySourceConfig{
			Name:         src.Name,
			Factory:      factory,
			MaxBlockSpan: cfg.MaxBlockSpan,
			CallTimeout:  cfg.CallTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("source configured",
			zap.String("source", source.Name()),
			zap.String("factory", chain.Canonical(source.Factory())),
		)
		sources = append(sources, source)
	}
	return sources, nil
}

// openArchive returns nil when no sink is configured.
func openArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (watcher.Archive, func(), error) {
	var sinks storage.Multi
	closers := []func(){}

	if cfg.ArchiveOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.ArchiveOut))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, func() {}, fmt.Errorf("ensure archive schema: %w", err)
		}
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll, nil
	}
	logger.Info("discovery archive enabled", zap.Int("sinks", len(sinks)))
	return sinks, closeAll, nil
}
