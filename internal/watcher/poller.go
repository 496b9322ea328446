package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pairwatch/internal/metrics"
	"pairwatch/internal/model"
	"pairwatch/internal/notify"
)

// DefaultInterval is the pause between two cycles of one source.
const DefaultInterval = 10 * time.Second

// EventSource yields PairCreated events newer than its previous call.
type EventSource interface {
	Name() string
	Poll(ctx context.Context) ([]model.PairEvent, error)
}

// Claimer is the dedup gate in front of enrichment and delivery.
type Claimer interface {
	TryClaim(pair common.Address) bool
}

// SymbolResolver resolves a token to a display symbol, never failing.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, token common.Address) string
}

// MarketDataFetcher returns best-effort market metrics for a pair.
type MarketDataFetcher interface {
	FetchMarketData(ctx context.Context, pair common.Address) model.MarketData
}

// Dispatcher delivers a rendered message to a chat.
type Dispatcher interface {
	Dispatch(ctx context.Context, chatID string, text string) error
}

// Archive records processed discoveries.
type Archive interface {
	PutDiscovery(ctx context.Context, discovery model.Discovery) error
}

// Config holds runtime settings for the poller.
type Config struct {
	ChatID    string
	Interval  time.Duration
	Formatter notify.Formatter
}

// Deps are the collaborators driven by the poller. Archive and Metrics are
// optional.
type Deps struct {
	Sources    []EventSource
	Claims     Claimer
	Symbols    SymbolResolver
	Market     MarketDataFetcher
	Dispatcher Dispatcher
	Archive    Archive
	Metrics    *metrics.Pipeline
}

// Poller runs one independent fetch-claim-enrich-notify cycle per source.
// All cycles share the same Claimer.
type Poller struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewPoller(cfg Config, deps Deps, logger *zap.Logger) (*Poller, error) {
	if len(deps.Sources) == 0 {
		return nil, fmt.Errorf("at least one event source is required")
	}
	seen := make(map[string]struct{}, len(deps.Sources))
	for _, src := range deps.Sources {
		if src == nil {
			return nil, fmt.Errorf("event source is nil")
		}
		if _, dup := seen[src.Name()]; dup {
			return nil, fmt.Errorf("duplicate event source %q", src.Name())
		}
		seen[src.Name()] = struct{}{}
	}
	if deps.Claims == nil {
		return nil, fmt.Errorf("dedup store is nil")
	}
	if deps.Symbols == nil {
		return nil, fmt.Errorf("symbol resolver is nil")
	}
	if deps.Market == nil {
		return nil, fmt.Errorf("market data fetcher is nil")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChatID == "" {
		logger.Warn("no destination chat configured; discoveries will not be delivered")
	}

	return &Poller{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Run starts one cycle per source and blocks until ctx is cancelled and
// every cycle has stopped.
func (p *Poller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range p.deps.Sources {
		g.Go(func() error {
			p.runSource(gctx, src)
			return nil
		})
	}
	return g.Wait()
}

func (p *Poller) runSource(ctx context.Context, src EventSource) {
	logger := p.logger.With(zap.String("source", src.Name()))
	logger.Info("source cycle start", zap.Duration("interval", p.cfg.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("source cycle stopped")
			return
		case <-timer.C:
		}

		p.RunOnce(ctx, src)
		timer.Reset(p.cfg.Interval)
	}
}

// RunOnce performs a single fetch and processes every returned event in
// order. It returns the number of pairs claimed. Cancellation of ctx is
// observed between events: an event already claimed is always carried
// through to dispatch, remaining events are dropped.
func (p *Poller) RunOnce(ctx context.Context, src EventSource) int {
	name := src.Name()
	logger := p.logger.With(zap.String("source", name))
	iterCtx := context.WithoutCancel(ctx)

	start := time.Now()
	events, err := src.Poll(iterCtx)
	if err != nil {
		logger.Warn("poll failed", zap.String("kind", "transport"), zap.Int("events", len(events)), zap.Error(err))
	}
	p.deps.Metrics.ObserveEvents(name, len(events))

	claimed := 0
	for i, event := range events {
		if ctx.Err() != nil {
			logger.Info("shutdown requested, dropping unprocessed events", zap.Int("dropped", len(events)-i))
			break
		}
		if p.handleEvent(iterCtx, logger, event) {
			claimed++
		}
	}

	p.deps.Metrics.ObservePoll(name, time.Since(start), err)
	if len(events) > 0 {
		logger.Debug("cycle complete", zap.Int("events", len(events)), zap.Int("claimed", claimed))
	}
	return claimed
}

func (p *Poller) handleEvent(ctx context.Context, logger *zap.Logger, event model.PairEvent) bool {
	claimed := p.deps.Claims.TryClaim(event.PairAddress)
	p.deps.Metrics.ObserveClaim(event.Source, claimed)
	if !claimed {
		logger.Debug("pair already handled", zap.String("pair", event.PairAddress.Hex()))
		return false
	}

	id := p.newID()
	logger = logger.With(zap.String("discovery_id", id), zap.String("pair", event.PairAddress.Hex()))

	record := p.enrich(ctx, event)
	text := p.cfg.Formatter.Format(record)
	dispatchErr := p.deps.Dispatcher.Dispatch(ctx, p.cfg.ChatID, text)

	discovery := model.Discovery{
		ID:           id,
		DiscoveredAt: p.now().UTC(),
		Record:       record,
		Dispatched:   dispatchErr == nil,
	}
	if dispatchErr != nil {
		discovery.DispatchError = dispatchErr.Error()
	}

	logger.Info("new pair",
		zap.String("token0", event.Token0.Hex()),
		zap.String("token1", event.Token1.Hex()),
		zap.String("symbol0", record.Symbol0),
		zap.String("symbol1", record.Symbol1),
		zap.Uint64("block_number", event.BlockNumber),
		zap.Bool("market_data", !record.Market.Empty()),
		zap.Bool("dispatched", discovery.Dispatched),
	)

	if p.deps.Archive != nil {
		if err := p.deps.Archive.PutDiscovery(ctx, discovery); err != nil {
			p.deps.Metrics.ArchiveFailed()
			logger.Warn("archive discovery failed", zap.Error(err))
		}
	}
	return true
}

// enrich resolves both symbols and the market data concurrently. None of
// the lookups can fail; missing values stay empty.
func (p *Poller) enrich(ctx context.Context, event model.PairEvent) model.PairRecord {
	var (
		symbol0 string
		symbol1 string
		market  model.MarketData
		g       errgroup.Group
	)
	g.Go(func() error {
		symbol0 = p.deps.Symbols.ResolveSymbol(ctx, event.Token0)
		return nil
	})
	g.Go(func() error {
		symbol1 = p.deps.Symbols.ResolveSymbol(ctx, event.Token1)
		return nil
	})
	g.Go(func() error {
		market = p.deps.Market.FetchMarketData(ctx, event.PairAddress)
		return nil
	})
	_ = g.Wait()

	return model.PairRecord{
		Event:   event,
		Symbol0: symbol0,
		Symbol1: symbol1,
		Market:  market,
	}
}
