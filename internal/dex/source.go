package dex

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairwatch/internal/chain"
	"pairwatch/internal/model"
)

// FactorySource yields new PairCreated events for one named factory.
type FactorySource struct {
	name    string
	factory common.Address
	cursor  *chain.LogCursor
	timeout time.Duration
	logger  *zap.Logger
}

// FactorySourceConfig configures a FactorySource.
type FactorySourceConfig struct {
	Name         string
	Factory      common.Address
	MaxBlockSpan uint64
	CallTimeout  time.Duration
}

func NewFactorySource(reader chain.LogReader, cfg FactorySourceConfig, logger *zap.Logger) (*FactorySource, error) {
	if reader == nil {
		return nil, fmt.Errorf("log reader is nil")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if cfg.Factory == (common.Address{}) {
		return nil, fmt.Errorf("source %s: factory address is required", cfg.Name)
	}
	topic, err := PairCreatedTopic()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FactorySource{
		name:    cfg.Name,
		factory: cfg.Factory,
		cursor:  chain.NewLogCursor(reader, cfg.Factory, []common.Hash{topic}, cfg.MaxBlockSpan),
		timeout: cfg.CallTimeout,
		logger:  logger.With(zap.String("source", cfg.Name)),
	}, nil
}

// Name returns the human-readable source name.
func (s *FactorySource) Name() string {
	return s.name
}

// Factory returns the factory contract address.
func (s *FactorySource) Factory() common.Address {
	return s.factory
}

// Poll returns PairCreated events newer than the previous call, in chain
// order. Logs that fail to decode are logged and dropped. A fetch error is
// returned alongside any events decoded before it.
func (s *FactorySource) Poll(ctx context.Context) ([]model.PairEvent, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logs, fetchErr := s.cursor.Next(ctx)
	if next, started := s.cursor.Position(); started && (fetchErr != nil || len(logs) > 0) {
		s.logger.Debug("cursor position", zap.Uint64("next_block", next), zap.Int("logs", len(logs)), zap.Bool("fetch_failed", fetchErr != nil))
	}

	events := make([]model.PairEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			s.logger.Debug("skip removed log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
			continue
		}
		if log.Address != s.factory {
			continue
		}

		event, err := DecodePairCreated(log)
		if err != nil {
			s.logger.Warn("decode PairCreated failed",
				zap.String("kind", "malformed_payload"),
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
				zap.Error(err),
			)
			continue
		}
		event.Source = s.name
		events = append(events, event)
	}

	if fetchErr != nil {
		return events, fmt.Errorf("poll %s: %w", s.name, fetchErr)
	}
	return events, nil
}
