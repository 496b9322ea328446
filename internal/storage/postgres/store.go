package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pairwatch/internal/chain"
	"pairwatch/internal/model"
)

// Schema creates the discovery archive table.
const Schema = `
CREATE TABLE IF NOT EXISTS pair_discoveries (
	id              UUID PRIMARY KEY,
	source          TEXT NOT NULL,
	factory         TEXT NOT NULL,
	pair_address    TEXT NOT NULL UNIQUE,
	token0          TEXT NOT NULL,
	token1          TEXT NOT NULL,
	symbol0         TEXT NOT NULL,
	symbol1         TEXT NOT NULL,
	block_number    BIGINT NOT NULL,
	tx_hash         TEXT NOT NULL,
	market          JSONB NOT NULL,
	dispatched      BOOLEAN NOT NULL,
	dispatch_error  TEXT,
	discovered_at   TIMESTAMPTZ NOT NULL
)`

const insertDiscovery = `
	INSERT INTO pair_discoveries (
		id, source, factory, pair_address, token0, token1, symbol0, symbol1,
		block_number, tx_hash, market, dispatched, dispatch_error, discovered_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	ON CONFLICT (pair_address) DO NOTHING
`

// Store archives discoveries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the archive table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutDiscovery inserts a discovery. A pair already archived is left as is.
func (s *Store) PutDiscovery(ctx context.Context, d model.Discovery) error {
	market, err := json.Marshal(d.Record.Market)
	if err != nil {
		return fmt.Errorf("marshal market data: %w", err)
	}
	_, err = s.pool.Exec(ctx, insertDiscovery, discoveryArgs(d, market)...)
	return err
}

func discoveryArgs(d model.Discovery, market []byte) []any {
	ev := d.Record.Event
	var dispatchErr *string
	if d.DispatchError != "" {
		dispatchErr = &d.DispatchError
	}
	return []any{
		d.ID,
		ev.Source,
		chain.Canonical(ev.Factory),
		chain.Canonical(ev.PairAddress),
		chain.Canonical(ev.Token0),
		chain.Canonical(ev.Token1),
		d.Record.Symbol0,
		d.Record.Symbol1,
		int64(ev.BlockNumber),
		ev.TxHash,
		market,
		d.Dispatched,
		dispatchErr,
		d.DiscoveredAt,
	}
}
