package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/fills"
)

// Postgres wraps the connection pool for the fills store. Workers acquire an
// exclusive connection per partition transaction; the COPY protocol does not
// tolerate interleaved streams on one connection.
type Postgres struct {
	Pool *pgxpool.Pool

	bulk *Loader
}

func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{Pool: pool, bulk: NewLoader()}, nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}

// LoadPartition copies one frame and its ledger entry in a single
// transaction, on a connection held exclusively by the caller's worker for
// the duration. After commit either both are visible or neither is.
func (p *Postgres) LoadPartition(ctx context.Context, frame *fills.Frame, partitionID string) (int64, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := p.bulk.Load(ctx, tx, frame, partitionID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", partitionID, err)
	}
	return rows, nil
}

// TruncateAll wipes the fills table and the progress ledger in one
// transaction.
func (p *Postgres) TruncateAll(ctx context.Context) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin truncate: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := p.bulk.Truncate(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
