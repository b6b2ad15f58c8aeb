package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"

	"github.com/sina1864/EChat/internal/app"
)

// ErrNotFound marks a missing row.
var ErrNotFound = errors.New("store: not found")

type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to postgres and returns a pool wrapper
func NewPostgres(ctx context.Context, cfg app.Config, log *slog.Logger) (*Postgres, error) {
	pc, err := pgxpool.ParseConfig(cfg.PGURL)
	if err != nil {
		return nil, err
	}
	if cfg.PGMaxConn > 0 {
		pc.MaxConns = int32(cfg.PGMaxConn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() { p.pool.Close() }
