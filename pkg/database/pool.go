package database

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/greeting-store/pkg/configuration"
)

// NewPool builds and pings a pool from the database options.
func NewPool(ctx context.Context, opts configuration.DatabaseOptions) (*pgxpool.Pool, error) {
	config, err := PoolConfig(opts)
	if err != nil {
		return nil, err
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "create database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func PoolConfig(opts configuration.DatabaseOptions) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if config.MinConns > config.MaxConns {
		return nil, errors.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", config.MinConns, config.MaxConns)
	}
	return config, nil
}

// DefaultConnectTimeout applies when the options leave ConnectTimeout unset.
const DefaultConnectTimeout = 5 * time.Second
