package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres wraps sql.DB for the audit log using pgx.
type Postgres struct {
	Client *sql.DB
}

// NewPostgres opens a pool and pings it once.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	const op = "store.NewPostgres"

	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return &Postgres{Client: db}, nil
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	if p == nil || p.Client == nil {
		return nil
	}
	return p.Client.Close()
}
