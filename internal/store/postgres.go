package store

import (
    "context"
    "database/sql"
    "embed"
    "errors"
    "fmt"

    _ "github.com/jackc/pgx/v5/stdlib"
    "github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres keeps key/value snapshots in a single kv table.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (p *Postgres) Migrate() error {
    goose.SetBaseFS(migrationsFS)
    defer goose.SetBaseFS(nil)
    if err := goose.SetDialect("postgres"); err != nil {
        return err
    }
    if err := goose.Up(p.db, "migrations"); err != nil {
        return fmt.Errorf("goose up: %w", err)
    }
    return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
    var v []byte
    err := p.db.QueryRowContext(ctx, `SELECT value::text FROM kv WHERE key=$1`, key).Scan(&v)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return v, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2::jsonb, now())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, key, string(value))
    return err
}
