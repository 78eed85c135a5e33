package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}
	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

var postgresSchema = []struct {
	name string
	ddl  string
}{
	{"chat_imports", `
		CREATE TABLE IF NOT EXISTS chat_imports (
			id TEXT PRIMARY KEY,
			source VARCHAR(20) NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			message_count INT NOT NULL DEFAULT 0,
			skipped_files INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"chat_messages", `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			import_id TEXT,
			source VARCHAR(20) NOT NULL,
			line TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(50) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);`},
	// question text is never stored, only outcome counters
	{"ask_stats", `
		CREATE TABLE IF NOT EXISTS ask_stats (
			day VARCHAR(10) NOT NULL,
			category VARCHAR(20) NOT NULL,
			strategy VARCHAR(20) NOT NULL,
			count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (day, category, strategy)
		);`},
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, t := range postgresSchema {
		if _, err := p.Pool.Exec(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
