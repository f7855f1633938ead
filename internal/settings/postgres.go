package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/opay/pkg/types"
)

const (
	querySelectSettings = `
		SELECT name, value
		FROM opay_settings
		WHERE namespace = $1`

	queryUpsertSetting = `
		INSERT INTO opay_settings (namespace, name, value, updated_at)
		VALUES (@namespace, @name, @value, now())
		ON CONFLICT (namespace, name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PostgresStore keeps the settings as rows in opay_settings.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool to connString and pings it.
func NewPostgresStore(ctx context.Context, connString string, poolSize int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = poolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// Load reads every row in the settings namespace. Missing rows load as "".
func (s *PostgresStore) Load(ctx context.Context) (*domain.Credentials, error) {
	rows, err := s.pool.Query(ctx, querySelectSettings, domain.SettingsName)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	creds := &domain.Credentials{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		creds.Set(name, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}

	return creds, nil
}

// Save validates and upserts all three settings in one transaction.
func (s *PostgresStore) Save(ctx context.Context, creds *domain.Credentials) error {
	if err := validateForSave(creds); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, key := range domain.SettingsKeys {
			batch.Queue(queryUpsertSetting, pgx.NamedArgs{
				"namespace": domain.SettingsName,
				"name":      key,
				"value":     creds.Get(key),
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting settings: %w", err)
		}
		return nil
	})
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
