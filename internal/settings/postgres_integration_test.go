//go:build integration

package settings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/opay/internal/settings"
	domain "github.com/donaldgifford/opay/pkg/types"
)

func setupPostgres(t *testing.T) *settings.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("opay_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := settings.NewPostgresStore(ctx, connStr, 2)
	require.NoError(t, err)

	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))

	return s
}

func TestPostgresStore_Ping(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_MigrateIsIdempotent(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestPostgresStore_EmptyLoad(t *testing.T) {
	s := setupPostgres(t)

	creds, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.Credentials{}, creds)
}

func TestPostgresStore_SaveLoadOverwrite(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, validCreds()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, validCreds(), got)

	updated := validCreds()
	updated.Token = "OPAYPUB-rotated"
	require.NoError(t, s.Save(ctx, updated))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OPAYPUB-rotated", got.Token)
	assert.Equal(t, updated.MerchantID, got.MerchantID)
}

func TestPostgresStore_SaveRejectsInvalid(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	err := s.Save(ctx, &domain.Credentials{})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.IsValid())
}
