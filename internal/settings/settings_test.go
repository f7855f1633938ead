package settings_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/opay/internal/settings"
	"github.com/donaldgifford/opay/internal/settings/mocks"
	domain "github.com/donaldgifford/opay/pkg/types"
)

func validCreds() *domain.Credentials {
	return &domain.Credentials{
		Token:      "OPAYPUB-test-token",
		MerchantID: "256612345678901",
		BaseURI:    "https://testapi.opaycheckout.com",
	}
}

func TestMap_Get(t *testing.T) {
	t.Parallel()

	m := settings.Map{domain.KeyToken: "tok"}
	assert.Equal(t, "tok", m.Get(domain.KeyToken))
	assert.Empty(t, m.Get(domain.KeyMerchantID))
}

func TestCredentialsFrom(t *testing.T) {
	t.Parallel()

	creds := settings.CredentialsFrom(settings.Map{
		domain.KeyToken:      "tok",
		domain.KeyMerchantID: "mid",
		domain.KeyAPIURI:     "https://api",
	})
	assert.Equal(t, &domain.Credentials{Token: "tok", MerchantID: "mid", BaseURI: "https://api"}, creds)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	store := mocks.NewMockStore(t)
	store.EXPECT().Load(context.Background()).Return(validCreds(), nil)

	p, err := settings.Snapshot(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "256612345678901", p.Get(domain.KeyMerchantID))
	assert.Equal(t, validCreds(), settings.CredentialsFrom(p))
}

func TestSnapshot_LoadError(t *testing.T) {
	t.Parallel()

	store := mocks.NewMockStore(t)
	store.EXPECT().Load(context.Background()).Return(nil, errors.New("connection reset"))

	_, err := settings.Snapshot(context.Background(), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading settings: connection reset")
}

func TestSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   *domain.Credentials
		seed      *domain.Credentials
		wantWrite bool
	}{
		{
			name:      "empty store takes seed",
			current:   &domain.Credentials{},
			seed:      validCreds(),
			wantWrite: true,
		},
		{
			name:    "valid store is kept",
			current: &domain.Credentials{Token: "t", MerchantID: "m", BaseURI: "u"},
			seed:    validCreds(),
		},
		{
			name:    "incomplete seed is ignored",
			current: &domain.Credentials{Token: "t"},
			seed:    &domain.Credentials{Token: "only-token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := mocks.NewMockStore(t)
			store.EXPECT().Load(context.Background()).Return(tt.current, nil)
			if tt.wantWrite {
				store.EXPECT().Save(context.Background(), tt.seed).Return(nil)
			}

			wrote, err := settings.Seed(context.Background(), store, tt.seed)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWrite, wrote)
		})
	}
}

func TestSeed_SaveError(t *testing.T) {
	t.Parallel()

	store := mocks.NewMockStore(t)
	store.EXPECT().Load(context.Background()).Return(&domain.Credentials{}, nil)
	store.EXPECT().Save(context.Background(), validCreds()).Return(errors.New("read-only file system"))

	wrote, err := settings.Seed(context.Background(), store, validCreds())
	require.Error(t, err)
	assert.False(t, wrote)
	assert.Contains(t, err.Error(), "seeding settings: read-only file system")
}

func TestViperProvider(t *testing.T) {
	v := viper.New()
	v.Set("opay.token", "from-config")
	t.Setenv("OPAY_MERCHANT_ID", "from-env")

	p := settings.NewViperProvider(v)
	assert.Equal(t, "from-config", p.Get(domain.KeyToken))
	assert.Equal(t, "from-env", p.Get(domain.KeyMerchantID))
	assert.Empty(t, p.Get(domain.KeyAPIURI))
}

func TestFileStore_MissingFileLoadsEmpty(t *testing.T) {
	t.Parallel()

	s := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	creds, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.IsValid())
	assert.Equal(t, &domain.Credentials{}, creds)
}

func TestFileStore_SaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := settings.NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, validCreds()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, validCreds(), got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "opay.settings:")
	assert.Contains(t, string(data), "256612345678901")
}

func TestFileStore_SaveKeepsOtherSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "opay.yaml")
	existing := "server:\n  port: 9090\nversion: 2\nopay.settings:\n  token: old\n  merchant_id: old\n  api_uri: https://old\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	s := settings.NewFileStore(path)
	ctx := context.Background()

	before, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", before.Token)

	require.NoError(t, s.Save(ctx, validCreds()))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, validCreds(), got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"port": 9090}, doc["server"])
	assert.Equal(t, 2, doc["version"])
	assert.NotContains(t, string(data), "https://old")
}

func TestFileStore_LoadRejectsNonMapping(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	s := settings.NewFileStore(path)
	_, err := s.Load(context.Background())
	require.ErrorContains(t, err, "top level is not a mapping")

	require.Error(t, s.Save(context.Background(), validCreds()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "- a\n- b\n", string(data))
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := settings.NewFileStore(path)

	err := s.Save(context.Background(), &domain.Credentials{Token: "tok"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "The Merchant ID value is not correct.")
	assert.Len(t, domain.FieldErrors(err), 2)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestFileStore_LoadParseError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("opay.settings: [not, a, map"), 0o600))

	_, err := settings.NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing settings file")
}

func TestFileStore_Ping(t *testing.T) {
	t.Parallel()

	ok := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, ok.Ping(context.Background()))

	missing := settings.NewFileStore(filepath.Join(t.TempDir(), "absent", "settings.yaml"))
	require.Error(t, missing.Ping(context.Background()))
}
