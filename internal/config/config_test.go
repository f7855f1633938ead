package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config gets defaults",
			yaml: ``,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 30*time.Second, cfg.OPay.Timeout)
				assert.Equal(t, BackendFile, cfg.Settings.Backend)
				assert.Equal(t, "opay.settings.yaml", cfg.Settings.Path)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, int32(4), cfg.Database.PoolSize)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
opay:
  token: ${OPAY_TEST_TOKEN}
  merchant_id: "256612345678901"
  api_uri: https://sandboxapi.opaycheckout.com
`,
			envVars: map[string]string{"OPAY_TEST_TOKEN": "OPAYPUB123"},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "OPAYPUB123", cfg.OPay.Token)
				creds := cfg.OPay.Credentials()
				assert.Equal(t, "OPAYPUB123", creds.Token)
				assert.Equal(t, "256612345678901", creds.MerchantID)
				assert.Equal(t, "https://sandboxapi.opaycheckout.com", creds.BaseURI)
				assert.True(t, creds.IsValid())
			},
		},
		{
			name: "missing credentials are not a config error",
			yaml: `
opay:
  timeout: 5s
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, 5*time.Second, cfg.OPay.Timeout)
				assert.False(t, cfg.OPay.Credentials().IsValid())
			},
		},
		{
			name: "file backend keeps explicit path",
			yaml: `
settings:
  backend: file
  path: /var/lib/opay/settings.yaml
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "/var/lib/opay/settings.yaml", cfg.Settings.Path)
			},
		},
		{
			name: "postgres backend requires database host",
			yaml: `
settings:
  backend: postgres
database:
  name: opay
  user: opay
`,
			wantErr: "database.host is required when settings.backend is postgres",
		},
		{
			name: "postgres backend requires database name and user",
			yaml: `
settings:
  backend: postgres
database:
  host: localhost
`,
			wantErr: "database.name is required when settings.backend is postgres",
		},
		{
			name: "postgres backend valid config",
			yaml: `
settings:
  backend: postgres
database:
  host: db.example.com
  port: 5433
  name: opay
  user: admin
  password: pass
  sslmode: require
  pool_size: 10
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, BackendPostgres, cfg.Settings.Backend)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, int32(10), cfg.Database.PoolSize)
				assert.Empty(t, cfg.Settings.Path)
			},
		},
		{
			name: "redis backend",
			yaml: `
settings:
  backend: redis
redis:
  addr: cache:6379
  db: 2
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, BackendRedis, cfg.Settings.Backend)
				assert.Equal(t, "cache:6379", cfg.Redis.Addr)
				assert.Equal(t, 2, cfg.Redis.DB)
			},
		},
		{
			name: "unknown backend",
			yaml: `
settings:
  backend: drupal
`,
			wantErr: `settings.backend must be one of: file, postgres, redis (got "drupal")`,
		},
		{
			name: "invalid port",
			yaml: `
server:
  port: 70000
`,
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name: "negative timeout",
			yaml: `
opay:
  timeout: -1s
`,
			wantErr: "opay.timeout must not be negative",
		},
		{
			name: "unknown log format",
			yaml: `
logging:
  format: xml
`,
			wantErr: "logging.format must be one of: text, json, pretty",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
opay:
  token: OPAYPUB999
  merchant_id: "256600000000001"
  api_uri: https://api.opaycheckout.com
  timeout: 10s
settings:
  backend: redis
redis:
  addr: redis:6379
  password: secret
logging:
  level: debug
  format: pretty
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 10*time.Second, cfg.OPay.Timeout)
				assert.Equal(t, "https://api.opaycheckout.com", cfg.OPay.APIURI)
				assert.Equal(t, "secret", cfg.Redis.Password)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "pretty", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_JoinsErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
server:
  port: -1
settings:
  backend: postgres
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.host")
	assert.Contains(t, err.Error(), "database.user")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, validate(cfg))
	assert.Equal(t, BackendFile, cfg.Settings.Backend)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "opay",
				User:     "opay",
				Password: "testpass",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=opay user=opay password=testpass sslmode=disable",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "payments",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 dbname=payments user=admin password=s3cret sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
