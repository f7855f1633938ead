// Package cmd implements the opay CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/opay/internal/api/client"
	"github.com/donaldgifford/opay/internal/config"
	"github.com/donaldgifford/opay/internal/settings"
	"github.com/donaldgifford/opay/pkg/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "opay",
		Short: "OPay API client and settings server",
		Long: "opay calls the OPay REST API with a configured bearer token and\n" +
			"merchant ID, and serves an HTTP API for managing those settings.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./opay.yaml or $HOME/.opay.yaml)")
	pf.String("server", "", "settings API URL; when set, settings and request commands go through it")
	pf.String("output", "table", "output format (table, json)")
	pf.String("token", "", "OPay bearer token")
	pf.String("merchant-id", "", "OPay merchant ID")
	pf.String("api-uri", "", "OPay API base URI")

	cobra.CheckErr(viper.BindPFlag("server", pf.Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", pf.Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("opay.token", pf.Lookup("token")))
	cobra.CheckErr(viper.BindPFlag("opay.merchant_id", pf.Lookup("merchant-id")))
	cobra.CheckErr(viper.BindPFlag("opay.api_uri", pf.Lookup("api-uri")))
	cobra.CheckErr(viper.BindEnv("server", "OPAY_SERVER"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("opay")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig parses the file viper found. Without one, defaults apply.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.OPay.Timeout}
}

// openStore connects to the configured settings backend.
func openStore(ctx context.Context, cfg *config.Config) (settings.Store, error) {
	switch cfg.Settings.Backend {
	case config.BackendPostgres:
		s, err := settings.NewPostgresStore(ctx, cfg.Database.DSN(), cfg.Database.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("opening postgres settings store: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := settings.DialRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis settings store: %w", err)
		}
		return s, nil
	default:
		return settings.NewFileStore(cfg.Settings.Path), nil
	}
}

// remoteClient returns a settings API client when --server is set.
func remoteClient() (*apiclient.Client, bool) {
	server := viper.GetString("server")
	if server == "" {
		return nil, false
	}
	return apiclient.New(server), true
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
