package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/opay/internal/api"
	"github.com/donaldgifford/opay/internal/metrics"
	"github.com/donaldgifford/opay/internal/opay"
	"github.com/donaldgifford/opay/internal/settings"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the settings API server",
		Long: "Serves the settings API, health probes and Prometheus metrics.\n" +
			"Credentials in the opay config section seed an empty settings store.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	seeded, err := settings.Seed(ctx, store, cfg.OPay.Credentials())
	if err != nil {
		return err
	}
	if seeded {
		log.Info("seeded settings from config", "backend", cfg.Settings.Backend)
	}

	current, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if current.IsValid() {
		metrics.SettingsValid.Set(1)
	} else {
		metrics.SettingsValid.Set(0)
		log.Warn("OPay settings are incomplete; set them with PUT /api/v1/settings")
	}

	api.Version = Version
	e := api.NewServer(api.Options{
		Store:         store,
		Logger:        log,
		ClientOptions: []opay.Option{opay.WithHTTPClient(newHTTPClient(cfg))},
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "backend", cfg.Settings.Backend)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
