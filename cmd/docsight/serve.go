package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsight/internal/api"
	"github.com/dgallion1/docsight/internal/docstore"
	"github.com/dgallion1/docsight/internal/export"
	"github.com/dgallion1/docsight/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The server logs to stdout like any other service.
			a.log = newLogger(os.Stdout, a.cfg.LogLevel)
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store := docstore.New(a.cfg.DocumentTTL, a.log)
	store.Start(ctx, 5*time.Minute)

	gen := newGenerator(a.cfg)
	svc := a.newService(gen, m)
	srv := api.NewServer(store, svc, export.New(a.log, m), m, a.log, a.cfg)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      h2c.NewHandler(srv, &http2.Server{}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting docsight",
			"port", a.cfg.Port,
			"llm_provider", a.cfg.LLMProvider,
			"model", gen.Model(),
			"auth", a.cfg.APIKey != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		store.Stop()
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown.
	a.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	store.Stop()
	if c, ok := gen.(interface{ Close() }); ok {
		c.Close()
	}
	return err
}
