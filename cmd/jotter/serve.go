package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/jotter/internal/llm"
	"github.com/dukerupert/jotter/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, backend, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	assistant, err := llm.NewClient(a.cfg.LLM.Client(), a.logger)
	if err != nil {
		return err
	}

	srv := server.New(db, backend, assistant, server.Config{
		StaticDir:      a.cfg.Server.StaticDir,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}, a.logger)

	httpServer := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// LLM calls may take up to their own timeout before the reply.
		WriteTimeout: a.cfg.LLM.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("jotter running", "addr", "http://localhost:"+a.cfg.Server.Port, "backend", backend, "llm", assistant.Configured())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
