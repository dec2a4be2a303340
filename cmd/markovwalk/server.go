package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// newAPIMux registers every API route on a fresh mux.
func newAPIMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	NewMarkovAPI(a.store, a.config.Markov, a.config.tokenizer(), a.logger).RegisterRoutes(mux)
	NewServerAPI(a.store, a.logger).RegisterRoutes(mux)
	return mux
}

// runServe hosts the API until SIGINT or SIGTERM, then shuts down gracefully.
func runServe(ctx context.Context, a *app, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiHttpServer := &http.Server{
		Addr:              a.config.Server.ApiAddr,
		Handler:           newAPIMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			a.logger.Error("Api server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("OS signal received, initiating shutdown.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiHttpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Api server shutdown failed", "error", err)
		return err
	}
	a.logger.Info("HTTP server stopped.")
	return nil
}
