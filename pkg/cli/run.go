package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// runServer listens on addr and serves h until ctx is done.
func runServer(ctx context.Context, addr string, h http.Handler, log *slog.Logger, onShutdown func(context.Context) error) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return serveListener(ctx, ln, h, log, onShutdown)
}

// serveListener serves h on ln until ctx is done, then shuts the server
// down gracefully and calls onShutdown. onShutdown also runs when the
// server fails on its own.
func serveListener(ctx context.Context, ln net.Listener, h http.Handler, log *slog.Logger, onShutdown func(context.Context) error) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info("listening", "addr", ln.Addr().String())

	var errs []error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("server error: %w", err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}
	if onShutdown != nil {
		if err := onShutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
