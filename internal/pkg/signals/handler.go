// Package signals ties process shutdown signals to context cancellation.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/endorses/ackit/internal/pkg/logger"
)

// SetupHandler cancels ctx via cancel on SIGINT, SIGTERM or SIGHUP.
// The returned cleanup function stops signal delivery and must be called
// once the handler is no longer needed.
func SetupHandler(ctx context.Context, cancel context.CancelFunc) (cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			logger.InfoContext(ctx, "Received signal, initiating shutdown", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return func() {
		signal.Stop(sigCh)
		cancel()
		<-done
	}
}

// Context returns a child of parent that is cancelled on a shutdown signal.
func Context(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	return ctx, SetupHandler(ctx, cancel)
}
