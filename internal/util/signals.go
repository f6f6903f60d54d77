package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context that is cancelled with ErrInterrupted
// on SIGINT or SIGTERM. In-flight work sees the cancellation and the run
// ends with a partial report. A second signal forces immediate exit.
func SetupSignalHandler(parent context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancelCause(parent)

	// Create channel to receive OS signals
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Warn("received shutdown signal, finishing with a partial report", "signal", sig.String())
			cancel(ErrInterrupted)
		case <-parent.Done():
			cancel(context.Cause(parent))
			return
		}

		// Second signal forces immediate exit
		sig := <-sigCh
		logger.Error("received second shutdown signal, forcing exit", "signal", sig.String())
		os.Exit(130)
	}()

	return ctx
}
