package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal exits the process with ExitIncomplete.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Default().Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			slog.Default().Warn("second signal received, exiting", "signal", sig.String())
			os.Exit(ExitIncomplete)
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}
