package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled by the first SIGINT or
// SIGTERM. A second signal exits the process immediately, for when a
// command is stuck in a call that ignores its context.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("interrupted, stopping", "signal", sig.String())
		cancel()
		<-sigs
		slog.Warn("interrupted twice, exiting")
		os.Exit(130)
	}()

	return ctx
}
