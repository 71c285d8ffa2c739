package common

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func notifyInterrupt() chan os.Signal {
	interrupt := make(chan os.Signal, 2)
	signal.Notify(interrupt,
		os.Interrupt, os.Kill,
		syscall.SIGTERM, syscall.SIGQUIT,
	)
	return interrupt
}

// CancelOnInterrupt returns a context that is canceled by the first
// termination signal. A second signal exits the process.
func CancelOnInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	interrupt := notifyInterrupt()
	go func() {
		select {
		case sig := <-interrupt:
			slog.Warn("Received signal, stopping after the current unit", "signal", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(interrupt)
			return
		}
		sig := <-interrupt
		slog.Warn("Received signal", "signal", sig)
		log.Fatalln("Force exit")
	}()
	return ctx, cancel
}
