package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifySignals raises lifecycle events from OS signals until ctx is done:
// SIGHUP (the controlling terminal went away) counts as closing the window,
// SIGINT and SIGTERM as an exit request. The returned func stops delivery.
func NotifySignals(ctx context.Context, b *Bridge) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if !b.Raise(eventForSignal(sig)) {
					return
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func eventForSignal(sig os.Signal) Event {
	if sig == syscall.SIGHUP {
		return WindowCloseRequested
	}
	return ExitRequested
}
