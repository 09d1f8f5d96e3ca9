package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/logger"
)

// Exit code used when a second interrupt forces the process down.
const forcedExitCode = 130

func notifyInterrupt(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
}

// watchSignals turns the first interrupt into a cancellation of h, which
// stops the job before its next file. A second interrupt exits at once.
// It returns when h finished or ctx is done.
func (a *App) watchSignals(ctx context.Context, h *job.Handle) {
	sigChan := make(chan os.Signal, 2)
	a.opts.Notify(sigChan)
	defer signal.Stop(sigChan)

	cancelled := false
	for {
		select {
		case <-h.Done():
			return
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			a.log.WithFields(logger.Fields{
				"signal": sig.String(),
				"job":    h.ID(),
			}).Debug("Received system signal")

			if cancelled {
				a.log.Warn("Received second interrupt, forcing exit")
				fmt.Fprintln(a.opts.Stderr, "Forced exit, the file being transferred may be incomplete")
				a.opts.Exit(forcedExitCode)
				return
			}

			cancelled = true
			if err := a.organizer.Cancel(h); err != nil {
				a.log.WithFields(logger.Fields{"error": err}).Debug("Nothing to cancel")
				continue
			}
			fmt.Fprintln(a.opts.Stderr, "Cancelling after the current file, press Ctrl+C again to force exit")
		}
	}
}
