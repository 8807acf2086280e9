package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oglimmer/picz2/internal/common"
)

// watchDebounce coalesces bursts of filesystem events (a camera import
// writes many files in quick succession) into one incremental scan.
const watchDebounce = 2 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon",
		Long: `Run the sync engine in the foreground: replay unfinished transfers,
perform an initial sync, then watch the library for changes and trigger
a background sync on every interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.coord.Start(ctx); err != nil {
				// A missing album selection is not fatal for the daemon; the
				// next interval picks up whatever the user selects meanwhile.
				if !errors.Is(err, common.ErrNoTargetAlbum) {
					return err
				}
				a.log.Warn(ctx, "no target album selected, waiting for selection")
			}

			go func() {
				if werr := a.lib.Watch(ctx, watchDebounce, func() {
					a.coord.HandleLibraryChanged(ctx)
				}); werr != nil && !errors.Is(werr, context.Canceled) {
					a.log.Error(ctx, "library watch stopped", "error", werr)
				}
			}()

			ticker := time.NewTicker(a.cfg.SyncInterval)
			defer ticker.Stop()

			a.log.Info(ctx, "sync daemon running",
				"library", a.cfg.LibraryPath, "interval", a.cfg.SyncInterval)

			for {
				select {
				case <-ctx.Done():
					a.log.Info(context.Background(), "shutting down, waiting for transfers")
					a.coord.Wait()
					return nil
				case <-ticker.C:
					if err := a.coord.PerformBackgroundSync(ctx); err != nil {
						a.log.Warn(ctx, "background sync failed", "error", err)
					}
				}
			}
		},
	}
}
