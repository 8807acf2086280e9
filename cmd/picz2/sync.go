package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one manual sync and wait for transfers to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.coord.Start(ctx); err != nil {
				return err
			}
			if err := a.coord.PerformManualSync(ctx); err != nil {
				return err
			}
			a.coord.Wait()

			m := a.coord.Metrics()
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d of %d in-scope assets (%d still queued)\n",
				m.Uploaded, m.InScope, m.Queued)
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured album and recent sync activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			s, err := a.coord.Settings(ctx)
			if err != nil {
				return err
			}
			if s.AlbumID != nil {
				fmt.Fprintf(out, "Target album:  %s (#%d)\n", s.AlbumName, *s.AlbumID)
			} else {
				fmt.Fprintln(out, "Target album:  none selected")
			}
			fmt.Fprintf(out, "Sync window:   last %d days\n", s.SyncLastDays)
			fmt.Fprintf(out, "Wifi only:     %v\n", s.WifiOnly)

			entries, err := a.store.SyncLog.Recent(ctx, 5)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No sync activity yet")
				return nil
			}
			fmt.Fprintln(out, "Recent activity:")
			for _, e := range entries {
				outcome := "ok"
				if !e.Success {
					outcome = "failed"
				}
				fmt.Fprintf(out, "  %s  %-10s %-6s %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Trigger, outcome, e.Message)
			}
			return nil
		},
	}
}
