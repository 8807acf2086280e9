package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the sync diagnostics log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.SyncLog.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				outcome := "ok"
				if !e.Success {
					outcome = "failed"
				}
				fmt.Fprintf(out, "%s  %-10s %-6s %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Trigger, outcome, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Wipe all local sync state (ledger, journal, log, cached settings)",
		Long: `Wipe all local sync state. The server's copy of uploaded photos is
untouched; the next sync rebuilds local state and relies on checksum
reconciliation to avoid re-uploading.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coord.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local sync state cleared")
			return nil
		},
	}
}
