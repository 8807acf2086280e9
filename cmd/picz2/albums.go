package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAlbumsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "albums",
		Short: "List the albums on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			albums, err := a.api.Albums(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, album := range albums {
				line := fmt.Sprintf("#%-5d %s", album.ID, album.Name)
				if album.FileCount != nil {
					line += fmt.Sprintf(" (%d files)", *album.FileCount)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newAlbumCmd(opts *rootOptions) *cobra.Command {
	album := &cobra.Command{
		Use:   "album",
		Short: "Manage the target album selection",
	}

	album.AddCommand(&cobra.Command{
		Use:   "set <album-id>",
		Short: "Select the album uploads go into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid album id %q", args[0])
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.api.SetTargetAlbum(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Target album set to #%d\n", id)
			return nil
		},
	})

	album.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the target album selection (pauses syncing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.api.ClearTargetAlbum(cmd.Context()); err != nil {
				return err
			}
			a.coord.ClearQueue()
			fmt.Fprintln(cmd.OutOrStdout(), "Target album cleared")
			return nil
		},
	})

	return album
}
