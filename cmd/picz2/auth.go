package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oglimmer/picz2/internal/credentials"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store server credentials after verifying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprint(out, "Username: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			username, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			username = strings.TrimSpace(username)

			fmt.Fprint(out, "Password: ")
			secret, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			creds := &credentials.Credentials{Username: username, Password: string(secret)}
			if err := a.creds.Save(ctx, creds); err != nil {
				return err
			}

			email, err := a.api.CheckAuth(ctx)
			if err != nil {
				_ = a.creds.Clear(ctx)
				return fmt.Errorf("login failed: %w", err)
			}

			if email != "" {
				fmt.Fprintf(out, "Logged in as %s\n", email)
			} else {
				fmt.Fprintf(out, "Logged in as %s\n", username)
			}
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget credentials and wipe local sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.coord.Reset(ctx); err != nil {
				return err
			}
			if err := a.creds.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
