package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/oglimmer/picz2/internal/api"
	"github.com/oglimmer/picz2/internal/config"
	"github.com/oglimmer/picz2/internal/credentials"
	"github.com/oglimmer/picz2/internal/export"
	"github.com/oglimmer/picz2/internal/library"
	"github.com/oglimmer/picz2/internal/logging"
	"github.com/oglimmer/picz2/internal/store"
	"github.com/oglimmer/picz2/internal/syncer"
)

// rootOptions holds the persistent flag values shared by every subcommand.
// Flags override the config file, which overrides compiled-in defaults.
type rootOptions struct {
	configPath  string
	serverURL   string
	libraryPath string
	dataDir     string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "picz2",
		Short:        "Background photo sync client",
		Long:         "picz2 keeps a local media library in sync with a photo server:\nit scans for recent photos and videos, uploads them into the selected\ntarget album and reconciles with what the server already holds.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to JSON config file")
	pf.StringVar(&opts.serverURL, "server", "", "photo server base URL")
	pf.StringVar(&opts.libraryPath, "library", "", "media library root directory")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory for local state")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(opts),
		newSyncCmd(opts),
		newStatusCmd(opts),
		newAlbumsCmd(opts),
		newAlbumCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newLogCmd(opts),
		newResetCmd(opts),
	)
	return root
}

// app bundles the fully wired engine for one command invocation. Everything
// is constructed here explicitly; nothing lives in package-level state.
type app struct {
	cfg   *config.Config
	log   logging.Logger
	creds credentials.Store
	api   *api.Client
	lib   *library.DirLibrary
	store *store.Store
	coord *syncer.Coordinator
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.serverURL != "" {
		cfg.ServerBaseURL = opts.serverURL
	}
	if opts.libraryPath != "" {
		cfg.LibraryPath = opts.libraryPath
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if cfg.LibraryPath == "" {
		return nil, fmt.Errorf("no library path configured (use --library or the config file)")
	}

	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).With().Timestamp().Logger()
	log := logging.NewZerologLogger(zl)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	creds := credentials.NewFileStore(filepath.Join(cfg.DataDir, "credentials.json"))

	client, err := api.NewClient(cfg.ServerBaseURL, creds, nil, log)
	if err != nil {
		return nil, err
	}

	lib := library.NewDirLibrary(cfg.LibraryPath, log)

	exporter, err := export.NewExporter(lib, filepath.Join(cfg.DataDir, "spool"))
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), filepath.Join(cfg.DataDir, "picz2.db"))
	if err != nil {
		return nil, err
	}

	coord := syncer.NewCoordinator(cfg, client, lib, st, exporter, nil, log)

	return &app{
		cfg:   cfg,
		log:   log,
		creds: creds,
		api:   client,
		lib:   lib,
		store: st,
		coord: coord,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
