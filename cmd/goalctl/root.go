package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"savings/internal/backend"
	"savings/internal/cli"
	"savings/internal/goals"
	"savings/internal/identity"
	"savings/internal/log"
)

type options struct {
	user    string
	backend string
	dbPath  string
	json    bool
	verbose bool
}

// openService builds the goal engine for one command run. Tests replace it.
var openService = func(ctx context.Context, opts *options, logOut io.Writer) (*goals.Service, func() error, error) {
	cfg, err := cli.LoadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	if opts.backend != "" {
		cfg.DataBackend = opts.backend
	}
	if opts.dbPath != "" {
		cfg.SQLiteDBPath = opts.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(logOut, level, log.ComponentCLI)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, err
	}
	svc := goals.NewService(res.Records, identity.Static(opts.user), res.Notifier, cfg.CacheOptions())
	cleanup := func() error {
		err := svc.Shutdown(ctx)
		if cerr := res.Cleanup(); cerr != nil {
			return cerr
		}
		return err
	}
	return svc, cleanup, nil
}

func newRootCmd() *cobra.Command {
	cli.LoadEnvFile()
	opts := &options{}

	root := &cobra.Command{
		Use:          "goalctl",
		Short:        "Manage savings goals",
		Long:         "Create, edit and fund savings goals stored in the configured backend.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", os.Getenv("SAVINGS_USER"), "Identity to act as (env SAVINGS_USER)")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "Override DATA_BACKEND (memory, sqlite, postgres)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Override SQLITE_DB_PATH")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newCreateCmd(opts),
		newEditCmd(opts),
		newAddCmd(opts),
		newDeleteCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// withService runs fn against a freshly opened engine.
func withService(cmd *cobra.Command, opts *options, fn func(ctx context.Context, svc *goals.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := openService(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, svc)
}
