// Package cli is the tinynotes command tree. With no subcommand it starts
// the terminal UI.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sadopc/tinynotes/internal/config"
	"github.com/sadopc/tinynotes/internal/planner"
	"github.com/sadopc/tinynotes/internal/store"
	"github.com/sadopc/tinynotes/internal/syncstatus"
)

// Execute runs the root command against os.Args.
func Execute(version string) error {
	root := newRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

type rootOptions struct {
	configPath string
	dbDriver   string
	dbDSN      string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	return buildRoot(&rootOptions{now: time.Now})
}

func buildRoot(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "tinynotes",
		Short: "tinynotes - a week planner with an inbox and a someday list",
		Long: `tinynotes keeps tasks in three areas: an inbox, the week, and someday.

Run without arguments to open the week view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd.Root() == cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(contextOf(cmd), o)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&o.dbDriver, "driver", "", "database driver: sqlite or postgres")
	flags.StringVar(&o.dbDSN, "db", "", "database path or postgres DSN")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAddCmd(o),
		newListCmd(o),
		newDoneCmd(o),
		newMoveCmd(o),
		newReorderCmd(o),
		newRemoveCmd(o),
		newFinishDayCmd(o),
		newExportCmd(o),
		newSettingsCmd(o),
	)
	return root
}

// setup loads configuration and builds the logger. The TUI owns the
// terminal, so it logs to a file; subcommands log to stderr.
func (o *rootOptions) setup(interactive bool) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbDriver != "" {
		cfg.Database.Driver = o.dbDriver
	}
	if o.dbDSN != "" {
		cfg.Database.DSN = o.dbDSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	output := ""
	if interactive {
		output = cfg.Log.File
	}
	o.logger, err = newLogger(cfg.Log.Level, o.verbose, output)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newLogger(level string, verbose bool, outputPath string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if outputPath != "" {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		zc.OutputPaths = []string{outputPath}
		zc.ErrorOutputPaths = []string{outputPath}
	}
	return zc.Build()
}

// session is an open store with a planner on top of it.
type session struct {
	store   *store.Store
	planner *planner.Planner
}

// open connects to the database and builds a planner on it. onChange, when
// set, fires on every collection change and sync status transition.
func (o *rootOptions) open(onChange func()) (*session, error) {
	s, err := o.openStore()
	if err != nil {
		return nil, err
	}

	trackerOpts := []syncstatus.Option{syncstatus.WithLinger(o.cfg.Sync.SyncedLinger, o.cfg.Sync.ErrorLinger)}
	plannerOpts := []planner.Option{
		planner.WithLogger(o.logger.Named("planner")),
		planner.WithClock(o.now),
	}
	if onChange != nil {
		trackerOpts = append(trackerOpts, syncstatus.WithOnChange(func(syncstatus.Status) { onChange() }))
		plannerOpts = append(plannerOpts, planner.WithOnChange(onChange))
	}
	plannerOpts = append(plannerOpts, planner.WithTracker(syncstatus.New(trackerOpts...)))
	return &session{store: s, planner: planner.New(s, plannerOpts...)}, nil
}

// openLoaded opens a session and runs the initial load.
func (o *rootOptions) openLoaded(ctx context.Context) (*session, error) {
	sess, err := o.open(nil)
	if err != nil {
		return nil, err
	}
	if err := sess.planner.LoadInitial(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func (s *session) Close() {
	s.planner.Close()
	s.store.Close()
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
