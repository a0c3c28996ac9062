// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command cbs evaluates CBS templates from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nickandperla.net/cbs/internal/config"
	"nickandperla.net/cbs/pkg/cbs"
)

// app holds flag values and what PersistentPreRunE builds from them.
type app struct {
	contextPath string
	dbPath      string
	sessionID   string
	verbose     bool
	noPrelude   bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cbs",
		Short: "Evaluate CBS (Chat Block Script) templates",
		Long: `cbs evaluates {{command::arg}} templates with {{#block}} control flow.

The evaluation context (user, character, chat history, variables and flags)
comes from a YAML file given with --context. With --db, chat and global
variables persist in SQLite between runs under the --session ID.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.contextPath, "context", "c", "", "YAML context file")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database for session variables (or set CBS_DB)")
	flags.StringVarP(&a.sessionID, "session", "s", "", "Session ID to load and save (or set CBS_SESSION)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.noPrelude, "no-prelude", false, "Do not predefine prelude functions")

	root.AddCommand(
		newEvalCmd(a),
		newRunCmd(a),
		newCheckCmd(a),
		newVarsCmd(a),
		newReplCmd(a),
		newSessionCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the config, lets flags override it and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.contextPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Session.DB = a.dbPath
	}
	if cmd.Flags().Changed("session") {
		cfg.Session.ID = a.sessionID
	}
	a.cfg = cfg

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = cfg.Logging.Format
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// runtime builds a Runtime from the loaded config.
func (a *app) runtime() (*cbs.Runtime, error) {
	opts := []cbs.Option{
		cbs.WithLogger(a.logger),
		cbs.WithWorkers(a.cfg.Workers),
	}
	if a.cfg.Session.DB != "" {
		opts = append(opts, cbs.WithSQLiteStore(a.cfg.Session.DB))
	} else {
		opts = append(opts, cbs.WithMemoryStore())
	}
	switch {
	case a.noPrelude:
		opts = append(opts, cbs.WithNoPrelude())
	case a.cfg.Prelude != "":
		src, err := os.ReadFile(a.cfg.Prelude)
		if err != nil {
			return nil, fmt.Errorf("read prelude: %w", err)
		}
		opts = append(opts, cbs.WithPrelude(string(src)))
	}
	return cbs.New(opts...)
}

// context returns a fresh evaluation context, loaded from the session when
// one is configured.
func (a *app) context(rt *cbs.Runtime) (*cbs.Context, error) {
	ctx := a.cfg.Context()
	if a.cfg.Session.ID == "" {
		return ctx, nil
	}
	if err := rt.LoadSession(a.cfg.Session.ID, ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// save persists a result when a session is configured.
func (a *app) save(rt *cbs.Runtime, res *cbs.Result) error {
	if a.cfg.Session.ID == "" {
		return nil
	}
	version, err := rt.SaveSession(a.cfg.Session.ID, res)
	if err != nil {
		return err
	}
	a.logger.Info("session saved",
		zap.String("session", a.cfg.Session.ID),
		zap.Int("version", version),
	)
	return nil
}
