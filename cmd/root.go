// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of the Hyperbase admin client.
// Every command runs against one Hyperbase server through internal/hyperbase;
// the session token is kept in the OS keychain and restored before each command.
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/auth"
	"hyperbase/cli/internal/config"
	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/httperrors"
	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/logging"
	"hyperbase/cli/internal/output"
	"hyperbase/cli/internal/session"
)

// annotationNoSession marks commands that must not restore the stored session.
const annotationNoSession = "hyperbase/no-session"

var (
	flagBaseURL string
	flagWSURL   string
	flagOutput  string
	flagVerbose bool

	settings  config.Config
	logger    *slog.Logger
	store     *auth.Store
	client    *hyperbase.Client
	outFormat output.Format
)

// errNotLoggedIn is returned by commands that need an administrator session.
var errNotLoggedIn = herrors.Wrap(herrors.KindValidation, "you're not logged in; run 'hyperbase login'", herrors.ErrNotAuthenticated)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hyperbase",
	Short: "Hyperbase admin client",
	Long: `hyperbase manages a Hyperbase server from the command line: projects, collections
and their records, buckets and files, access tokens with their rules, and project logs.

Sign in once with 'hyperbase login'; the session token is kept in the OS keychain
and restored before every command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI application. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return
	}
	if herrors.IsAborted(err) {
		os.Exit(130)
	}
	if herrors.KindOf(err) == herrors.KindUnknown {
		// Usage and local failures carry their own message.
		pterm.Error.Println(err.Error())
	} else {
		httperrors.Notify(err, "running "+cmd.CommandPath())
	}
	os.Exit(1)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "server url for this invocation (default from config)")
	pf.StringVar(&flagWSURL, "ws-url", "", "websocket url for this invocation (default derived from --base-url)")
	pf.StringVarP(&flagOutput, "output", "o", "", "output format: table, json or yaml")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// setup loads the configuration, builds the client and restores the session.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	settings, err = config.Load()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	if flagVerbose || os.Getenv("HYPERBASE_VERBOSE") == "1" {
		level = slog.LevelDebug
		pterm.EnableDebugMessages()
	}
	logger = logging.NewLogger(level, os.Stderr)
	slog.SetDefault(logger)

	format := settings.Output
	if flagOutput != "" {
		format = flagOutput
	}
	if outFormat, err = output.ParseFormat(format); err != nil {
		return err
	}

	store, err = auth.Open()
	if err != nil {
		logger.Warn("secure storage unavailable; the session will not be kept", "error", err)
		store = auth.NewStore(session.NewMemoryStorage(nil), auth.FileSettings{})
	}
	if flagBaseURL != "" {
		store.Pin(session.KeyBaseURL, strings.TrimRight(flagBaseURL, "/"))
		ws := flagWSURL
		if ws == "" {
			ws = hyperbase.WSURL(strings.TrimRight(flagBaseURL, "/"))
		}
		store.Pin(session.KeyBaseWSURL, ws)
	} else if flagWSURL != "" {
		store.Pin(session.KeyBaseWSURL, flagWSURL)
	}

	baseURL, err := store.Get(session.KeyBaseURL)
	if err != nil {
		return err
	}
	wsURL, err := store.Get(session.KeyBaseWSURL)
	if err != nil {
		return err
	}
	client, err = hyperbase.New(hyperbase.Config{
		BaseURL:   baseURL,
		BaseWSURL: wsURL,
		Storage:   store,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if skipsSession(cmd) {
		return nil
	}
	err = client.Bootstrap(cmd.Context())
	if errors.Is(err, hyperbase.ErrNotAdmin) {
		return errNotLoggedIn
	}
	return err
}

func skipsSession(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoSession] == "true" {
			return true
		}
	}
	return false
}

func noSession() map[string]string {
	return map[string]string{annotationNoSession: "true"}
}

// requireAdmin fails unless Bootstrap restored an administrator session.
func requireAdmin() error {
	if !client.Session().Snapshot().Authenticated {
		return errNotLoggedIn
	}
	return nil
}

// render prints value in the selected output format.
func render(value any, table func() output.Table) error {
	return output.Render(os.Stdout, outFormat, value, table)
}
