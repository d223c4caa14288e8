// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/auth"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/logging"
	"github.com/jeranaias/advisor-tui/internal/prefs"
	"github.com/jeranaias/advisor-tui/internal/storage"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

// Version information (overridden at build time via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global flags.
var (
	flagBaseURL string
	flagTheme   string
	flagDebug   bool
)

// cfg is populated by the root PersistentPreRunE and shared by every
// command handler.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Terminal client for the advisor agent",
	Long: `advisor is a terminal client for the financial advisor agent.

Run without arguments to start the full-screen chat interface. Replies
that carry chart data are rendered as interactive chart and table
widgets inline in the transcript; clicking a bar or row selects it so
follow-up questions can reference the selection.

Subcommands cover non-TUI use: one-shot questions (ask), the demo
login flow, session listing and export, and health diagnostics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flagBaseURL != "" {
			c.Agent.BaseURL = flagBaseURL
		}
		if flagTheme != "" {
			c.UI.Theme = flagTheme
		}
		if flagDebug {
			c.Logging.Level = "debug"
		}
		config.SetGlobal(c)
		cfg = c

		logPath, err := c.LogPath()
		if err != nil {
			return fmt.Errorf("resolve log path: %w", err)
		}
		// The TUI owns the terminal, so diagnostics always go to a file.
		if err := logging.Init(logPath, c.Logging.Level); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runChat,
}

// chatCmd is the explicit spelling of the default behavior.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the chat TUI (default)",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "advisor agent URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "color theme: dark or light (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "debug-level file logging")

	rootCmd.Flags().StringVarP(&flagResume, "resume", "r", "", "resume a saved session by ID prefix (\"last\" for the most recent)")
	chatCmd.Flags().StringVarP(&flagResume, "resume", "r", "", "resume a saved session by ID prefix (\"last\" for the most recent)")

	rootCmd.AddCommand(chatCmd)
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, components.InlineError(err.Error()))
		logging.Sync()
		os.Exit(1)
	}
}

// =============================================================================
// SHARED CONSTRUCTION
// =============================================================================

// newAgentClient builds the backend client from the loaded config. The
// request timeout applies to short calls only; streaming runs are bounded
// by their context.
func newAgentClient(c *config.Config) *agent.Client {
	opts := []agent.Option{
		agent.WithMaxRetries(c.Agent.MaxRetries),
		agent.WithRateLimit(c.Agent.RequestsPerMinute),
	}
	if c.Agent.TimeoutSecs > 0 {
		opts = append(opts, agent.WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.Agent.TimeoutSecs) * time.Second,
		}))
	}
	return agent.NewClient(c.Agent.BaseURL, opts...)
}

// newAuthManager builds the token manager over the state-dir token file.
func newAuthManager(c *config.Config) (*auth.Manager, error) {
	path, err := config.AuthPath()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(path, time.Duration(c.Auth.TokenTTLHours)*time.Hour), nil
}

// newSessionStore opens the on-disk session store.
func newSessionStore(c *config.Config) (*storage.SessionStore, error) {
	dir, err := c.SessionsDir()
	if err != nil {
		return nil, err
	}
	return storage.NewSessionStore(dir)
}

// openPrefs opens the widget preference database.
func openPrefs(c *config.Config) (*prefs.Store, error) {
	path, err := c.PrefsPath()
	if err != nil {
		return nil, err
	}
	return prefs.Open(path)
}
