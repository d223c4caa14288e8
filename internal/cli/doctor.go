// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

// healthProbeTimeout bounds the doctor's backend probe.
const healthProbeTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"diag"},
	Short:   "Check configuration, state storage, and backend connectivity",
	RunE:    runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// checkResult is one line of doctor output.
type checkResult struct {
	name   string
	failed bool
	warn   bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := []checkResult{
		checkConfig(),
		checkStateDir(),
		checkSessions(),
		checkPrefs(),
		checkAuth(),
		checkBackend(cmd.Context()),
	}

	failed := 0
	for _, c := range checks {
		line := fmt.Sprintf("%-16s %s", c.name, c.detail)
		switch {
		case c.failed:
			failed++
			fmt.Println(components.InlineError(line))
		case c.warn:
			fmt.Println(components.InlineWarning(line))
		default:
			fmt.Println(components.InlineSuccess(line))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkConfig() checkResult {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return checkResult{name: "config", failed: true, detail: err.Error()}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return checkResult{name: "config", warn: true,
			detail: "no config file, using defaults (" + path + ")"}
	}
	return checkResult{name: "config", detail: "loaded " + path}
}

func checkStateDir() checkResult {
	dir, err := config.StateDir()
	if err != nil {
		return checkResult{name: "state dir", failed: true, detail: err.Error()}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return checkResult{name: "state dir", failed: true, detail: err.Error()}
	}
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
		return checkResult{name: "state dir", failed: true,
			detail: dir + " not writable: " + err.Error()}
	}
	os.Remove(probe)
	return checkResult{name: "state dir", detail: dir + " writable"}
}

func checkSessions() checkResult {
	store, err := newSessionStore(cfg)
	if err != nil {
		return checkResult{name: "sessions", failed: true, detail: err.Error()}
	}
	n, err := store.Count()
	if err != nil {
		return checkResult{name: "sessions", failed: true, detail: err.Error()}
	}
	return checkResult{name: "sessions", detail: fmt.Sprintf("%d saved", n)}
}

func checkPrefs() checkResult {
	store, err := openPrefs(cfg)
	if err != nil {
		return checkResult{name: "preferences", warn: true,
			detail: "unavailable: " + err.Error()}
	}
	defer store.Close()
	n := store.Count()
	return checkResult{name: "preferences", detail: fmt.Sprintf("%d chart preference(s)", n)}
}

func checkAuth() checkResult {
	if !cfg.Auth.Required {
		return checkResult{name: "auth", detail: "not required"}
	}
	mgr, err := newAuthManager(cfg)
	if err != nil {
		return checkResult{name: "auth", failed: true, detail: err.Error()}
	}
	if mgr.IsAuthenticated() {
		return checkResult{name: "auth", detail: "logged in as " + mgr.Username()}
	}
	return checkResult{name: "auth", warn: true,
		detail: "not logged in (run: advisor login)"}
}

func checkBackend(ctx context.Context) checkResult {
	client := newAgentClient(cfg)
	if !client.IsConfigured() {
		return checkResult{name: "backend", failed: true,
			detail: "no agent URL configured (set agent.base_url)"}
	}

	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	status, err := client.Health(ctx)
	if err != nil {
		if errors.Is(err, agent.ErrNotConfigured) {
			return checkResult{name: "backend", failed: true, detail: err.Error()}
		}
		return checkResult{name: "backend", failed: true,
			detail: client.BaseURL() + " unreachable: " + err.Error()}
	}
	if !status.Healthy() {
		return checkResult{name: "backend", warn: true,
			detail: fmt.Sprintf("%s reports status %q", client.BaseURL(), status.Status)}
	}
	return checkResult{name: "backend",
		detail: fmt.Sprintf("%s ok (agent %s, %d tool(s))",
			client.BaseURL(), status.Agent, len(status.Tools))}
}
