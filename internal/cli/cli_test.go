// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/storage"
)

func TestCommandTree(t *testing.T) {
	want := []string{
		"ask", "chat", "doctor", "export",
		"login", "logout", "sessions", "version",
	}
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, w := range want {
		assert.True(t, names[w], "missing command %q", w)
	}
}

func TestSessionsSubcommands(t *testing.T) {
	want := []string{"search", "show", "delete", "clear"}
	names := make(map[string]bool)
	for _, c := range sessionsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, w := range want {
		assert.True(t, names[w], "missing subcommand %q", w)
	}
}

func TestResumeSession(t *testing.T) {
	store, err := storage.NewSessionStore(t.TempDir())
	require.NoError(t, err)

	fresh, err := resumeSession(store, "")
	require.NoError(t, err)
	assert.Empty(t, fresh.Messages)

	sess := model.NewSession()
	sess.AddUserMessage("How are my savings goals tracking?")
	id, err := store.Save(sess)
	require.NoError(t, err)

	got, err := resumeSession(store, "last")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	got, err = resumeSession(store, id[:10])
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = resumeSession(store, "sess_doesnotexist")
	assert.Error(t, err)
}

func TestReadContextFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly spending"), 0644))

	out, err := readContextFile(path)
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "quarterly spending")

	_, err = readContextFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "not found")

	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, bytes.Repeat([]byte("x"), maxContextFileSize+1), 0644))
	_, err = readContextFile(big)
	assert.ErrorContains(t, err, "too large")
}

func TestNewAgentClient(t *testing.T) {
	c := config.Default()
	c.Agent.BaseURL = "http://localhost:9999/"
	client := newAgentClient(c)
	assert.True(t, client.IsConfigured())
	assert.Equal(t, "http://localhost:9999", client.BaseURL())

	c.Agent.BaseURL = ""
	assert.False(t, newAgentClient(c).IsConfigured())
}

func TestDoctorChecks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	old := cfg
	cfg = config.Default()
	cfg.Auth.Required = false
	t.Cleanup(func() { cfg = old })

	res := checkStateDir()
	assert.False(t, res.failed, res.detail)

	res = checkConfig()
	assert.False(t, res.failed, res.detail)
	assert.True(t, res.warn, "fresh HOME should have no config file")

	res = checkSessions()
	assert.False(t, res.failed, res.detail)
	assert.Contains(t, res.detail, "0 saved")

	res = checkAuth()
	assert.False(t, res.failed, res.detail)
	assert.Contains(t, res.detail, "not required")

	cfg.Agent.BaseURL = ""
	res = checkBackend(context.Background())
	assert.True(t, res.failed, "unconfigured backend should fail")
}

func TestCheckAuthNotLoggedIn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	old := cfg
	cfg = config.Default()
	t.Cleanup(func() { cfg = old })

	res := checkAuth()
	assert.False(t, res.failed, res.detail)
	assert.True(t, res.warn)
	assert.Contains(t, res.detail, "advisor login")
}
