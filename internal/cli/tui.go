// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/logging"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/storage"
	"github.com/jeranaias/advisor-tui/internal/ui/chat"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// flagResume selects a saved session to reopen (root and chat commands).
var flagResume string

// shutdownGrace bounds how long exit waits for widget teardown.
const shutdownGrace = 2 * time.Second

// runChat wires the full dependency set and runs the Bubble Tea program
// until the user quits.
func runChat(cmd *cobra.Command, args []string) error {
	log := logging.Named("cli")

	store, err := newSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	authMgr, err := newAuthManager(cfg)
	if err != nil {
		return fmt.Errorf("open auth state: %w", err)
	}

	prefStore, err := openPrefs(cfg)
	if err != nil {
		// Charts fall back to defaults without the preference DB.
		log.Warn("preference store unavailable", zap.Error(err))
		prefStore = nil
	}
	defer func() {
		if prefStore != nil {
			prefStore.Close()
		}
	}()

	sess, err := resumeSession(store, flagResume)
	if err != nil {
		return err
	}

	m := chat.New(chat.Options{
		Config:  cfg,
		Theme:   styles.NewTheme(cfg.UI.Theme),
		Session: sess,
		Agent:   newAgentClient(cfg),
		Store:   store,
		Auth:    authMgr,
		Prefs:   prefStore,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// The scanner mounts widgets on its own goroutine; route its wakeups
	// through the program so the splice happens on the UI loop.
	m.SetNotify(func() {
		p.Send(chat.WidgetsPendingMsg{})
	})

	// Config hot reload: edits to the config file land in the running UI.
	watcher, err := config.NewWatcher(func(fresh *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: fresh})
	})
	if err != nil {
		log.Warn("config watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run UI: %w", err)
	}

	// Widget teardown is asynchronous; give it a bounded window so chart
	// resources release before the process exits.
	select {
	case <-m.Scanner().Shutdown():
	case <-time.After(shutdownGrace):
		log.Warn("widget teardown timed out")
	}

	if fm, ok := final.(chat.Model); ok {
		saveOnExit(store, fm.Session(), log)
	}
	return nil
}

// resumeSession loads the session named by the --resume flag, or starts a
// fresh one when the flag is empty. "last" reopens the most recent session.
func resumeSession(store *storage.SessionStore, ref string) (*model.Session, error) {
	if ref == "" {
		return model.NewSession(), nil
	}
	if ref == "last" {
		sess, err := store.LoadLatest()
		if err != nil {
			return nil, fmt.Errorf("resume latest session: %w", err)
		}
		return sess, nil
	}
	id, err := store.ResolveID(ref)
	if err != nil {
		return nil, fmt.Errorf("resume session %q: %w", ref, err)
	}
	sess, err := store.Load(id)
	if err != nil {
		return nil, fmt.Errorf("resume session %q: %w", ref, err)
	}
	return sess, nil
}

// saveOnExit persists the final transcript when auto-save is on. A failed
// save only logs: the terminal is already restored and the user is leaving.
func saveOnExit(store *storage.SessionStore, sess *model.Session, log *zap.Logger) {
	if !cfg.Sessions.AutoSave || sess == nil || sess.IsEmpty() {
		return
	}
	if _, err := store.Save(sess); err != nil {
		log.Warn("save session on exit", zap.Error(err))
	}
}
