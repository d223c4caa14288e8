// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/storage"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

var flagSearchContent bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved conversations",
	RunE:  runSessionsList,
}

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved conversations",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsSearch,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved conversation",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved conversations",
	RunE:  runSessionsClear,
}

func init() {
	sessionsSearchCmd.Flags().BoolVar(&flagSearchContent, "content", false, "search message text, not just titles")
	sessionsCmd.AddCommand(sessionsSearchCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	fmt.Print(storage.FormatSessionList(metas))
	return nil
}

func runSessionsSearch(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	var metas []model.SessionMeta
	if flagSearchContent {
		metas, err = store.SearchMessages(args[0])
	} else {
		metas, err = store.Search(args[0])
	}
	if err != nil {
		return fmt.Errorf("search sessions: %w", err)
	}
	fmt.Print(storage.FormatSessionList(metas))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	sess, err := loadByRef(store, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  (%s, %d messages)\n\n",
		sess.GetTitle(), sess.UpdatedAt.Format("2006-01-02 15:04"), len(sess.Messages))
	for _, msg := range sess.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		label := string(msg.Role)
		if cfg.UI.ShowTimestamps {
			label += " " + msg.Timestamp.Format("15:04:05")
		}
		fmt.Printf("[%s]\n%s\n\n", label, msg.Content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	id, err := store.ResolveID(args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Println(components.InlineSuccess("Deleted session " + id))
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	n, err := store.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println(components.InlineInfo("No sessions to delete."))
		return nil
	}

	answer, err := promptLine(fmt.Sprintf("Delete all %d sessions? [y/N] ", n))
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Println(components.InlineInfo("Aborted."))
		return nil
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	fmt.Println(components.InlineSuccess(fmt.Sprintf("Deleted %d sessions.", n)))
	return nil
}

// loadByRef resolves a (possibly partial) session ID and loads it.
func loadByRef(store *storage.SessionStore, ref string) (*model.Session, error) {
	id, err := store.ResolveID(ref)
	if err != nil {
		return nil, err
	}
	return store.Load(id)
}
