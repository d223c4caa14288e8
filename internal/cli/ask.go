// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

// maxContextFileSize bounds files included with --file (50KB).
const maxContextFileSize = 50 * 1024

var (
	flagInteractive bool
	flagContextFile string
	flagPlain       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the advisor a single question",
	Long: `Sends one question to the advisor agent and prints the reply.

The reply is rendered as markdown when stdout is a terminal; piped
output stays raw. Chart data arrives as fenced chart-json blocks in
both cases; the full TUI is needed to see them as widgets.

With -i, opens a plain-terminal conversation loop with input history
and line editing instead of the full-screen interface.`,
	Example: `  advisor ask "How did my portfolio do this quarter?"
  advisor ask -f statement.csv "Categorize these transactions"
  advisor ask -i`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "conversation loop with input history")
	askCmd.Flags().StringVarP(&flagContextFile, "file", "f", "", "include a file's content with the question")
	askCmd.Flags().BoolVar(&flagPlain, "plain", false, "disable markdown rendering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	client := newAgentClient(cfg)
	if !client.IsConfigured() {
		return errors.New("no agent backend configured (set agent.base_url or pass --base-url)")
	}

	if flagInteractive {
		return runREPL(cmd.Context(), client)
	}

	if len(args) == 0 {
		return errors.New("nothing to ask (pass a question, or -i for interactive mode)")
	}
	question := strings.Join(args, " ")

	if flagContextFile != "" {
		extra, err := readContextFile(flagContextFile)
		if err != nil {
			return err
		}
		question += extra
	}

	sess := model.NewSession()
	sess.AddUserMessage(question)

	reply, err := collect(cmd.Context(), client, sess)
	if err != nil {
		return err
	}
	printReply(reply)
	return nil
}

// collect runs the session history through the agent and returns the full
// reply text.
func collect(ctx context.Context, client *agent.Client, sess *model.Session) (string, error) {
	msgs := make([]agent.InputMessage, 0, len(sess.GetHistory()))
	for _, h := range sess.GetHistory() {
		if h.Role == model.RoleSystem || strings.TrimSpace(h.Content) == "" {
			continue
		}
		msgs = append(msgs, agent.InputMessage{
			ID:      h.ID,
			Role:    string(h.Role),
			Content: h.Content,
		})
	}
	return client.RunCollect(ctx, agent.RunInput{
		ThreadID: sess.ThreadID,
		RunID:    "run_" + uuid.NewString(),
		Messages: msgs,
	})
}

// printReply writes the reply to stdout, rendered as markdown when the
// output is a terminal so piped output stays machine-readable.
func printReply(reply string) {
	if flagPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(reply)
		return
	}
	fmt.Print(renderMarkdown(reply))
}

// renderMarkdown renders markdown for terminal display, falling back to
// the raw text when the renderer cannot be built.
func renderMarkdown(content string) string {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content + "\n"
	}
	out, err := r.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// readContextFile reads a file for inclusion in the prompt, rejecting
// anything over maxContextFileSize.
func readContextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > maxContextFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxContextFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return fmt.Sprintf("\n\n--- File: %s ---\n%s\n--- End file ---", path, content), nil
}

// =============================================================================
// INTERACTIVE REPL
// =============================================================================

// repl wraps liner with persistent input history.
type repl struct {
	line        *liner.State
	historyFile string
}

// newREPL creates a line editor with history loaded from the state dir.
func newREPL() *repl {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.StateDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &repl{
		line:        line,
		historyFile: filepath.Join(dir, "ask_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// read prompts for one line and records non-empty input in history.
func (r *repl) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// close persists history (0600: prompts may contain account details) and
// restores the terminal.
func (r *repl) close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// runREPL is the plain-terminal conversation loop. The whole history is
// resent each turn, same as the TUI, so the advisor keeps context.
func runREPL(ctx context.Context, client *agent.Client) error {
	r := newREPL()
	defer r.close()

	sess := model.NewSession()

	fmt.Println("Advisor interactive mode. Type 'exit' or press Ctrl-D to leave.")
	for {
		input, err := r.read("advisor> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		}

		sess.AddUserMessage(input)
		reply, err := collect(ctx, client, sess)
		if err != nil {
			fmt.Println(components.InlineError(err.Error()))
			continue
		}
		sess.AddAssistantMessage()
		sess.AppendToLast(reply)
		sess.FinalizeLast(nil)

		printReply(reply)
	}
}
