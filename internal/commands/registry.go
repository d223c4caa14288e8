// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
package commands

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/auth"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/storage"
)

// =============================================================================
// COMMAND TYPES
// =============================================================================

// Command defines a slash command.
type Command struct {
	// Name is the primary command name including the slash (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completions
	Description string

	// Usage shows the argument syntax (e.g., "/resume <session_id>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler executes the command
	Handler func(ctx *Context, args []string) tea.Cmd

	// Hidden commands don't appear in help or completions
	Hidden bool

	// Category groups commands in help output
	Category string
}

// ArgDef defines a command argument.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type hints for completion
	Type ArgType

	// Description for help text
	Description string

	// Values for enum-type arguments
	Values []string

	// Completer is a custom completion function
	Completer func() []string
}

// ArgType indicates the type of argument for completion purposes.
type ArgType int

const (
	// ArgTypeString is a free-form string argument.
	ArgTypeString ArgType = iota
	// ArgTypeSession completes against saved session IDs.
	ArgTypeSession
	// ArgTypeFile completes against filesystem paths.
	ArgTypeFile
	// ArgTypeEnum completes against a fixed value list.
	ArgTypeEnum
	// ArgTypeConfig completes against configuration keys.
	ArgTypeConfig
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]string
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// Get returns a command by name or alias, or nil.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.commands[canonical]
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name < cmds[j].Name
	})
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "Other"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// =============================================================================
// BUILTIN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Navigation commands
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show help and available commands",
		Usage:       "/help [command]",
		Args: []ArgDef{
			{Name: "command", Required: false, Type: ArgTypeString, Description: "Command to describe"},
		},
		Category: "Navigation",
		Handler:  HandleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit advisor",
		Category:    "Navigation",
		Handler:     HandleQuit,
	})

	// Session commands
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new session",
		Category:    "Session",
		Handler:     HandleNew,
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the current session",
		Category:    "Session",
		Handler:     HandleSave,
	})

	r.Register(&Command{
		Name:        "/sessions",
		Aliases:     []string{"/list"},
		Description: "List saved sessions",
		Usage:       "/sessions [query]",
		Args: []ArgDef{
			{Name: "query", Required: false, Type: ArgTypeString, Description: "Filter sessions by text"},
		},
		Category: "Session",
		Handler:  HandleSessions,
	})

	r.Register(&Command{
		Name:        "/resume",
		Aliases:     []string{"/load", "/l"},
		Description: "Resume a saved session",
		Usage:       "/resume <session_id>",
		Args: []ArgDef{
			{Name: "session_id", Required: true, Type: ArgTypeSession, Description: "ID (or unique prefix) of the session"},
		},
		Category: "Session",
		Handler:  HandleResume,
	})

	r.Register(&Command{
		Name:        "/delete",
		Description: "Delete a saved session",
		Usage:       "/delete <session_id>",
		Args: []ArgDef{
			{Name: "session_id", Required: true, Type: ArgTypeSession, Description: "ID (or unique prefix) of the session"},
		},
		Category: "Session",
		Handler:  HandleDelete,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the transcript and any mounted charts",
		Category:    "Session",
		Handler:     HandleClear,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export the session to a file",
		Usage:       "/export [format] [output_dir]",
		Args: []ArgDef{
			{Name: "format", Required: false, Type: ArgTypeEnum, Values: []string{"md", "json", "xlsx"}, Description: "Export format"},
			{Name: "output_dir", Required: false, Type: ArgTypeFile, Description: "Destination directory"},
		},
		Category: "Session",
		Handler:  HandleExport,
	})

	// Chart commands
	r.Register(&Command{
		Name:        "/charts",
		Description: "List charts mounted in this session",
		Category:    "Charts",
		Handler:     HandleCharts,
	})

	r.Register(&Command{
		Name:        "/selection",
		Description: "Show or clear the active chart selection",
		Usage:       "/selection [clear]",
		Args: []ArgDef{
			{Name: "action", Required: false, Type: ArgTypeEnum, Values: []string{"clear"}, Description: "Clear the selection"},
		},
		Category: "Charts",
		Handler:  HandleSelection,
	})

	// Settings commands
	r.Register(&Command{
		Name:        "/theme",
		Description: "Switch the color theme",
		Usage:       "/theme <dark|light|auto>",
		Args: []ArgDef{
			{Name: "theme", Required: true, Type: ArgTypeEnum, Values: []string{"dark", "light", "auto"}, Description: "Theme name"},
		},
		Category: "Settings",
		Handler:  HandleTheme,
	})

	r.Register(&Command{
		Name:        "/config",
		Description: "Show configuration values",
		Usage:       "/config [key]",
		Args: []ArgDef{
			{Name: "key", Required: false, Type: ArgTypeConfig, Description: "Config key (dot notation)"},
		},
		Category: "Settings",
		Handler:  HandleConfig,
	})

	r.Register(&Command{
		Name:        "/health",
		Aliases:     []string{"/status"},
		Description: "Check advisor backend health",
		Category:    "Settings",
		Handler:     HandleHealth,
	})

	r.Register(&Command{
		Name:        "/login",
		Description: "Log in again",
		Category:    "Settings",
		Handler:     HandleLogin,
	})

	r.Register(&Command{
		Name:        "/logout",
		Description: "Log out and return to the login screen",
		Category:    "Settings",
		Handler:     HandleLogout,
	})
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context provides access to application state for command handlers.
// It follows the dependency injection pattern, allowing handlers to reach
// services without direct coupling to the application structure.
//
// All fields are optional and may be nil - handlers check before use.
type Context struct {
	// Config provides access to application configuration
	Config *config.Config

	// Storage handles session persistence
	Storage *storage.SessionStore

	// Session is the live session being displayed
	Session *model.Session

	// Agent is the backend client (used by /health)
	Agent *agent.Client

	// Auth is the local login manager
	Auth *auth.Manager

	// Selection is the shared chart selection store
	Selection *selection.Store
}

// NewContext creates a command context with the given dependencies.
// All parameters can be nil.
func NewContext(cfg *config.Config, store *storage.SessionStore, sess *model.Session) *Context {
	return &Context{
		Config:  cfg,
		Storage: store,
		Session: sess,
	}
}

// WithAgent attaches the backend client.
func (c *Context) WithAgent(client *agent.Client) *Context {
	c.Agent = client
	return c
}

// WithAuth attaches the auth manager.
func (c *Context) WithAuth(mgr *auth.Manager) *Context {
	c.Auth = mgr
	return c
}

// WithSelection attaches the selection store.
func (c *Context) WithSelection(store *selection.Store) *Context {
	c.Selection = store
	return c
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value is the text to insert
	Value string

	// Display is the text shown in the popup
	Display string

	// Description provides extra context
	Description string

	// Score for ranking (higher = better)
	Score int

	// IsCurrent marks the currently active value
	IsCurrent bool
}

// FormatUsage builds a usage line from the command definition when Usage
// is not set explicitly.
func (c *Command) FormatUsage() string {
	if c.Usage != "" {
		return c.Usage
	}
	var sb strings.Builder
	sb.WriteString(c.Name)
	for _, arg := range c.Args {
		if arg.Required {
			sb.WriteString(" <" + arg.Name + ">")
		} else {
			sb.WriteString(" [" + arg.Name + "]")
		}
	}
	return sb.String()
}
