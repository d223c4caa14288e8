// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/storage"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"  /help", true},
		{"help", false},
		{"", false},
		{"what is /help", false},
	}

	for _, tc := range tests {
		if got := IsCommand(tc.input); got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/resume sess_a1b2", "/resume"},
		{"/help", "/help"},
		{"not a command", ""},
		{"/export md .", "/export"},
	}

	for _, tc := range tests {
		if got := ExtractCommandName(tc.input); got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestGetPartialCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/res", "/res"},
		{"/resume ", ""},
		{"plain text", ""},
	}

	for _, tc := range tests {
		if got := GetPartialCommand(tc.input); got != tc.want {
			t.Errorf("GetPartialCommand(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestGetPartialArg(t *testing.T) {
	tests := []struct {
		input       string
		wantIndex   int
		wantPartial string
	}{
		{"/resume se", 0, "se"},
		{"/resume sess_a1 ", 1, ""},
		{"/export md ./out", 1, "./out"},
		{"/help", 0, ""},
	}

	for _, tc := range tests {
		index, partial := GetPartialArg(tc.input)
		if index != tc.wantIndex || partial != tc.wantPartial {
			t.Errorf("GetPartialArg(%q) = (%d, %q), want (%d, %q)",
				tc.input, index, partial, tc.wantIndex, tc.wantPartial)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`/sessions "tech stocks"`, []string{"/sessions", "tech stocks"}},
		{`/sessions 'single quoted'`, []string{"/sessions", "single quoted"}},
		{`/export md "my dir/with spaces"`, []string{"/export", "md", "my dir/with spaces"}},
		{`/help   extra   spaces`, []string{"/help", "extra", "spaces"}},
		{`/sessions "escaped \" quote"`, []string{"/sessions", `escaped " quote`}},
	}

	for _, tc := range tests {
		got := splitCommandLine(tc.input)
		if len(got) != len(tc.want) {
			t.Errorf("splitCommandLine(%q) = %v, want %v", tc.input, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("splitCommandLine(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParser_Parse(t *testing.T) {
	r := NewRegistry()
	p := NewParser(r)

	tests := []struct {
		input     string
		isCommand bool
		cmdName   string
		argsLen   int
	}{
		{"/help", true, "/help", 0},
		{"/resume sess_a1b2", true, "/resume", 1},
		{"show me AAPL revenue", false, "", 0},
		{"/nonexistent", true, "/nonexistent", 0},
		{`/sessions "tech stocks"`, true, "/sessions", 1},
	}

	for _, tc := range tests {
		result := p.Parse(tc.input)

		if result.IsCommand != tc.isCommand {
			t.Errorf("Parse(%q).IsCommand = %v, want %v", tc.input, result.IsCommand, tc.isCommand)
		}
		if result.CommandName != tc.cmdName {
			t.Errorf("Parse(%q).CommandName = %q, want %q", tc.input, result.CommandName, tc.cmdName)
		}
		if len(result.Args) != tc.argsLen {
			t.Errorf("Parse(%q) args length = %d, want %d", tc.input, len(result.Args), tc.argsLen)
		}
	}
}

func TestParser_Parse_CommandLookup(t *testing.T) {
	r := NewRegistry()
	p := NewParser(r)

	result := p.Parse("/help")
	if result.Command == nil {
		t.Error("Parse(/help).Command should not be nil")
	}

	// Alias lookup
	result = p.Parse("/l sess_x")
	if result.Command == nil || result.Command.Name != "/resume" {
		t.Error("Parse(/l).Command should resolve to /resume")
	}

	result = p.Parse("/nonexistent")
	if result.Command != nil {
		t.Error("Parse(/nonexistent).Command should be nil")
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	// Every command the chat surface depends on must be registered.
	required := []string{
		"/help", "/quit", "/new", "/save", "/sessions", "/resume", "/delete",
		"/clear", "/export", "/charts", "/selection", "/theme", "/config",
		"/health", "/login", "/logout",
	}

	for _, name := range required {
		if r.Get(name) == nil {
			t.Errorf("builtin %s not registered", name)
		}
	}
}

func TestRegistry_Aliases(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		alias string
		want  string
	}{
		{"/h", "/help"},
		{"/q", "/quit"},
		{"/list", "/sessions"},
		{"/load", "/resume"},
		{"/status", "/health"},
	}

	for _, tc := range tests {
		cmd := r.Get(tc.alias)
		if cmd == nil {
			t.Errorf("alias %s not found", tc.alias)
			continue
		}
		if cmd.Name != tc.want {
			t.Errorf("alias %s resolved to %s, want %s", tc.alias, cmd.Name, tc.want)
		}
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	r := NewRegistry()
	byCategory := r.ByCategory()

	for _, cat := range []string{"Navigation", "Session", "Charts", "Settings"} {
		if len(byCategory[cat]) == 0 {
			t.Errorf("category %s is empty", cat)
		}
	}

	// Charts category carries exactly the chart surface commands.
	var names []string
	for _, cmd := range byCategory["Charts"] {
		names = append(names, cmd.Name)
	}
	want := []string{"/charts", "/selection"}
	if len(names) != len(want) {
		t.Fatalf("Charts commands = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Charts commands = %v, want %v", names, want)
		}
	}
}

func TestCommand_FormatUsage(t *testing.T) {
	cmd := &Command{
		Name: "/demo",
		Args: []ArgDef{
			{Name: "first", Required: true},
			{Name: "second", Required: false},
		},
	}
	if got := cmd.FormatUsage(); got != "/demo <first> [second]" {
		t.Errorf("FormatUsage() = %q", got)
	}

	cmd.Usage = "/demo custom"
	if got := cmd.FormatUsage(); got != "/demo custom" {
		t.Errorf("FormatUsage() with explicit usage = %q", got)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateArgs(t *testing.T) {
	r := NewRegistry()

	t.Run("missing required", func(t *testing.T) {
		cmd := r.Get("/resume")
		err := ValidateArgs(cmd, nil)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Arg != "session_id" {
			t.Errorf("failing arg = %q", vErr.Arg)
		}
	})

	t.Run("invalid enum", func(t *testing.T) {
		cmd := r.Get("/theme")
		err := ValidateArgs(cmd, []string{"solarized"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if !strings.Contains(vErr.Error(), "dark") {
			t.Errorf("error should list valid values: %v", vErr)
		}
	})

	t.Run("enum case-insensitive", func(t *testing.T) {
		cmd := r.Get("/theme")
		if err := ValidateArgs(cmd, []string{"DARK"}); err != nil {
			t.Errorf("uppercase enum value rejected: %v", err)
		}
	})

	t.Run("valid args", func(t *testing.T) {
		cmd := r.Get("/export")
		if err := ValidateArgs(cmd, []string{"xlsx", "/tmp"}); err != nil {
			t.Errorf("ValidateArgs = %v", err)
		}
	})

	t.Run("nil command", func(t *testing.T) {
		if err := ValidateArgs(nil, []string{"x"}); err != nil {
			t.Errorf("ValidateArgs(nil) = %v", err)
		}
	})
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

// runCmd executes a tea.Cmd and returns its message.
func runCmd(t *testing.T, ctx *Context, name string, args []string) interface{} {
	t.Helper()
	r := NewRegistry()
	cmd := r.Get(name)
	if cmd == nil {
		t.Fatalf("command %s not registered", name)
	}
	teaCmd := cmd.Handler(ctx, args)
	if teaCmd == nil {
		return nil
	}
	return teaCmd()
}

func handlerContext(t *testing.T) *Context {
	t.Helper()
	store, err := storage.NewSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	sess := model.NewSession()
	sess.AddUserMessage("chart AAPL for me")
	return NewContext(nil, store, sess)
}

func TestHandleSave(t *testing.T) {
	ctx := handlerContext(t)

	msg := runCmd(t, ctx, "/save", nil)
	save, ok := msg.(SaveCompleteMsg)
	if !ok {
		t.Fatalf("got %T, want SaveCompleteMsg", msg)
	}
	if save.Error != nil {
		t.Fatalf("save error: %v", save.Error)
	}
	if save.ID != ctx.Session.ID {
		t.Errorf("saved ID = %q, want %q", save.ID, ctx.Session.ID)
	}

	// The saved file round-trips.
	loaded, err := ctx.Storage.Load(save.ID)
	if err != nil || loaded.MessageCount() != 1 {
		t.Errorf("loaded = %v, %v", loaded, err)
	}
}

func TestHandleSessionsAndResume(t *testing.T) {
	ctx := handlerContext(t)
	if _, err := ctx.Storage.Save(ctx.Session); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		msg := runCmd(t, ctx, "/sessions", nil)
		list, ok := msg.(SessionListMsg)
		if !ok {
			t.Fatalf("got %T, want SessionListMsg", msg)
		}
		if list.Error != nil || len(list.Sessions) != 1 {
			t.Errorf("list = %+v", list)
		}
	})

	t.Run("filtered list", func(t *testing.T) {
		msg := runCmd(t, ctx, "/sessions", []string{"no-such-text"})
		list := msg.(SessionListMsg)
		if len(list.Sessions) != 0 {
			t.Errorf("filtered list = %+v", list.Sessions)
		}
	})

	t.Run("resume by prefix", func(t *testing.T) {
		msg := runCmd(t, ctx, "/resume", []string{ctx.Session.ID[:9]})
		loaded, ok := msg.(SessionLoadedMsg)
		if !ok {
			t.Fatalf("got %T, want SessionLoadedMsg", msg)
		}
		if loaded.Error != nil || loaded.Session.ID != ctx.Session.ID {
			t.Errorf("loaded = %+v", loaded)
		}
	})

	t.Run("resume missing", func(t *testing.T) {
		msg := runCmd(t, ctx, "/resume", []string{"sess_none"})
		loaded := msg.(SessionLoadedMsg)
		if !errors.Is(loaded.Error, storage.ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", loaded.Error)
		}
	})

	t.Run("resume without args lists sessions", func(t *testing.T) {
		msg := runCmd(t, ctx, "/resume", nil)
		if _, ok := msg.(SessionListMsg); !ok {
			t.Errorf("got %T, want SessionListMsg", msg)
		}
	})
}

func TestHandleDelete(t *testing.T) {
	ctx := handlerContext(t)
	id, err := ctx.Storage.Save(ctx.Session)
	if err != nil {
		t.Fatalf("seed save: %v", err)
	}

	msg := runCmd(t, ctx, "/delete", []string{id})
	deleted, ok := msg.(SessionDeletedMsg)
	if !ok {
		t.Fatalf("got %T, want SessionDeletedMsg", msg)
	}
	if deleted.Error != nil || deleted.ID != id {
		t.Errorf("deleted = %+v", deleted)
	}
	if _, err := ctx.Storage.Load(id); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("session still present: %v", err)
	}
}

func TestHandleExport(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFormat string
		wantDir    string
		wantErr    bool
	}{
		{"default markdown", nil, "md", "", false},
		{"markdown alias", []string{"markdown"}, "md", "", false},
		{"xlsx with dir", []string{"xlsx", "/tmp/out"}, "xlsx", "/tmp/out", false},
		{"json", []string{"JSON"}, "json", "", false},
		{"unknown format", []string{"pdf"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := runCmd(t, nil, "/export", tt.args)
			if tt.wantErr {
				if _, ok := msg.(ErrorMsg); !ok {
					t.Fatalf("got %T, want ErrorMsg", msg)
				}
				return
			}
			exp, ok := msg.(ExportSessionMsg)
			if !ok {
				t.Fatalf("got %T, want ExportSessionMsg", msg)
			}
			if exp.Format != tt.wantFormat || exp.OutputDir != tt.wantDir {
				t.Errorf("export = %+v", exp)
			}
		})
	}
}

func TestHandleSelection(t *testing.T) {
	msg := runCmd(t, nil, "/selection", nil)
	if sel := msg.(SelectionActionMsg); sel.Clear {
		t.Error("bare /selection should not clear")
	}

	msg = runCmd(t, nil, "/selection", []string{"clear"})
	if sel := msg.(SelectionActionMsg); !sel.Clear {
		t.Error("/selection clear should clear")
	}
}

func TestHandleTheme(t *testing.T) {
	msg := runCmd(t, nil, "/theme", []string{"light"})
	theme, ok := msg.(ThemeChangedMsg)
	if !ok || theme.Theme != "light" {
		t.Errorf("got %T %+v", msg, msg)
	}

	msg = runCmd(t, nil, "/theme", nil)
	if _, ok := msg.(ErrorMsg); !ok {
		t.Errorf("missing arg should produce ErrorMsg, got %T", msg)
	}
}

func TestHandleHealthWithoutAgent(t *testing.T) {
	msg := runCmd(t, nil, "/health", nil)
	health, ok := msg.(HealthResultMsg)
	if !ok {
		t.Fatalf("got %T, want HealthResultMsg", msg)
	}
	if health.Error == nil {
		t.Error("expected not-configured error without an agent client")
	}
}

// =============================================================================
// HELP TESTS
// =============================================================================

func TestFormatHelp(t *testing.T) {
	r := NewRegistry()

	t.Run("full listing", func(t *testing.T) {
		out := FormatHelp(r, "")
		for _, want := range []string{"Navigation:", "Session:", "Charts:", "Settings:", "/resume", "/selection"} {
			if !strings.Contains(out, want) {
				t.Errorf("help missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("single command", func(t *testing.T) {
		out := FormatHelp(r, "export")
		if !strings.Contains(out, "/export [format] [output_dir]") {
			t.Errorf("command help missing usage:\n%s", out)
		}
		if !strings.Contains(out, "xlsx") {
			t.Errorf("command help missing enum values:\n%s", out)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		out := FormatHelp(r, "bogus")
		if !strings.Contains(out, "Unknown command") {
			t.Errorf("help for unknown command:\n%s", out)
		}
	})
}
