// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max", "hello", 2, "he"},
		{"multibyte preserved", "日本語のテキスト", 5, "日本..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateRunes(tc.input, tc.maxRunes)
			if got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.input, tc.maxRunes, got, tc.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "abc", 5, "abc"},
		{"ascii truncation", "abcdefgh", 6, "abc..."},
		{"zero width", "abc", 0, ""},
		{"cjk counts double", "日本語", 4, "日本"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.input, tc.maxWidth)
			if got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.maxWidth, got, tc.want)
			}
			if w := StringWidth(got); w > tc.maxWidth {
				t.Errorf("TruncateWidth(%q, %d) produced width %d", tc.input, tc.maxWidth, w)
			}
		})
	}
}

func TestPadWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"pads short", "ab", 5, "ab   "},
		{"exact", "abcde", 5, "abcde"},
		{"truncates long", "abcdefgh", 5, "ab..."},
		{"cjk padded to column width", "日本", 6, "日本  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PadWidth(tc.input, tc.width)
			if got != tc.want {
				t.Errorf("PadWidth(%q, %d) = %q, want %q", tc.input, tc.width, got, tc.want)
			}
			if w := StringWidth(got); w != tc.width {
				t.Errorf("PadWidth(%q, %d) has width %d", tc.input, tc.width, w)
			}
		})
	}
}

func TestPadLeftWidth(t *testing.T) {
	if got := PadLeftWidth("42", 6); got != "    42" {
		t.Errorf("PadLeftWidth(\"42\", 6) = %q, want %q", got, "    42")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := AtomicWriteFile(path, []byte(`{"ok":true}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q, want %q", data, `{"ok":true}`)
	}

	// Overwrite must fully replace the previous content.
	if err := AtomicWriteFile(path, []byte("v2"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content after overwrite = %q, want %q", data, "v2")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if e.Name() != "state.json" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestAtomicWriteFileWithDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "private", "auth.json")

	if err := AtomicWriteFileWithDir(path, []byte("secret"), 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFileWithDir() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %o, want 0600", perm)
	}
}
