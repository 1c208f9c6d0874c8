// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	if err := AtomicWriteFile(path, data, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("test data"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("File was not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slot.json")

	for _, v := range []string{"one", "two", "three"} {
		if err := AtomicWriteFile(path, []byte(v), 0600); err != nil {
			t.Fatalf("AtomicWriteFile(%q) failed: %v", v, err)
		}
	}

	content, _ := os.ReadFile(path)
	if string(content) != "three" {
		t.Errorf("got %q, want %q", content, "three")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 0, ""},
		{"hello", 2, "he"},
		{"日本語テキスト", 5, "日本..."},
	}
	for _, tc := range tests {
		if got := TruncateRunes(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("plan.pdf", 20); got != "plan.pdf" {
		t.Errorf("short string changed: %q", got)
	}
	if got := TruncateWidth("quarterly-report.pdf", 10); got != "quarter..." {
		t.Errorf("TruncateWidth = %q, want %q", got, "quarter...")
	}
	// Each CJK rune is two cells wide
	if got := TruncateWidth("日本語日本語", 7); got != "日本..." {
		t.Errorf("TruncateWidth CJK = %q, want %q", got, "日本...")
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("a\r\nb\nc"); got != "a b c" {
		t.Errorf("SingleLine = %q", got)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := HumanBytes(in); got != want {
			t.Errorf("HumanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
