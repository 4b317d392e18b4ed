package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFragment(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSourceStringList(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "50-default.conf", `[Configuration]
AdminIdentities=unix-group:wheel
`)

	src := NewSource(dir, discardLogger())
	got, err := src.StringList("Configuration", "AdminIdentities")
	if err != nil {
		t.Fatalf("StringList() error: %v", err)
	}
	if len(got) != 1 || got[0] != "unix-group:wheel" {
		t.Errorf("StringList() = %v, want [unix-group:wheel]", got)
	}
}

func TestSourceSemicolonListIsNotAComment(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "50-default.conf", `[Configuration]
AdminIdentities=unix-user:root;unix-netgroup:bar;unix-group:admin
`)

	src := NewSource(dir, discardLogger())
	got, err := src.StringList("Configuration", "AdminIdentities")
	if err != nil {
		t.Fatalf("StringList() error: %v", err)
	}
	want := []string{"unix-user:root", "unix-netgroup:bar", "unix-group:admin"}
	if len(got) != len(want) {
		t.Fatalf("StringList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StringList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSourceLaterFragmentWins(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "50-default.conf", `[Configuration]
AdminIdentities=unix-group:wheel
`)
	writeFragment(t, dir, "60-site.conf", `[Configuration]
AdminIdentities=unix-group:admin
`)

	src := NewSource(dir, discardLogger())
	got, err := src.StringList("Configuration", "AdminIdentities")
	if err != nil {
		t.Fatalf("StringList() error: %v", err)
	}
	if len(got) != 1 || got[0] != "unix-group:admin" {
		t.Errorf("StringList() = %v, want the value from the later fragment", got)
	}
}

func TestSourceIgnoresNonConfFiles(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "50-default.conf", `[Configuration]
AdminIdentities=unix-group:wheel
`)
	writeFragment(t, dir, "99-ignored.conf.bak", `[Configuration]
AdminIdentities=unix-group:nobody
`)

	src := NewSource(dir, discardLogger())
	got, err := src.StringList("Configuration", "AdminIdentities")
	if err != nil {
		t.Fatalf("StringList() error: %v", err)
	}
	if len(got) != 1 || got[0] != "unix-group:wheel" {
		t.Errorf("StringList() = %v, non-.conf files should be ignored", got)
	}
}

func TestSourceKeyNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "50-default.conf", `[Other]
Key=value
`)

	src := NewSource(dir, discardLogger())
	if _, err := src.StringList("Configuration", "AdminIdentities"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("StringList() error = %v, want ErrKeyNotFound", err)
	}
}

func TestSourceMissingDirectory(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "nope"), discardLogger())
	_, err := src.StringList("Configuration", "AdminIdentities")
	if err == nil {
		t.Fatal("StringList() should fail for a missing directory")
	}
	if errors.Is(err, ErrKeyNotFound) {
		t.Error("a missing directory is a read failure, not an absent key")
	}
}

func TestSourceSkipsMalformedFragment(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "10-broken.conf", "[unterminated\n")
	writeFragment(t, dir, "50-default.conf", `[Configuration]
AdminIdentities=unix-group:wheel
`)

	src := NewSource(dir, discardLogger())
	got, err := src.StringList("Configuration", "AdminIdentities")
	if err != nil {
		t.Fatalf("StringList() error: %v", err)
	}
	if len(got) != 1 || got[0] != "unix-group:wheel" {
		t.Errorf("StringList() = %v, malformed fragments should be skipped", got)
	}
}
