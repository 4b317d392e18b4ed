package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMonitorFiresOnDirectoryChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	changed := make(chan struct{}, 1)
	m, err := NewMonitor([]string{root}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewMonitor() error: %v", err)
	}
	defer m.Close()

	if err := os.Mkdir(filepath.Join(root, "10-new"), 0o755); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not report the new store directory")
	}
}

func TestMonitorRemovalFires(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	sub := filepath.Join(root, "10-doomed")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	m, err := NewMonitor([]string{root}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewMonitor() error: %v", err)
	}
	defer m.Close()

	if err := os.Remove(sub); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not report the removed store directory")
	}
}

func TestMonitorMissingRootIsNonFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	missing := filepath.Join(t.TempDir(), "nope")
	m, err := NewMonitor([]string{missing}, func() {}, discardLogger())
	if err != nil {
		t.Fatalf("NewMonitor() error: %v, a missing root should not be fatal", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestMonitorCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, err := NewMonitor([]string{t.TempDir()}, func() {}, discardLogger())
	if err != nil {
		t.Fatalf("NewMonitor() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}
