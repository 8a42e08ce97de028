package notify

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/models"
)

func testEvent() *models.Event {
	return &models.Event{
		ID:       "e1",
		Category: "work",
		Title:    "standup",
	}
}

func TestShowReturnsErrorWhenCommandMissing(t *testing.T) {
	// An empty PATH means no notification command can be found on any
	// platform; Show must report that instead of panicking.
	t.Setenv("PATH", t.TempDir())

	n := NewDesktop(zerolog.Nop())
	if err := n.Show(testEvent()); err == nil {
		t.Error("Show() = nil, want error with no notification command available")
	}
}

func TestShowSpawnsUnixCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub executables are not portable to windows")
	}

	// Stub notify-send on PATH; Show must spawn it and report success.
	bin := t.TempDir()
	stub := filepath.Join(bin, "notify-send")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", bin)

	n := NewDesktop(zerolog.Nop())
	n.goos = "linux"

	if err := n.Show(testEvent()); err != nil {
		t.Errorf("Show() error = %v, want nil with stubbed notify-send", err)
	}
}
