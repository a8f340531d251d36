package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDir_EnvSet(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-test-data")
	got, err := Dir("XDG_DATA_HOME", ".local/share")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/tmp/xdg-test-data", "rmqtools")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDir_EnvUnset(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	got, err := Dir("XDG_DATA_HOME", ".local/share")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "share", "rmqtools")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNamedDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	t.Setenv("XDG_STATE_HOME", "/tmp/state")

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", ConfigDir, "/tmp/cfg/rmqtools"},
		{"data", DataDir, "/tmp/data/rmqtools"},
		{"state", StateDir, "/tmp/state/rmqtools"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStateDir_Fallback(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	got, err := StateDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "state", "rmqtools")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
