package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/epalmerini/rmqtools/internal/config"
)

func pickerConfig(names ...string) *config.FileConfig {
	fc := &config.FileConfig{
		Server:   "http://global:3000",
		Profiles: map[string]config.Profile{},
	}
	for _, n := range names {
		fc.Profiles[n] = config.Profile{Server: "http://" + n + ":3000"}
	}
	return fc
}

func TestProfilePicker_SelectEmitsMsg(t *testing.T) {
	m := newProfilePickerModel(pickerConfig("staging", "local"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command from enter key")
	}
	sel, ok := cmd().(profileSelectedMsg)
	if !ok {
		t.Fatalf("expected profileSelectedMsg, got %T", cmd())
	}
	// First alphabetically is "local"
	if sel.name != "local" {
		t.Errorf("selected = %q, want %q", sel.name, "local")
	}
}

func TestProfilePicker_Navigation(t *testing.T) {
	m := newProfilePickerModel(pickerConfig("aaa", "bbb", "ccc"))

	press := func(r rune) {
		result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = result.(profilePickerModel)
	}

	press('j')
	press('j')
	if m.selectedIdx != 2 {
		t.Errorf("after j j: selectedIdx = %d, want 2", m.selectedIdx)
	}
	press('j')
	if m.selectedIdx != 2 {
		t.Errorf("after j past end: selectedIdx = %d, want 2", m.selectedIdx)
	}
	press('k')
	if m.selectedIdx != 1 {
		t.Errorf("after k: selectedIdx = %d, want 1", m.selectedIdx)
	}
}

func TestProfilePicker_ViewFallsBackToGlobalServer(t *testing.T) {
	fc := pickerConfig("dev")
	fc.Profiles["bare"] = config.Profile{AMQPURL: "amqp://localhost:5672/"}
	m := newProfilePickerModel(fc)

	view := m.View()
	for _, want := range []string{"http://dev:3000", "http://global:3000", "+amqp"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProfilePicker_QuitEmitsQuit(t *testing.T) {
	m := newProfilePickerModel(pickerConfig("local"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg, got %T", cmd())
	}
}
