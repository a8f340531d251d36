package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(m promptModel, s string) promptModel {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestPrompt_SubmitEmitsMsg(t *testing.T) {
	m := newPromptModel(promptSend, "Send to", "queue name", "")
	m = typeInto(m, "orders.retry ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected command from enter")
	}
	msg, ok := cmd().(promptSubmittedMsg)
	if !ok {
		t.Fatalf("expected promptSubmittedMsg, got %T", cmd())
	}
	if msg.purpose != promptSend {
		t.Errorf("purpose = %d, want %d", msg.purpose, promptSend)
	}
	if msg.value != "orders.retry" {
		t.Errorf("value = %q, want trimmed %q", msg.value, "orders.retry")
	}
}

func TestPrompt_StartsWithValue(t *testing.T) {
	m := newPromptModel(promptFilter, "Filter", "", "err")
	m = typeInto(m, "or")
	if m.Value() != "error" {
		t.Errorf("Value() = %q, want %q", m.Value(), "error")
	}
}

func TestPrompt_EscCancels(t *testing.T) {
	m := newPromptModel(promptGroup, "Group by", "", "status")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected command from esc")
	}
	msg, ok := cmd().(promptCancelledMsg)
	if !ok {
		t.Fatalf("expected promptCancelledMsg, got %T", cmd())
	}
	if msg.purpose != promptGroup {
		t.Errorf("purpose = %d, want %d", msg.purpose, promptGroup)
	}
}
