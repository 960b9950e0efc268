package ui

import (
	"strings"
	"testing"
)

func TestMenuLayoutColumns(t *testing.T) {
	m := NewMenu(DefaultTheme(), 2)
	lines := m.layout([]MenuHint{
		{Key: "a", Description: "Add chat"},
		{Key: "t", Description: "Statuses"},
		{Key: "?", Description: "Help"},
	})
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "Add chat") || !strings.Contains(lines[0], "Help") {
		t.Errorf("first row = %q, want first and third hint", lines[0])
	}
	if !strings.Contains(lines[1], "Statuses") || strings.Contains(lines[1], "Help") {
		t.Errorf("second row = %q", lines[1])
	}
	if strings.HasSuffix(lines[0], " ") {
		t.Errorf("trailing padding left in %q", lines[0])
	}
}

func TestMenuLayoutFewHints(t *testing.T) {
	m := NewMenu(DefaultTheme(), 6)
	if lines := m.layout([]MenuHint{{Key: "Esc", Description: "Back"}}); len(lines) != 1 {
		t.Errorf("got %d lines, want 1", len(lines))
	}
	if lines := m.layout(nil); len(lines) != 0 {
		t.Errorf("no hints should render no lines, got %q", lines)
	}
}
