package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 shortcuts render in their own color
}

// Component is a page of the TUI.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
	// FocusTarget is the primitive that takes focus when the page shows.
	FocusTarget() tview.Primitive
}
