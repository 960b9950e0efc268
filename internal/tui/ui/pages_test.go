package ui

import (
	"slices"
	"testing"

	"github.com/rivo/tview"
)

func testPages(names ...string) *Pages {
	p := NewPages()
	for _, n := range names {
		p.AddPage(n, tview.NewBox(), true, false)
	}
	return p
}

func TestPushPop(t *testing.T) {
	p := testPages("chats", "thread", "details")
	var changes [][]string
	p.SetOnChange(func(stack []string) { changes = append(changes, stack) })

	p.Reset("chats")
	p.Push("thread")
	p.Push("details")
	if got := p.Stack(); !slices.Equal(got, []string{"chats", "thread", "details"}) {
		t.Fatalf("Stack() = %v", got)
	}
	if name, _ := p.GetFrontPage(); name != "details" {
		t.Errorf("front page = %q, want details", name)
	}

	if top := p.Pop(); top != "details" {
		t.Errorf("Pop() = %q, want details", top)
	}
	if p.Current() != "thread" || !p.HasPage("details") {
		t.Errorf("Current() = %q after pop", p.Current())
	}
	if len(changes) != 4 {
		t.Errorf("onChange fired %d times, want 4", len(changes))
	}
}

func TestPushExistingPopsBack(t *testing.T) {
	p := testPages("chats", "thread", "details", "help")
	p.Reset("chats")
	p.Push("thread")
	p.Push("details")
	p.Push("help")

	p.Push("thread")
	if got := p.Stack(); !slices.Equal(got, []string{"chats", "thread"}) {
		t.Errorf("Stack() = %v, want [chats thread]", got)
	}
}

func TestPopKeepsRoot(t *testing.T) {
	p := testPages("chats")
	p.Reset("chats")

	if top := p.Pop(); top != "" {
		t.Errorf("Pop() on root = %q, want empty", top)
	}
	if p.Depth() != 1 || p.Current() != "chats" {
		t.Errorf("root page lost: %v", p.Stack())
	}
}
