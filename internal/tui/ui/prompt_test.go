package ui

import (
	"slices"
	"strconv"
	"testing"
)

func TestHistoryNavigation(t *testing.T) {
	var h History
	if _, ok := h.Prev(); ok {
		t.Fatal("empty history should have no previous entry")
	}

	h.Add("add 111")
	h.Add("statuses")
	h.Add("statuses")
	h.Add("q")

	var back []string
	for {
		entry, ok := h.Prev()
		if !ok {
			break
		}
		back = append(back, entry)
	}
	if want := []string{"q", "statuses", "add 111"}; !slices.Equal(back, want) {
		t.Errorf("walking back = %v, want %v", back, want)
	}

	if got := h.Next(); got != "statuses" {
		t.Errorf("Next() = %q, want statuses", got)
	}
	h.Next()
	if got := h.Next(); got != "" {
		t.Errorf("Next() past newest = %q, want empty", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	var h History
	for i := 0; i < historySize+10; i++ {
		h.Add("cmd " + strconv.Itoa(i))
	}
	if len(h.entries) != historySize {
		t.Errorf("len = %d, want %d", len(h.entries), historySize)
	}
}

func TestCompleteCommands(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.SetCommands([]string{"add", "avatar", "about", "statuses", "status"})
	p.Activate(PromptCommand)

	if got := p.complete("a"); !slices.Equal(got, []string{"add", "avatar", "about"}) {
		t.Errorf("complete(a) = %v", got)
	}
	if got := p.complete("status"); !slices.Equal(got, []string{"statuses"}) {
		t.Errorf("complete(status) = %v", got)
	}
	if got := p.complete("add 1"); got != nil {
		t.Errorf("arguments should not complete, got %v", got)
	}

	p.Activate(PromptFilter)
	if got := p.complete("a"); got != nil {
		t.Errorf("filter mode should not complete, got %v", got)
	}
}
