package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

func TestTranscriptGroupsByDay(t *testing.T) {
	fixNow(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	mt := NewMessageThread(ui.DefaultTheme())

	at := func(day, hour int) int64 {
		return time.Date(2026, 3, day, hour, 30, 0, 0, time.Local).UnixMilli()
	}
	out := mt.transcript([]syncer.Message{
		{SentBy: "u2", Body: "hi [there]", Timestamp: at(9, 20)},
		{SentBy: "u1", Body: "hey", Timestamp: at(10, 8)},
		{SentBy: "u2", Body: "how are you?", Timestamp: at(10, 9)},
	}, "u1", "Bia")

	if n := strings.Count(out, "──"); n != 4 {
		t.Errorf("got %d separator marks, want two day headers:\n%s", n, out)
	}
	yesterday := strings.Index(out, "Yesterday")
	today := strings.Index(out, "Today")
	if yesterday < 0 || today < yesterday {
		t.Errorf("day headers out of order:\n%s", out)
	}
	if !strings.Contains(out, "You") || !strings.Contains(out, "Bia") {
		t.Errorf("sender names missing:\n%s", out)
	}
	if !strings.Contains(out, "hi [there[]") {
		t.Errorf("body not escaped:\n%s", out)
	}
	if !strings.Contains(out, "08:30") {
		t.Errorf("clock time missing:\n%s", out)
	}
}
