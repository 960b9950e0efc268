package views

import (
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// frame gives b the bordered panel look shared by every view.
func frame(b *tview.Box, theme *ui.Theme, title string) {
	b.SetBorder(true).
		SetBorderColor(theme.BorderColor).
		SetBackgroundColor(theme.BgColor).
		SetTitleColor(theme.TitleColor).
		SetTitle(title)
}

// now is swapped in tests.
var now = time.Now

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// formatTimestamp renders ms as a clock time when it falls today and as
// a short date otherwise.
func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	if sameDay(t, now()) {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

// dayLabel names the calendar day of ms relative to today.
func dayLabel(ms int64) string {
	t := time.UnixMilli(ms)
	today := now()
	switch {
	case sameDay(t, today):
		return "Today"
	case sameDay(t, today.AddDate(0, 0, -1)):
		return "Yesterday"
	case t.Year() == today.Year():
		return t.Format("Mon, Jan 2")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
