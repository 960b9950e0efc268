package views

import (
	"testing"
	"time"
)

func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestFormatTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	fixNow(t, at)

	tests := []struct {
		ms   int64
		want string
	}{
		{0, ""},
		{time.Date(2026, 3, 10, 9, 5, 0, 0, time.Local).UnixMilli(), "09:05"},
		{time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local).UnixMilli(), "03/09"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.ms); got != tt.want {
			t.Errorf("formatTimestamp(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestDayLabel(t *testing.T) {
	fixNow(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local))

	tests := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2026, 3, 10, 0, 1, 0, 0, time.Local), "Today"},
		{time.Date(2026, 3, 9, 22, 0, 0, 0, time.Local), "Yesterday"},
		{time.Date(2026, 2, 1, 12, 0, 0, 0, time.Local), "Sun, Feb 1"},
		{time.Date(2025, 12, 31, 12, 0, 0, 0, time.Local), "Dec 31, 2025"},
	}
	for _, tt := range tests {
		if got := dayLabel(tt.day.UnixMilli()); got != tt.want {
			t.Errorf("dayLabel(%v) = %q, want %q", tt.day, got, tt.want)
		}
	}
}
