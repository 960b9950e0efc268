package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// AccountData holds the header summary of the signed-in account.
type AccountData struct {
	Instance string
	Name     string
	Number   string
	Phase    string
	Chats    int
	Statuses int
	Busy     bool
	Loading  bool
}

// AccountInfo displays account metadata in the header.
type AccountInfo struct {
	*tview.TextView
	theme *Theme
}

// NewAccountInfo creates a new account info panel.
func NewAccountInfo(theme *Theme) *AccountInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &AccountInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the account info.
func (ai *AccountInfo) Update(data *AccountData) {
	ai.Clear()
	if data == nil {
		return
	}

	fgColor := ColorName(ai.theme.FgColor)
	counterColor := ColorName(ai.theme.CounterColor)

	activity := "idle"
	switch {
	case data.Busy:
		activity = "working"
	case data.Loading:
		activity = "syncing"
	}

	text := fmt.Sprintf(
		"[%s::b]Instance:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Name:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Number:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Session:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]    [%s]%d[-]\n"+
			"[%s::b]Statuses:[-:-:-] [%s]%d[-]\n"+
			"[%s::b]Sync:[-:-:-]     [%s]%s[-]",
		fgColor, counterColor, data.Instance,
		fgColor, counterColor, tview.Escape(dash(data.Name)),
		fgColor, counterColor, dash(data.Number),
		fgColor, counterColor, data.Phase,
		fgColor, counterColor, data.Chats,
		fgColor, counterColor, data.Statuses,
		fgColor, counterColor, activity,
	)

	_, _ = fmt.Fprint(ai, text)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
