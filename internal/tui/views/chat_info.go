package views

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatInfo shows the participants of a chat as they were when it was
// created.
type ChatInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewChatInfo creates a new chat details view.
func NewChatInfo(theme *ui.Theme) *ChatInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	frame(tv.Box, theme, " Chat Details ")
	tv.SetTextColor(theme.FgColor)

	return &ChatInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ChatInfo) Name() string { return "Details" }

// FocusTarget implements Component.
func (ci *ChatInfo) FocusTarget() tview.Primitive { return ci }

// Hints implements Component.
func (ci *ChatInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders chat details from self's point of view.
func (ci *ChatInfo) Update(chat syncer.Chat, self string) {
	ci.Clear()

	fg := ui.ColorName(ci.theme.FgColor)
	ct := ui.ColorName(ci.theme.CounterColor)
	partner := chat.Partner(self)

	text := fmt.Sprintf(
		"\n [%s::b]Chat:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Name:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Number:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Picture:[-:-:-] [%s]%s[-]\n\n"+
			" [::d]Details are a snapshot taken when the chat was started.[-:-:-]",
		fg, ct, chat.ChatID,
		fg, ct, tview.Escape(sanitizeForTerminal(orDash(partner.Name))),
		fg, ct, orDash(partner.Number),
		fg, ct, orDash(partner.UserID),
		fg, ct, tview.Escape(orDash(partner.ImageURL)),
	)

	_, _ = fmt.Fprint(ci, text)
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(orDash(partner.Name))))
}
