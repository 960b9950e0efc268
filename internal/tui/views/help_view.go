package views

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	frame(tv.Box, theme, " Help ")
	tv.SetTextColor(theme.FgColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// FocusTarget implements Component.
func (hv *HelpView) FocusTarget() tview.Primitive { return hv }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%[1]s]:[-:-:-]    Command mode        [%[1]s]Esc[-:-:-]    Cancel / Go back
  [%[1]s]/[-:-:-]    Filter chats        [%[1]s]?[-:-:-]      Help
  [%[1]s]q[-:-:-]    Quit / Back         [%[1]s]Ctrl-C[-:-:-] Quit immediately

  [::b]Chat List[-:-:-]

  [%[1]s]Enter[-:-:-]  Open chat          [%[1]s]0[-:-:-]      Show all (clear filter)
  [%[1]s]1-9[-:-:-]    Jump to Nth chat   [%[1]s]a[-:-:-]      Add chat by number
  [%[1]s]t[-:-:-]      Statuses           [%[1]s]p[-:-:-]      Profile
  [%[1]s]j/Down[-:-:-] Move down          [%[1]s]k/Up[-:-:-]   Move up

  [::b]Message Thread[-:-:-]

  [%[1]s]i[-:-:-]    Focus composer      [%[1]s]d[-:-:-]      Show chat details
  [%[1]s]Esc[-:-:-]  Exit composer       [%[1]s]Enter[-:-:-]  Send message (in composer)

  [::b]Statuses[-:-:-]

  [%[1]s]r[-:-:-]    Drop expired statuses

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:add <number>[-:-:-]       Start a chat with a number
  [%[1]s]:chat <name>[-:-:-]        Open chat by partner name
  [%[1]s]:status <file>[-:-:-]      Post an image status
  [%[1]s]:statuses[-:-:-]           Show the status feed
  [%[1]s]:profile[-:-:-]            Show the profile
  [%[1]s]:name <name>[-:-:-]        Change the display name
  [%[1]s]:about <text>[-:-:-]       Change the profile status line
  [%[1]s]:avatar <file>[-:-:-]      Upload a profile picture
  [%[1]s]:refresh[-:-:-]            Drop expired statuses
  [%[1]s]:logout[-:-:-]             Sign out
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]        Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]        Quit application
`, kc)

	_, _ = fmt.Fprint(hv, help)
}
