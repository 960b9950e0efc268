package views

import (
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

const (
	fieldEmail    = "Email"
	fieldPassword = "Password"
	fieldName     = "Name"
	fieldNumber   = "Number"
)

// AuthView is the sign-in / sign-up form.
type AuthView struct {
	*tview.Form
	theme    *ui.Theme
	signUp   bool
	busy     bool
	onSignIn func(email, password string)
	onSignUp func(req syncer.SignUpRequest)
}

// NewAuthView creates a new auth view in sign-in mode.
func NewAuthView(theme *ui.Theme) *AuthView {
	form := tview.NewForm()
	frame(form.Box, theme, "")
	form.SetFieldBackgroundColor(theme.TableHeaderBg)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	av := &AuthView{
		Form:  form,
		theme: theme,
	}
	av.build()
	return av
}

// Name implements Component.
func (av *AuthView) Name() string {
	if av.signUp {
		return "Sign up"
	}
	return "Sign in"
}

// FocusTarget implements Component.
func (av *AuthView) FocusTarget() tview.Primitive { return av }

// Hints implements Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSignIn sets the sign-in callback.
func (av *AuthView) SetOnSignIn(fn func(email, password string)) {
	av.onSignIn = fn
}

// SetOnSignUp sets the sign-up callback.
func (av *AuthView) SetOnSignUp(fn func(req syncer.SignUpRequest)) {
	av.onSignUp = fn
}

// SetBusy disables submitting while a request is in flight.
func (av *AuthView) SetBusy(busy bool) {
	if av.busy == busy {
		return
	}
	av.busy = busy
	if busy {
		av.SetTitle(" Please wait... ")
		return
	}
	av.setTitle()
}

// Reset clears the form and returns to sign-in mode.
func (av *AuthView) Reset() {
	av.signUp = false
	av.build()
}

func (av *AuthView) setTitle() {
	if av.signUp {
		av.SetTitle(" Create an account ")
	} else {
		av.SetTitle(" Sign in ")
	}
}

func (av *AuthView) text(label string) string {
	if field, ok := av.GetFormItemByLabel(label).(*tview.InputField); ok {
		return field.GetText()
	}
	return ""
}

func (av *AuthView) build() {
	email := av.text(fieldEmail)
	av.Clear(true)
	av.setTitle()

	av.AddInputField(fieldEmail, email, 40, nil, nil)
	av.AddPasswordField(fieldPassword, "", 40, '*', nil)
	if av.signUp {
		av.AddInputField(fieldName, "", 40, nil, nil)
		av.AddInputField(fieldNumber, "", 20, tview.InputFieldInteger, nil)
		av.AddButton("Sign up", av.submit)
		av.AddButton("Have an account?", av.toggle)
	} else {
		av.AddButton("Sign in", av.submit)
		av.AddButton("Create account", av.toggle)
	}
	av.SetFocus(0)
}

func (av *AuthView) toggle() {
	av.signUp = !av.signUp
	av.build()
}

func (av *AuthView) submit() {
	if av.busy {
		return
	}
	if av.signUp {
		if av.onSignUp != nil {
			av.onSignUp(syncer.SignUpRequest{
				Email:    av.text(fieldEmail),
				Password: av.text(fieldPassword),
				Name:     av.text(fieldName),
				Number:   av.text(fieldNumber),
			})
		}
		return
	}
	if av.onSignIn != nil {
		av.onSignIn(av.text(fieldEmail), av.text(fieldPassword))
	}
}
