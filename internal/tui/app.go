package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/client"
	"github.com/matheus3301/chatsync/internal/tui/keys"
	"github.com/matheus3301/chatsync/internal/tui/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/matheus3301/chatsync/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageAuth     = "auth"
	pageChats    = "chats"
	pageThread   = "thread"
	pageDetails  = "details"
	pageStatuses = "statuses"
	pageProfile  = "profile"
	pageHelp     = "help"
)

const (
	promptHeight = 3
	headerHeight = 8

	// statusRefreshInterval is how often aged-out statuses are dropped.
	statusRefreshInterval = time.Minute
	flashTick             = time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	vm       *model.ViewModel
	logger   *zap.Logger
	instance string
	registry *keys.Registry
	theme    *ui.Theme

	root    *tview.Flex
	pages   *ui.Pages
	prompt  *ui.Prompt
	crumbs  *ui.Crumbs
	flash   *ui.FlashBar
	menu    *ui.Menu
	account *ui.AccountInfo

	authView    *views.AuthView
	chatList    *views.ChatList
	thread      *views.MessageThread
	chatInfo    *views.ChatInfo
	statusView  *views.StatusView
	profileView *views.ProfileView
	helpView    *views.HelpView

	components map[string]ui.Component
	lastFocus  tview.Primitive

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, instanceName string, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		vm:          model.NewViewModel(c.Core, c.Bus),
		logger:      logger,
		instance:    instanceName,
		registry:    keys.NewRegistry(),
		theme:       theme,
		pages:       ui.NewPages(),
		prompt:      ui.NewPrompt(theme),
		crumbs:      ui.NewCrumbs(theme, instanceName),
		flash:       ui.NewFlashBar(theme),
		menu:        ui.NewMenu(theme, headerHeight),
		account:     ui.NewAccountInfo(theme),
		authView:    views.NewAuthView(theme),
		chatList:    views.NewChatList(theme),
		thread:      views.NewMessageThread(theme),
		chatInfo:    views.NewChatInfo(theme),
		statusView:  views.NewStatusView(theme),
		profileView: views.NewProfileView(theme),
		helpView:    views.NewHelpView(theme),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.components = map[string]ui.Component{
		pageAuth:     a.authView,
		pageChats:    a.chatList,
		pageThread:   a.thread,
		pageDetails:  a.chatInfo,
		pageStatuses: a.statusView,
		pageProfile:  a.profileView,
		pageHelp:     a.helpView,
	}
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "Help",
		Handler:     func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Description: "Command",
		Handler:     func() { a.showPrompt(ui.PromptCommand, "") },
	})

	a.registry.AddView(pageChats, &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "Filter",
		Handler:     func() { a.showPrompt(ui.PromptFilter, "") },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "Add chat",
		Handler:     func() { a.showPrompt(ui.PromptCommand, "add ") },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Rune: 't', Key: tcell.KeyRune,
		Description: "Statuses",
		Handler:     func() { a.push(pageStatuses) },
	})
	a.registry.AddView(pageChats, &keys.Action{
		Rune: 'p', Key: tcell.KeyRune,
		Description: "Profile",
		Handler:     func() { a.push(pageProfile) },
	})

	a.registry.AddView(pageThread, &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "Compose",
		Handler:     func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "Details",
		Handler:     func() { a.push(pageDetails) },
	})

	a.registry.AddView(pageStatuses, &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "Refresh",
		Handler: func() {
			a.vm.RefreshStatuses()
			a.vm.Flash.Info("Statuses refreshed")
		},
	})
}

func (a *App) setupCallbacks() {
	a.prompt.SetCommands(commandNames)
	a.authView.SetOnSignIn(func(email, password string) {
		a.authView.SetBusy(true)
		go func() {
			if err := a.vm.SignIn(a.ctx, email, password); err != nil {
				a.logger.Debug("sign-in failed", zap.Error(err))
			}
		}()
	})
	a.authView.SetOnSignUp(func(req syncer.SignUpRequest) {
		a.authView.SetBusy(true)
		go func() {
			if err := a.vm.SignUp(a.ctx, req); err != nil {
				a.logger.Debug("sign-up failed", zap.Error(err))
			}
		}()
	})

	a.chatList.SetSelectedFunc(func(row, _ int) {
		if id := a.chatList.ChatByIndex(row); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		a.thread.SetBusy(true)
		go func() {
			err := a.vm.Send(a.ctx, text)
			if err != nil {
				a.logger.Debug("send failed", zap.Error(err))
			}
			a.app.QueueUpdateDraw(func() { a.thread.SetBusy(false) })
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.chatList.ClearFilter()
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, 0, len(stack))
		for _, name := range stack {
			names = append(names, a.components[name].Name())
		}
		a.crumbs.Update(names)
		if len(stack) > 0 {
			a.menu.Update(a.hints(stack[len(stack)-1]))
		}
	})
}

func (a *App) setupLayout() {
	for name, comp := range a.components {
		a.pages.AddPage(name, comp, true, false)
	}

	header := tview.NewFlex().
		AddItem(a.account, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flash, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	current := a.pages.Current()
	focused := a.app.GetFocus()

	if focused == a.prompt.InputField || current == pageAuth {
		return event
	}

	if focused == a.thread.Composer() {
		if event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		return event
	}

	if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyRune && event.Rune() == 'q' {
		if a.pages.Depth() > 1 {
			a.back()
		} else if event.Key() == tcell.KeyRune {
			a.Stop()
		}
		return nil
	}

	if current == pageChats && event.Key() == tcell.KeyRune && event.Rune() >= '0' && event.Rune() <= '9' {
		n := int(event.Rune() - '0')
		if n == 0 {
			a.chatList.ClearFilter()
		} else if id := a.chatList.ChatByIndex(n); id != "" {
			a.openChat(id)
		}
		return nil
	}

	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

func (a *App) focusTarget(page string) tview.Primitive {
	if comp, ok := a.components[page]; ok {
		return comp.FocusTarget()
	}
	return a.pages
}

// hints lists the page's own keys, then the bindings that are live on it.
func (a *App) hints(page string) []ui.MenuHint {
	hints := a.components[page].Hints()
	if page == pageAuth {
		return hints
	}
	return append(hints, a.registry.Hints(page)...)
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.lastFocus = a.app.GetFocus()
	a.prompt.Activate(mode)
	a.prompt.SetText(text)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if a.lastFocus != nil {
		a.app.SetFocus(a.lastFocus)
		a.lastFocus = nil
		return
	}
	a.app.SetFocus(a.focusTarget(a.pages.Current()))
}

func (a *App) push(name string) {
	if a.pages.Current() == name {
		return
	}
	a.pages.Push(name)
	a.app.SetFocus(a.focusTarget(name))
	a.render()
}

func (a *App) back() {
	if a.pages.Pop() == pageThread {
		a.vm.CloseChat()
		a.thread.SetChatID("")
	}
	a.app.SetFocus(a.focusTarget(a.pages.Current()))
	a.render()
}

// showRoot resets navigation to the chat list, closing any open chat.
func (a *App) showRoot() {
	if a.thread.ChatID() != "" {
		a.vm.CloseChat()
		a.thread.SetChatID("")
	}
	a.pages.Reset(pageChats)
	a.app.SetFocus(a.chatList)
}

func (a *App) openChat(id string) {
	chat, ok := a.vm.Chat(id)
	if !ok {
		return
	}
	if a.pages.Current() != pageChats {
		a.showRoot()
	}
	if err := a.vm.OpenChat(id); err != nil {
		return
	}
	a.thread.SetChatID(id)
	a.thread.SetChatName(partnerName(chat, a.vm.UserID()))
	a.push(pageThread)
}

func partnerName(chat syncer.Chat, self string) string {
	p := chat.Partner(self)
	if p.Name != "" {
		return p.Name
	}
	return p.Number
}

// render syncs every view with the view model. It must run on the UI
// goroutine.
func (a *App) render() {
	uid := a.vm.UserID()

	if !a.vm.SignedIn() {
		if a.pages.Current() != pageAuth {
			a.thread.SetChatID("")
			a.authView.Reset()
			a.pages.Reset(pageAuth)
			a.app.SetFocus(a.authView)
		}
		a.authView.SetBusy(a.vm.Busy() || a.vm.Phase() == syncer.PhaseSigningIn)
	} else if a.pages.Current() == pageAuth || a.pages.Current() == "" {
		a.authView.SetBusy(false)
		a.showRoot()
	}

	profile := a.vm.Profile()
	feed := a.vm.Statuses()
	data := &ui.AccountData{
		Instance: a.instance,
		Phase:    string(a.vm.Phase()),
		Chats:    len(a.vm.Chats()),
		Statuses: len(feed.All),
		Busy:     a.vm.Busy(),
		Loading:  a.vm.Loading(),
	}
	if profile != nil {
		data.Name = profile.Name
		data.Number = profile.Number
	}
	a.account.Update(data)

	a.chatList.Update(a.vm.Chats(), uid, a.vm.ChatsLoading())
	if id := a.thread.ChatID(); id != "" && id == a.vm.ActiveChat() {
		partner := "-"
		if chat, ok := a.vm.Chat(id); ok {
			partner = partnerName(chat, uid)
			a.chatInfo.Update(chat, uid)
		}
		a.thread.Update(a.vm.Messages(), uid, partner, a.vm.MessagesLoading())
	}
	a.statusView.Update(feed, uid, a.vm.StatusesLoading())
	a.profileView.Update(profile)
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.vm.Start(a.ctx)
	go a.refreshLoop()
	go a.flashLoop()

	a.app.QueueUpdateDraw(a.render)
	return a.app.Run()
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case <-ticker.C:
			a.vm.RefreshStatuses()
		case <-a.ctx.Done():
			return
		}
	}
}

// flashLoop shows new flash messages and clears them once expired.
func (a *App) flashLoop() {
	ticker := time.NewTicker(flashTick)
	defer ticker.Stop()
	for {
		select {
		case msg := <-a.vm.Flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flash.Update(&msg) })
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() { a.flash.Update(a.vm.Flash.GetMessage()) })
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
