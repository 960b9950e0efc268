package model

import (
	"context"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

// ViewModel exposes the syncer core to the views. Reads go straight to
// the core's observable state; bus events from the core become refresh
// signals and flash messages.
type ViewModel struct {
	core  *syncer.Client
	bus   *bus.Bus
	Flash *ui.FlashModel

	refreshCh chan struct{}
}

// NewViewModel creates a view model over core. b must be the bus core
// publishes on.
func NewViewModel(core *syncer.Client, b *bus.Bus) *ViewModel {
	return &ViewModel{
		core:      core,
		bus:       b,
		Flash:     ui.NewFlashModel(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Start subscribes to core events and forwards them until ctx is done.
// Events published after Start returns are never missed.
func (vm *ViewModel) Start(ctx context.Context) {
	events, unsub := vm.bus.Subscribe("", 64)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-events:
				vm.handle(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (vm *ViewModel) handle(evt bus.Event) {
	switch evt.Kind {
	case syncer.KindNotifyError:
		if msg, ok := vm.core.Notifier().Consume(); ok {
			vm.Flash.Warn(msg)
		}
	case syncer.KindNotifyPublished:
		if msg, ok := vm.core.Notifier().Consume(); ok {
			vm.Flash.Info(msg)
		}
	}
	switch evt.Namespace() {
	case "state", "session", "notify":
		vm.signalRefresh()
	}
}

// SignedIn reports whether a user is signed in.
func (vm *ViewModel) SignedIn() bool { return vm.core.Session().SignedIn() }

// Phase returns the session phase.
func (vm *ViewModel) Phase() syncer.Phase { return vm.core.Session().Phase() }

// UserID returns the signed-in uid.
func (vm *ViewModel) UserID() string { return vm.core.Session().UserID() }

// Profile returns the signed-in profile, or nil while it loads.
func (vm *ViewModel) Profile() *syncer.UserProfile { return vm.core.State().Profile.Get() }

// Chats returns the chat list.
func (vm *ViewModel) Chats() []syncer.Chat { return vm.core.State().Chats.Get() }

// Messages returns the open chat's messages, oldest first.
func (vm *ViewModel) Messages() []syncer.Message { return vm.core.State().Messages.Get() }

// ActiveChat returns the open chat id.
func (vm *ViewModel) ActiveChat() string { return vm.core.State().ActiveChat.Get() }

// Statuses returns the status feed.
func (vm *ViewModel) Statuses() syncer.StatusFeed { return vm.core.State().Statuses.Get() }

// Busy reports whether a user action is running.
func (vm *ViewModel) Busy() bool { return vm.core.State().InProgress.Get() }

// Loading reports whether any live query is still waiting for its first
// snapshot.
func (vm *ViewModel) Loading() bool {
	st := vm.core.State()
	return st.ChatsLoading.Get() || st.MessagesLoading.Get() || st.StatusesLoading.Get()
}

// ChatsLoading reports whether the chat list awaits its first snapshot.
func (vm *ViewModel) ChatsLoading() bool { return vm.core.State().ChatsLoading.Get() }

// MessagesLoading reports whether the open chat awaits its first snapshot.
func (vm *ViewModel) MessagesLoading() bool { return vm.core.State().MessagesLoading.Get() }

// StatusesLoading reports whether the status feed awaits its first snapshot.
func (vm *ViewModel) StatusesLoading() bool { return vm.core.State().StatusesLoading.Get() }

// Chat returns the chat with id from the list.
func (vm *ViewModel) Chat(id string) (syncer.Chat, bool) {
	for _, c := range vm.Chats() {
		if c.ChatID == id {
			return c, true
		}
	}
	return syncer.Chat{}, false
}

// Actions report failures through the notifier, which reaches the flash
// bar via Start; callers only need the error for control flow.

func (vm *ViewModel) SignIn(ctx context.Context, email, password string) error {
	return vm.core.SignIn(ctx, email, password)
}

func (vm *ViewModel) SignUp(ctx context.Context, req syncer.SignUpRequest) error {
	return vm.core.SignUp(ctx, req)
}

func (vm *ViewModel) SignOut() error {
	return vm.core.SignOut()
}

func (vm *ViewModel) AddChat(ctx context.Context, number string) (syncer.Chat, error) {
	return vm.core.AddChat(ctx, number)
}

func (vm *ViewModel) OpenChat(chatID string) error {
	return vm.core.AttachChat(chatID)
}

func (vm *ViewModel) CloseChat() {
	vm.core.DetachChat()
}

func (vm *ViewModel) Send(ctx context.Context, text string) error {
	return vm.core.SendMessage(ctx, vm.ActiveChat(), text)
}

func (vm *ViewModel) UpdateProfile(ctx context.Context, upd syncer.ProfileUpdate) error {
	return vm.core.UpdateProfile(ctx, upd)
}

func (vm *ViewModel) UploadProfileImage(ctx context.Context, data []byte) error {
	return vm.core.UploadProfileImage(ctx, data)
}

func (vm *ViewModel) PostStatus(ctx context.Context, data []byte) error {
	_, err := vm.core.UploadStatusImage(ctx, data)
	return err
}

func (vm *ViewModel) RefreshStatuses() {
	vm.core.RefreshStatuses()
}
