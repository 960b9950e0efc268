// Package syncer keeps a chat client's in-memory state in step with a
// remote document store. It owns the live queries behind the profile,
// chat list, open chat and status feed, and exposes the results as
// observable values alongside the user actions that change them.
package syncer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

// Options configures a Client. Every field is optional.
type Options struct {
	Bus          *bus.Bus
	Logger       *zap.Logger
	Clock        func() time.Time
	StatusWindow time.Duration
}

// State groups the observable containers of a Client.
type State struct {
	Profile    *Value[*UserProfile]
	Chats      *Value[[]Chat]
	Messages   *Value[[]Message]
	ActiveChat *Value[string]
	Statuses   *Value[StatusFeed]

	InProgress      *Value[bool]
	ChatsLoading    *Value[bool]
	MessagesLoading *Value[bool]
	StatusesLoading *Value[bool]
}

// SignUpRequest holds the sign-up form.
type SignUpRequest struct {
	Name     string
	Number   string
	Email    string
	Password string
}

// Client is the chat client core.
type Client struct {
	store  remote.Store
	auth   remote.Auth
	blobs  remote.Blobs
	logger *zap.Logger
	clock  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	session  *Session
	notifier *Notifier
	state    State

	profile  *ProfileSync
	chats    *ChatListSync
	messages *MessageStream
	statuses *StatusSync

	mu         sync.Mutex
	uid        string
	downstream bool
	busyCount  int
}

// New creates a signed-out client. Call Start to restore a persisted
// sign-in.
func New(st remote.Store, auth remote.Auth, blobs remote.Blobs, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	window := opts.StatusWindow
	if window <= 0 {
		window = DefaultStatusWindow
	}
	b := opts.Bus

	state := State{
		Profile:         NewValue[*UserProfile]("profile", b, nil),
		Chats:           NewValue[[]Chat]("chats", b, nil),
		Messages:        NewValue[[]Message]("messages", b, nil),
		ActiveChat:      NewValue("active_chat", b, ""),
		Statuses:        NewValue("statuses", b, StatusFeed{}),
		InProgress:      NewValue("in_progress", b, false),
		ChatsLoading:    NewValue("chats_loading", b, false),
		MessagesLoading: NewValue("messages_loading", b, false),
		StatusesLoading: NewValue("statuses_loading", b, false),
	}
	notifier := NewNotifier(b, logger)

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		store:    st,
		auth:     auth,
		blobs:    blobs,
		logger:   logger,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		session:  NewSession(b),
		notifier: notifier,
		state:    state,
		profile:  newProfileSync(st, notifier, logger.Named("profile"), state.Profile),
		chats:    newChatListSync(st, notifier, logger.Named("chats"), state.Chats, state.ChatsLoading),
		messages: newMessageStream(st, notifier, logger.Named("messages"), state.Messages, state.ActiveChat, state.MessagesLoading),
		statuses: newStatusSync(st, notifier, logger.Named("statuses"), clock, window, state.Statuses, state.StatusesLoading),
	}
}

// State returns the observable containers.
func (c *Client) State() State { return c.state }

// Session returns the authentication state.
func (c *Client) Session() *Session { return c.session }

// Notifier returns the notification channel.
func (c *Client) Notifier() *Notifier { return c.notifier }

// Start resumes the session the auth provider still holds, if any.
func (c *Client) Start() {
	uid := c.auth.CurrentUserID()
	if uid == "" {
		return
	}
	if err := c.session.transition(PhaseSignedIn, uid); err != nil {
		c.logger.Warn("cannot restore session", zap.Error(err))
		return
	}
	c.logger.Info("session restored", zap.String("uid", uid))
	c.attachUser(uid)
}

// Close cancels every live query. The client is unusable afterwards.
func (c *Client) Close() {
	c.teardown()
	c.cancel()
}

func (c *Client) fail(err error) error {
	c.notifier.Report(err)
	return err
}

// busy raises InProgress until the returned func is called.
func (c *Client) busy() func() {
	c.mu.Lock()
	c.busyCount++
	c.state.InProgress.set(true)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.busyCount--
		if c.busyCount == 0 {
			c.state.InProgress.set(false)
		}
		c.mu.Unlock()
	}
}

func (c *Client) attachUser(uid string) {
	c.mu.Lock()
	c.uid = uid
	c.downstream = false
	c.mu.Unlock()
	_ = c.profile.Attach(c.ctx, uid, func(UserProfile) { c.startDownstream(uid) })
}

// startDownstream opens the chat-list and status queries once the
// profile of uid has been seen.
func (c *Client) startDownstream(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != uid || c.downstream {
		return
	}
	c.downstream = true
	_ = c.chats.Attach(c.ctx, uid)
	_ = c.statuses.Attach(c.ctx, uid)
}

func (c *Client) teardown() {
	c.mu.Lock()
	c.uid = ""
	c.downstream = false
	c.mu.Unlock()
	c.messages.Detach()
	c.statuses.Detach()
	c.chats.Detach()
	c.profile.Detach()
}

func (c *Client) currentUser() (string, error) {
	uid := c.session.UserID()
	if uid == "" {
		return "", validationError("Not signed in")
	}
	return uid, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return c.fail(validationError("Please fill in all fields"))
	}
	if err := c.session.transition(PhaseSigningIn, ""); err != nil {
		return c.fail(validationError("Already signed in"))
	}
	defer c.busy()()

	uid, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		_ = c.session.transition(PhaseSignedOut, "")
		return c.fail(remoteError("Login failed", err))
	}
	_ = c.session.transition(PhaseSignedIn, uid)
	c.attachUser(uid)
	return nil
}

// SignUp creates an account and its profile. The number must not belong
// to another user.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Number = strings.TrimSpace(req.Number)
	if req.Name == "" || req.Number == "" || req.Email == "" || req.Password == "" {
		return c.fail(validationError("Please fill in all fields"))
	}
	if err := validateNumber(req.Number); err != nil {
		return c.fail(err)
	}
	if err := c.session.transition(PhaseSigningIn, ""); err != nil {
		return c.fail(validationError("Already signed in"))
	}
	defer c.busy()()

	taken, err := c.store.Get(ctx, remote.Collection(usersCollection).Where(remote.Eq("number", req.Number)))
	if err != nil {
		_ = c.session.transition(PhaseSignedOut, "")
		return c.fail(remoteError("Signup failed", err))
	}
	if !taken.Empty() {
		_ = c.session.transition(PhaseSignedOut, "")
		return c.fail(conflictError("number already exists"))
	}

	uid, err := c.auth.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		_ = c.session.transition(PhaseSignedOut, "")
		return c.fail(remoteError("Signup failed", err))
	}
	_ = c.session.transition(PhaseSignedIn, uid)
	c.attachUser(uid)

	if err := c.profile.Upsert(ctx, uid, ProfileUpdate{Name: req.Name, Number: req.Number}); err != nil {
		return c.fail(err)
	}
	return nil
}

// SignOut tears down every live query and clears all state.
func (c *Client) SignOut() error {
	c.teardown()
	if err := c.auth.SignOut(); err != nil {
		c.logger.Warn("auth sign-out failed", zap.Error(err))
	}
	if c.session.Phase() != PhaseSignedOut {
		_ = c.session.transition(PhaseSignedOut, "")
	}
	c.notifier.Publish("Logged out")
	return nil
}

// UpdateProfile writes the given fields of the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	uid, err := c.currentUser()
	if err != nil {
		return c.fail(err)
	}
	if upd.Number != "" {
		if err := validateNumber(upd.Number); err != nil {
			return c.fail(err)
		}
	}
	defer c.busy()()
	if err := c.profile.Upsert(ctx, uid, upd); err != nil {
		return c.fail(err)
	}
	return nil
}

// AddChat starts a chat with the user registered under number.
func (c *Client) AddChat(ctx context.Context, number string) (Chat, error) {
	number = strings.TrimSpace(number)
	if err := validateNumber(number); err != nil {
		return Chat{}, c.fail(err)
	}
	self := c.state.Profile.Get()
	if self == nil {
		return Chat{}, c.fail(validationError("Profile not loaded yet"))
	}
	defer c.busy()()
	chat, err := c.chats.AddChat(ctx, *self, number)
	if err != nil {
		return Chat{}, c.fail(err)
	}
	return chat, nil
}

// SendMessage posts text to chatID as the signed-in user.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	uid, err := c.currentUser()
	if err != nil {
		return c.fail(err)
	}
	if err := c.messages.Send(ctx, chatID, uid, text, c.clock()); err != nil {
		return c.fail(err)
	}
	return nil
}

// AttachChat opens chatID, replacing the chat open before.
func (c *Client) AttachChat(chatID string) error {
	if _, err := c.currentUser(); err != nil {
		return c.fail(err)
	}
	if err := c.messages.Attach(c.ctx, chatID); err != nil {
		return c.fail(err)
	}
	return nil
}

// DetachChat closes the open chat.
func (c *Client) DetachChat() {
	c.messages.Detach()
}

// RefreshStatuses drops statuses that aged out of the visibility window.
func (c *Client) RefreshStatuses() {
	c.statuses.Refresh()
}

func newImageKey() string {
	return "image/" + uuid.NewString()
}

// UploadProfileImage stores data and makes it the profile picture.
func (c *Client) UploadProfileImage(ctx context.Context, data []byte) error {
	uid, err := c.currentUser()
	if err != nil {
		return c.fail(err)
	}
	if len(data) == 0 {
		return c.fail(validationError("No image selected"))
	}
	defer c.busy()()
	url, err := c.blobs.Upload(ctx, data, newImageKey())
	if err != nil {
		return c.fail(remoteError("Image upload failed", err))
	}
	if err := c.profile.Upsert(ctx, uid, ProfileUpdate{ImageURL: url}); err != nil {
		return c.fail(err)
	}
	return nil
}

// UploadStatusImage stores data and posts it as a new status.
func (c *Client) UploadStatusImage(ctx context.Context, data []byte) (Status, error) {
	if _, err := c.currentUser(); err != nil {
		return Status{}, c.fail(err)
	}
	if len(data) == 0 {
		return Status{}, c.fail(validationError("No image selected"))
	}
	self := c.state.Profile.Get()
	if self == nil {
		return Status{}, c.fail(validationError("Profile not loaded yet"))
	}
	defer c.busy()()
	url, err := c.blobs.Upload(ctx, data, newImageKey())
	if err != nil {
		return Status{}, c.fail(remoteError("Image upload failed", err))
	}
	st, err := c.statuses.Post(ctx, *self, url)
	if err != nil {
		return Status{}, c.fail(err)
	}
	return st, nil
}
