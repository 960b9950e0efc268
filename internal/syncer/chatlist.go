package syncer

import (
	"context"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

// ChatListSync mirrors every chat the signed-in user takes part in.
type ChatListSync struct {
	store    remote.Store
	notifier *Notifier
	logger   *zap.Logger

	slot    slot
	chats   *Value[[]Chat]
	loading *Value[bool]
}

func newChatListSync(st remote.Store, n *Notifier, logger *zap.Logger, chats *Value[[]Chat], loading *Value[bool]) *ChatListSync {
	return &ChatListSync{store: st, notifier: n, logger: logger, chats: chats, loading: loading}
}

// involving matches chats with uid in either participant slot.
func involving(uid string) remote.Filter {
	return remote.Or(
		remote.Eq("user1.userId", uid),
		remote.Eq("user2.userId", uid),
	)
}

// Attach subscribes to the chats of uid. Each snapshot replaces the list.
func (c *ChatListSync) Attach(ctx context.Context, uid string) error {
	epoch := c.slot.begin(func() {
		c.chats.set(nil)
		c.loading.set(true)
	})

	q := remote.Collection(chatsCollection).Where(involving(uid))
	sub, err := c.store.Subscribe(ctx, q, func(snap remote.Snapshot, err error) {
		if err != nil {
			if c.slot.guard(epoch, func() { c.loading.set(false) }) {
				c.notifier.Report(remoteError("Cannot retrieve chats", err))
			}
			return
		}
		chats := decodeChats(snap)
		if dropped := len(snap.Docs) - len(chats); dropped > 0 {
			c.logger.Debug("dropped malformed chats", zap.Int("count", dropped))
		}
		c.slot.guard(epoch, func() {
			c.chats.set(chats)
			c.loading.set(false)
		})
	})
	if err != nil {
		c.slot.guard(epoch, func() { c.loading.set(false) })
		err = remoteError("Cannot retrieve chats", err)
		c.notifier.Report(err)
		return err
	}
	c.slot.bind(epoch, sub)
	return nil
}

// Detach cancels the subscription and clears the list.
func (c *ChatListSync) Detach() {
	c.slot.cancel(func() {
		c.chats.set(nil)
		c.loading.set(false)
	})
}

func validateNumber(number string) error {
	if number == "" {
		return validationError("Number must not be empty")
	}
	if !isDigits(number) {
		return validationError("Number must contain only digits")
	}
	return nil
}

// AddChat opens a chat between self and the user registered with number.
// The existence check and the write are separate calls, so two users
// adding each other at the same moment can still create two chats.
//
// Existing chats are matched on self's uid and the partner's number as
// denormalized into the chat. A chat whose partner has since changed
// number is not detected, and adding the new number creates a second one.
func (c *ChatListSync) AddChat(ctx context.Context, self UserProfile, number string) (Chat, error) {
	if err := validateNumber(number); err != nil {
		return Chat{}, err
	}
	if number == self.Number {
		return Chat{}, validationError("Cannot start a chat with yourself")
	}

	existing := remote.Collection(chatsCollection).Where(remote.Or(
		remote.And(remote.Eq("user1.number", number), remote.Eq("user2.userId", self.UserID)),
		remote.And(remote.Eq("user1.userId", self.UserID), remote.Eq("user2.number", number)),
	))
	snap, err := c.store.Get(ctx, existing)
	if err != nil {
		return Chat{}, remoteError("Error creating chat", err)
	}
	if !snap.Empty() {
		return Chat{}, conflictError("Chat already exists")
	}

	users, err := c.store.Get(ctx, remote.Collection(usersCollection).Where(remote.Eq("number", number)))
	if err != nil {
		return Chat{}, remoteError("Cannot retrieve user with number "+number, err)
	}
	var partner UserProfile
	found := false
	for _, doc := range users.Docs {
		if p, ok := decodeProfile(doc); ok {
			partner, found = p, true
			break
		}
	}
	if !found {
		return Chat{}, notFoundError("Cannot retrieve user with number " + number)
	}
	if partner.UserID == self.UserID {
		return Chat{}, validationError("Cannot start a chat with yourself")
	}

	chat := Chat{
		ChatID: c.store.NewID(chatsCollection),
		User1:  self.Ref(),
		User2:  partner.Ref(),
	}
	data, err := remote.ToData(chat)
	if err != nil {
		return Chat{}, remoteError("Error creating chat", err)
	}
	if err := c.store.Put(ctx, chatsCollection, chat.ChatID, data); err != nil {
		return Chat{}, remoteError("Error creating chat", err)
	}
	c.logger.Info("chat created", zap.String("chat", chat.ChatID), zap.String("partner", partner.UserID))
	return chat, nil
}
