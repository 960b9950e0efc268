package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

// MessageStream mirrors the messages of the one chat currently open.
type MessageStream struct {
	store    remote.Store
	notifier *Notifier
	logger   *zap.Logger

	slot     slot
	messages *Value[[]Message]
	active   *Value[string]
	loading  *Value[bool]
}

func newMessageStream(st remote.Store, n *Notifier, logger *zap.Logger, messages *Value[[]Message], active *Value[string], loading *Value[bool]) *MessageStream {
	return &MessageStream{store: st, notifier: n, logger: logger, messages: messages, active: active, loading: loading}
}

// Attach switches the stream to chatID, dropping any previous chat first.
func (m *MessageStream) Attach(ctx context.Context, chatID string) error {
	if chatID == "" {
		return validationError("No chat selected")
	}
	epoch := m.slot.begin(func() {
		m.messages.set(nil)
		m.active.set(chatID)
		m.loading.set(true)
	})

	sub, err := m.store.Subscribe(ctx, remote.Collection(messagesPath(chatID)), func(snap remote.Snapshot, err error) {
		if err != nil {
			if m.slot.guard(epoch, func() { m.loading.set(false) }) {
				m.notifier.Report(remoteError("Cannot retrieve messages", err))
			}
			return
		}
		msgs := decodeMessages(snap)
		sortMessages(msgs)
		m.slot.guard(epoch, func() {
			m.messages.set(msgs)
			m.loading.set(false)
		})
	})
	if err != nil {
		m.slot.guard(epoch, func() { m.loading.set(false) })
		err = remoteError("Cannot retrieve messages", err)
		m.notifier.Report(err)
		return err
	}
	m.slot.bind(epoch, sub)
	m.logger.Debug("chat attached", zap.String("chat", chatID))
	return nil
}

// Detach closes the open chat. Callbacks still in flight are discarded.
func (m *MessageStream) Detach() {
	m.slot.cancel(func() {
		m.messages.set(nil)
		m.active.set("")
		m.loading.set(false)
	})
}

// Send appends a message to chatID. Nothing is added locally; the message
// shows up when the live query delivers it.
func (m *MessageStream) Send(ctx context.Context, chatID, senderID, text string, now time.Time) error {
	if chatID == "" {
		return validationError("No chat selected")
	}
	if strings.TrimSpace(text) == "" {
		return validationError("Message must not be empty")
	}
	msg := Message{SentBy: senderID, Body: text, Timestamp: now.UnixMilli()}
	data, err := remote.ToData(msg)
	if err != nil {
		return remoteError("Cannot send message", err)
	}
	coll := messagesPath(chatID)
	if err := m.store.Put(ctx, coll, m.store.NewID(coll), data); err != nil {
		return remoteError("Cannot send message", err)
	}
	return nil
}
