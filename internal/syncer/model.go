package syncer

import (
	"cmp"
	"slices"

	"github.com/matheus3301/chatsync/internal/remote"
)

// Collection names in the document store.
const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
	statusCollection   = "status"
)

func messagesPath(chatID string) string {
	return remote.Path(chatsCollection, chatID, messagesCollection)
}

// UserProfile is the current user's profile document, users/{userId}.
type UserProfile struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Number   string `json:"number"`
	ImageURL string `json:"imageUrl"`
	Status   string `json:"status"`
}

// Ref snapshots the profile for embedding in chats and statuses.
func (p UserProfile) Ref() ChatUserRef {
	return ChatUserRef{UserID: p.UserID, Name: p.Name, ImageURL: p.ImageURL, Number: p.Number}
}

// ChatUserRef is a copy of a participant's profile taken when the
// enclosing record was written. It is never refreshed.
type ChatUserRef struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Number   string `json:"number"`
}

// Chat is a conversation between two users. Either participant may be
// in either slot.
type Chat struct {
	ChatID string      `json:"chatId"`
	User1  ChatUserRef `json:"user1"`
	User2  ChatUserRef `json:"user2"`
}

// Partner returns the participant that is not uid.
func (c Chat) Partner(uid string) ChatUserRef {
	if c.User1.UserID == uid {
		return c.User2
	}
	return c.User1
}

// Involves reports whether uid is one of the participants.
func (c Chat) Involves(uid string) bool {
	return c.User1.UserID == uid || c.User2.UserID == uid
}

// Message is one entry of chats/{chatId}/messages. Timestamp is in unix
// milliseconds.
type Message struct {
	ID        string `json:"-"`
	SentBy    string `json:"sentBy"`
	Body      string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Status is an image post visible to the author's connections for a
// limited window after Timestamp (unix milliseconds).
type Status struct {
	ID        string      `json:"-"`
	User      ChatUserRef `json:"user"`
	ImageURL  string      `json:"imageUrl"`
	Timestamp int64       `json:"timestamp"`
}

func decodeProfile(doc remote.Document) (UserProfile, bool) {
	var p UserProfile
	if err := doc.DataTo(&p); err != nil {
		return UserProfile{}, false
	}
	if p.UserID == "" {
		p.UserID = doc.ID
	}
	return p, true
}

func decodeChats(snap remote.Snapshot) []Chat {
	chats := make([]Chat, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var c Chat
		if err := doc.DataTo(&c); err != nil || c.User1.UserID == "" || c.User2.UserID == "" {
			continue
		}
		if c.ChatID == "" {
			c.ChatID = doc.ID
		}
		chats = append(chats, c)
	}
	return chats
}

func decodeMessages(snap remote.Snapshot) []Message {
	msgs := make([]Message, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var m Message
		if err := doc.DataTo(&m); err != nil || m.SentBy == "" || m.Timestamp <= 0 {
			continue
		}
		m.ID = doc.ID
		msgs = append(msgs, m)
	}
	return msgs
}

// sortMessages orders messages by timestamp, breaking ties by id.
func sortMessages(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func decodeStatuses(snap remote.Snapshot) []Status {
	out := make([]Status, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var s Status
		if err := doc.DataTo(&s); err != nil || s.User.UserID == "" || s.Timestamp <= 0 {
			continue
		}
		s.ID = doc.ID
		out = append(out, s)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
