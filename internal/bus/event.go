package bus

import (
	"strings"
	"time"
)

// Event is one message on the bus. Kind is a dotted name whose first
// segment is its namespace.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Namespace returns the first segment of Kind ("state" for
// "state.chats").
func (e Event) Namespace() string {
	ns, _, _ := strings.Cut(e.Kind, ".")
	return ns
}

// Under reports whether Kind starts with prefix. Every event is under
// the empty prefix.
func (e Event) Under(prefix string) bool {
	return strings.HasPrefix(e.Kind, prefix)
}
