package syncer

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
)

// Phase is the authentication state of a Client.
type Phase string

const (
	PhaseSignedOut Phase = "SIGNED_OUT"
	PhaseSigningIn Phase = "SIGNING_IN"
	PhaseSignedIn  Phase = "SIGNED_IN"
)

var validTransitions = map[Phase][]Phase{
	PhaseSignedOut: {PhaseSigningIn, PhaseSignedIn},
	PhaseSigningIn: {PhaseSignedIn, PhaseSignedOut},
	PhaseSignedIn:  {PhaseSignedOut},
}

// PhaseChange is the payload of "session.phase_changed" events.
type PhaseChange struct {
	From   Phase
	To     Phase
	UserID string
}

// Session tracks who is signed in.
type Session struct {
	mu    sync.RWMutex
	phase Phase
	uid   string
	bus   *bus.Bus
}

// NewSession creates a signed-out session.
func NewSession(b *bus.Bus) *Session {
	return &Session{phase: PhaseSignedOut, bus: b}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// SignedIn reports whether a user is signed in.
func (s *Session) SignedIn() bool {
	return s.Phase() == PhaseSignedIn
}

// UserID returns the signed-in user id, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

// transition moves to phase to. uid is recorded when entering
// PhaseSignedIn and cleared otherwise.
func (s *Session) transition(to Phase, uid string) error {
	s.mu.Lock()
	if !slices.Contains(validTransitions[s.phase], to) {
		from := s.phase
		s.mu.Unlock()
		return fmt.Errorf("invalid session transition from %s to %s", from, to)
	}
	from := s.phase
	s.phase = to
	if to == PhaseSignedIn {
		s.uid = uid
	} else {
		s.uid = ""
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      "session.phase_changed",
			Timestamp: time.Now(),
			Payload:   PhaseChange{From: from, To: to, UserID: uid},
		})
	}
	return nil
}
