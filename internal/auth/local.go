package auth

import (
	"context"
	"sync"

	"github.com/matheus3301/chatsync/internal/remote"
)

// Local adapts a Service to remote.Auth for in-process clients. The
// signed-in uid lives in memory only.
type Local struct {
	svc *Service

	mu  sync.RWMutex
	uid string
}

var _ remote.Auth = (*Local)(nil)

// NewLocal creates an in-process auth client.
func NewLocal(svc *Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) SignIn(_ context.Context, email, password string) (string, error) {
	uid, err := l.svc.SignIn(email, password)
	if err != nil {
		return "", err
	}
	l.set(uid)
	return uid, nil
}

func (l *Local) SignUp(_ context.Context, email, password string) (string, error) {
	uid, err := l.svc.SignUp(email, password)
	if err != nil {
		return "", err
	}
	l.set(uid)
	return uid, nil
}

func (l *Local) SignOut() error {
	l.set("")
	return nil
}

func (l *Local) CurrentUserID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.uid
}

func (l *Local) set(uid string) {
	l.mu.Lock()
	l.uid = uid
	l.mu.Unlock()
}
