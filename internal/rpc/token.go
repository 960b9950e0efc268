package rpc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCache keeps the session token on disk so a restarted client comes
// back signed in. A zero path disables persistence.
type TokenCache struct {
	path string
}

// NewTokenCache returns a cache backed by the file at path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Load returns the cached token, or "" when none is stored.
func (c *TokenCache) Load() (string, error) {
	if c == nil || c.path == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores token with owner-only permissions.
func (c *TokenCache) Save(token string) error {
	if c == nil || c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(token+"\n"), 0600)
}

// Clear removes the cached token.
func (c *TokenCache) Clear() error {
	if c == nil || c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// tokenSubject reads the uid from token without checking the signature.
// The server verifies every call; the client only needs to know whose
// token it holds and whether it has lapsed.
func tokenSubject(token string, now time.Time) string {
	if token == "" {
		return ""
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ""
	}
	return claims.Subject
}
