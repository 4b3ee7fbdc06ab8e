package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	sessionIDBytes = 32

	// DefaultPruneInterval is how often expired sessions are swept,
	// independent of request traffic.
	DefaultPruneInterval = 5 * time.Minute
)

// Session is one entry of the in-process session table. The table is never
// persisted; sessions do not survive a restart.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// SessionManager issues and validates opaque signed session tokens. The
// client-facing token is `<id>.<hmac(id)>`; only the id is held server-side,
// so a forged or tampered token fails the signature check before any table
// lookup.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL returns the sliding-window length, used for the cookie Max-Age.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create registers a new session for userID and returns the signed token.
func (m *SessionManager) Create(userID string) (string, error) {
	raw := make([]byte, sessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	id := hex.EncodeToString(raw)

	m.mu.Lock()
	m.sessions[id] = &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.mu.Unlock()

	return id + "." + m.sign(id), nil
}

// Validate checks the token signature and table entry. A valid session has
// its expiry extended to now+TTL (sliding window) and is returned; an
// expired entry is purged on the spot. Returns nil for anything invalid.
func (m *SessionManager) Validate(token string) *Session {
	id, ok := m.verify(token)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil
	}

	now := m.now()
	if !session.ExpiresAt.After(now) {
		delete(m.sessions, id)
		return nil
	}

	session.ExpiresAt = now.Add(m.ttl)
	copied := *session
	return &copied
}

// Revoke removes the session identified by token. Idempotent; a bad
// signature or unknown id is a no-op.
func (m *SessionManager) Revoke(token string) {
	id, ok := m.verify(token)
	if !ok {
		return
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// PruneExpired sweeps the table and reports how many entries were removed.
func (m *SessionManager) PruneExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, session := range m.sessions {
		if !session.ExpiresAt.After(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartPruner sweeps on a fixed interval until ctx is cancelled.
func (m *SessionManager) StartPruner(ctx context.Context, interval time.Duration) {
	slog.Info("starting session pruner", "component", "sessions", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session pruner", "component", "sessions")
			return
		case <-ticker.C:
			if removed := m.PruneExpired(); removed > 0 {
				slog.Info("pruned expired sessions", "component", "sessions", "count", removed)
			}
		}
	}
}

// verify splits the token and checks its signature, returning the session
// id on success.
func (m *SessionManager) verify(token string) (string, bool) {
	id, sig, found := strings.Cut(token, ".")
	if !found || id == "" || sig == "" {
		return "", false
	}
	if !hmac.Equal([]byte(m.sign(id)), []byte(sig)) {
		return "", false
	}
	return id, true
}

func (m *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
