package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager(testSecret, 30*24*time.Hour)

	token, err := m.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	session := m.Validate(token)
	if session == nil {
		t.Fatal("Validate() = nil for a fresh token")
	}
	if session.UserID != "usr_1" {
		t.Fatalf("session.UserID = %q, want %q", session.UserID, "usr_1")
	}
}

func TestSessionTamperedSignature(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour)

	token, err := m.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Flip one character in the signature segment.
	id, sig, _ := strings.Cut(token, ".")
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	if m.Validate(id+"."+string(flipped)) != nil {
		t.Fatal("Validate() accepted a tampered signature")
	}
	if m.Validate(id) != nil {
		t.Fatal("Validate() accepted a token with no signature segment")
	}
	if m.Validate("") != nil {
		t.Fatal("Validate() accepted an empty token")
	}
}

func TestSessionWrongSecret(t *testing.T) {
	issuer := NewSessionManager(testSecret, time.Hour)
	other := NewSessionManager("ffffffffffffffffffffffffffffffff", time.Hour)

	token, err := issuer.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if other.Validate(token) != nil {
		t.Fatal("Validate() accepted a token signed with a different secret")
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	ttl := time.Hour
	m := NewSessionManager(testSecret, ttl)

	created := time.Now()
	m.now = func() time.Time { return created }

	token, err := m.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.now = func() time.Time { return created.Add(ttl - time.Millisecond) }
	if m.Validate(token) == nil {
		t.Fatal("Validate() = nil just before expiry")
	}

	// The successful validation above slid the window forward.
	refreshed := created.Add(ttl - time.Millisecond)
	m.now = func() time.Time { return refreshed.Add(ttl + time.Millisecond) }
	if m.Validate(token) != nil {
		t.Fatal("Validate() accepted an expired session")
	}

	// Expired entry was purged; a replayed token stays invalid.
	m.now = func() time.Time { return created }
	if m.Validate(token) != nil {
		t.Fatal("Validate() accepted a purged session")
	}
}

func TestSessionSlidingRefresh(t *testing.T) {
	ttl := time.Hour
	m := NewSessionManager(testSecret, ttl)

	created := time.Now()
	m.now = func() time.Time { return created }

	token, err := m.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Touch the session every 45 minutes; it must outlive the original TTL.
	for i := 1; i <= 4; i++ {
		m.now = func() time.Time { return created.Add(time.Duration(i) * 45 * time.Minute) }
		if m.Validate(token) == nil {
			t.Fatalf("Validate() = nil on touch %d despite sliding refresh", i)
		}
	}
}

func TestSessionRevokeIsIdempotent(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour)

	token, err := m.Create("usr_1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.Revoke(token)
	if m.Validate(token) != nil {
		t.Fatal("Validate() accepted a revoked session")
	}
	m.Revoke(token) // second revoke is a no-op
	m.Revoke("garbage")
}

func TestPruneExpired(t *testing.T) {
	ttl := time.Minute
	m := NewSessionManager(testSecret, ttl)

	start := time.Now()
	m.now = func() time.Time { return start }

	for i := 0; i < 3; i++ {
		if _, err := m.Create("usr_old"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	m.now = func() time.Time { return start.Add(30 * time.Second) }
	fresh, err := m.Create("usr_new")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.now = func() time.Time { return start.Add(ttl + time.Second) }
	if removed := m.PruneExpired(); removed != 3 {
		t.Fatalf("PruneExpired() = %d, want 3", removed)
	}
	if m.Validate(fresh) == nil {
		t.Fatal("PruneExpired() removed an unexpired session")
	}
}
