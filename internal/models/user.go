package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"

	MaxNameLen = 80
)

// LocalCredential holds the scrypt-derived password material for accounts
// that ever registered or reset a password.
type LocalCredential struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
}

type User struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	Picture       string           `json:"picture,omitempty"`
	AuthProviders []string         `json:"authProviders"`
	LocalAuth     *LocalCredential `json:"localAuth,omitempty"`
	GoogleSub     string           `json:"googleSub,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	LastLoginAt   time.Time        `json:"lastLoginAt"`
}

// HasProvider reports whether the user has authenticated through the given
// provider at least once.
func (u *User) HasProvider(provider string) bool {
	for _, p := range u.AuthProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// AddProvider records a provider tag, keeping the set free of duplicates.
func (u *User) AddProvider(provider string) {
	if !u.HasProvider(provider) {
		u.AuthProviders = append(u.AuthProviders, provider)
	}
}

// NormalizeEmail trims and lowercases an address. Store uniqueness is keyed
// on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName collapses internal whitespace and caps the display name at
// MaxNameLen runes. The cap counts characters, not bytes, so multibyte
// names are never cut mid-rune.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) > MaxNameLen {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLen]))
	}
	return name
}

// DeriveNameFromEmail builds a fallback display name from the address's
// local part.
func DeriveNameFromEmail(email string) string {
	local, _, found := strings.Cut(NormalizeEmail(email), "@")
	if !found || local == "" {
		return "usuario"
	}
	return NormalizeName(local)
}
