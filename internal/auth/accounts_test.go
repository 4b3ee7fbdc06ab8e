package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"aniserve/internal/models"
	"aniserve/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "aniserve.json"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	return st
}

func TestRegisterThenLogin(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	registered, err := svc.RegisterLocal("Alice@Example.com ", "secret123", "Alice")
	if err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}
	if registered.Email != "alice@example.com" {
		t.Fatalf("email = %q, want normalized %q", registered.Email, "alice@example.com")
	}
	if !registered.HasProvider(models.ProviderLocal) {
		t.Fatal("registered user is missing the local provider tag")
	}

	logged, err := svc.LoginLocal("alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("LoginLocal() error = %v", err)
	}
	if logged.ID != registered.ID {
		t.Fatalf("LoginLocal() user id = %q, want %q", logged.ID, registered.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	if _, err := svc.RegisterLocal("bob@example.com", "secret123", ""); err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}

	// Near-miss passwords fail just like distant ones.
	for _, password := range []string{"secret124", "Secret123", "secret123 ", ""} {
		_, err := svc.LoginLocal("bob@example.com", password)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("LoginLocal(%q) error = %v, want AuthError", password, err)
		}
	}
}

func TestLoginUnknownEmailMatchesWrongPasswordMessage(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	if _, err := svc.RegisterLocal("carol@example.com", "secret123", ""); err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}

	_, unknownErr := svc.LoginLocal("nobody@example.com", "secret123")
	_, wrongErr := svc.LoginLocal("carol@example.com", "wrongpass")

	var unknownAuth, wrongAuth *AuthError
	if !errors.As(unknownErr, &unknownAuth) || !errors.As(wrongErr, &wrongAuth) {
		t.Fatalf("errors = %v / %v, want AuthError for both", unknownErr, wrongErr)
	}
	if unknownAuth.Message != wrongAuth.Message {
		t.Fatalf("client-visible messages differ: %q vs %q (enumeration leak)", unknownAuth.Message, wrongAuth.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "short_password", email: "a@b.com", password: "12345"},
		{name: "empty_password", email: "a@b.com", password: ""},
		{name: "no_at_sign", email: "not-an-email", password: "secret123"},
		{name: "empty_email", email: "", password: "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterLocal(tt.email, tt.password, "")
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("RegisterLocal() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestRegisterExistingEmailKeepsUserID(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	first, err := svc.RegisterLocal("dan@example.com", "firstpass", "Dan")
	if err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}

	// Re-registering acts as a password reset on the same record.
	second, err := svc.RegisterLocal("dan@example.com", "secondpass", "")
	if err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-register created a new user: %q vs %q", second.ID, first.ID)
	}

	if _, err := svc.LoginLocal("dan@example.com", "firstpass"); err == nil {
		t.Fatal("LoginLocal() accepted the replaced password")
	}
	if _, err := svc.LoginLocal("dan@example.com", "secondpass"); err != nil {
		t.Fatalf("LoginLocal() error = %v with the new password", err)
	}
}

func TestUpsertFederatedNewUser(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	user, err := svc.UpsertFederated(&FederatedClaims{
		Sub:           "google-sub-1",
		Email:         "Eve@Example.com",
		EmailVerified: true,
		Name:          "Eve  Online",
		Picture:       "https://lh3.example.com/photo.jpg",
	})
	if err != nil {
		t.Fatalf("UpsertFederated() error = %v", err)
	}

	if user.Email != "eve@example.com" {
		t.Fatalf("email = %q, want normalized", user.Email)
	}
	if user.Name != "Eve Online" {
		t.Fatalf("name = %q, want whitespace collapsed", user.Name)
	}
	if user.GoogleSub != "google-sub-1" {
		t.Fatalf("googleSub = %q", user.GoogleSub)
	}
	if !user.HasProvider(models.ProviderGoogle) {
		t.Fatal("missing google provider tag")
	}
}

func TestUpsertFederatedMergesWithLocalAccount(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	local, err := svc.RegisterLocal("frank@example.com", "secret123", "Frank")
	if err != nil {
		t.Fatalf("RegisterLocal() error = %v", err)
	}

	merged, err := svc.UpsertFederated(&FederatedClaims{
		Sub:           "google-sub-2",
		Email:         "frank@example.com",
		EmailVerified: true,
		Name:          "Frank G",
	})
	if err != nil {
		t.Fatalf("UpsertFederated() error = %v", err)
	}

	if merged.ID != local.ID {
		t.Fatalf("federated login resolved to a different user: %q vs %q", merged.ID, local.ID)
	}
	if !merged.HasProvider(models.ProviderLocal) || !merged.HasProvider(models.ProviderGoogle) {
		t.Fatalf("authProviders = %v, want both local and google", merged.AuthProviders)
	}

	// Subsequent lookups by sub resolve to the same record.
	again, err := svc.UpsertFederated(&FederatedClaims{
		Sub:           "google-sub-2",
		Email:         "frank@example.com",
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("UpsertFederated() error = %v", err)
	}
	if again.ID != local.ID {
		t.Fatalf("sub lookup resolved to %q, want %q", again.ID, local.ID)
	}
}

func TestUpsertFederatedRejectsUnverifiedEmail(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	_, err := svc.UpsertFederated(&FederatedClaims{
		Sub:           "google-sub-3",
		Email:         "grace@example.com",
		EmailVerified: false,
	})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("UpsertFederated() error = %v, want AuthError", err)
	}
}

func TestUpsertFederatedDropsBadPictureScheme(t *testing.T) {
	svc := NewAccountService(openTestStore(t), 6)

	user, err := svc.UpsertFederated(&FederatedClaims{
		Sub:           "google-sub-4",
		Email:         "heidi@example.com",
		EmailVerified: true,
		Picture:       "javascript:alert(1)",
	})
	if err != nil {
		t.Fatalf("UpsertFederated() error = %v", err)
	}
	if user.Picture != "" {
		t.Fatalf("picture = %q, want dropped", user.Picture)
	}
}
