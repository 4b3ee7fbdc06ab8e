package auth

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"aniserve/internal/models"
	"aniserve/internal/store"
)

// AccountService implements local and federated account management over the
// persistent store. Both login paths resolve to the same user record when
// emails match, merging the provider set.
type AccountService struct {
	store          *store.Store
	passwordMinLen int
	now            func() time.Time
}

func NewAccountService(st *store.Store, passwordMinLen int) *AccountService {
	return &AccountService{
		store:          st,
		passwordMinLen: passwordMinLen,
		now:            time.Now,
	}
}

// RegisterLocal creates or updates the account keyed by the normalized
// email, stores the derived password hash and persists before returning.
func (s *AccountService) RegisterLocal(email, password, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if !plausibleEmail(email) {
		return nil, validationErrorf("invalid email address")
	}
	if len(password) < s.passwordMinLen {
		return nil, validationErrorf("password must be at least %d characters", s.passwordMinLen)
	}

	credential, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	name = models.NormalizeName(name)
	now := s.now().UTC()

	var user *models.User
	err = s.store.Update(func(db *store.Database) error {
		user = db.UserByEmail(email)
		if user == nil {
			displayName := name
			if displayName == "" {
				displayName = models.DeriveNameFromEmail(email)
			}
			user = &models.User{
				ID:        uuid.NewString(),
				Email:     email,
				Name:      displayName,
				CreatedAt: now,
			}
		} else if name != "" {
			user.Name = name
		}

		user.LocalAuth = credential
		user.AddProvider(models.ProviderLocal)
		user.LastLoginAt = now
		db.PutUser(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// LoginLocal verifies a local credential. Unknown email and wrong password
// produce the same client-visible error so accounts cannot be enumerated;
// the distinction is logged server-side only.
func (s *AccountService) LoginLocal(email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	var user *models.User
	s.store.View(func(db *store.Database) {
		user = db.UserByEmail(email)
	})

	if user == nil || user.LocalAuth == nil {
		// Same KDF cost as a real check, keeping both rejection paths
		// indistinguishable by timing.
		VerifyPassword(password, decoyCredential.Salt, decoyCredential.Hash)
		slog.Info("local login rejected", "reason", "no local credential", "email", email)
		return nil, &AuthError{Message: "invalid email or password"}
	}
	if !VerifyPassword(password, user.LocalAuth.Salt, user.LocalAuth.Hash) {
		slog.Info("local login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, &AuthError{Message: "invalid email or password"}
	}

	now := s.now().UTC()
	err := s.store.Update(func(db *store.Database) error {
		if u := db.Users[user.ID]; u != nil {
			u.LastLoginAt = now
			user = u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertFederated resolves the verified claims to a user record: by
// federated subject first, then by email, creating the account when neither
// matches. Provider tags are merged so an account can hold both local and
// google auth.
func (s *AccountService) UpsertFederated(claims *FederatedClaims) (*models.User, error) {
	if claims == nil || claims.Sub == "" || claims.Email == "" {
		return nil, &AuthError{Message: "google token is missing identity claims"}
	}
	if !claims.EmailVerified {
		return nil, &AuthError{Message: "google account email is not verified"}
	}

	email := models.NormalizeEmail(claims.Email)
	name := models.NormalizeName(claims.Name)
	picture := sanitizePictureURL(claims.Picture)
	now := s.now().UTC()

	var user *models.User
	err := s.store.Update(func(db *store.Database) error {
		user = db.UserByGoogleSub(claims.Sub)
		if user == nil {
			user = db.UserByEmail(email)
		}

		if user == nil {
			displayName := name
			if displayName == "" {
				displayName = models.DeriveNameFromEmail(email)
			}
			user = &models.User{
				ID:        uuid.NewString(),
				Email:     email,
				Name:      displayName,
				CreatedAt: now,
			}
		}

		user.GoogleSub = claims.Sub
		user.AddProvider(models.ProviderGoogle)
		if name != "" {
			user.Name = name
		}
		if picture != "" {
			user.Picture = picture
		}
		user.LastLoginAt = now
		db.PutUser(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserByID looks up a user record, returning nil when absent.
func (s *AccountService) UserByID(id string) *models.User {
	var user *models.User
	s.store.View(func(db *store.Database) {
		user = db.Users[id]
	})
	return user
}

// plausibleEmail is a light format check; full validation happens at the
// HTTP boundary. The store only needs the address to be indexable.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func sanitizePictureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}
