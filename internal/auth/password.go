package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"aniserve/internal/models"
)

// scrypt parameters. Changing these invalidates every stored credential, so
// they are fixed rather than configurable.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// decoyCredential is verified against when a login has no stored credential
// to check, so the unknown-email path pays the same KDF cost as a password
// mismatch and response timing cannot reveal whether the account exists.
var decoyCredential = func() *models.LocalCredential {
	c, err := HashPassword("decoy")
	if err != nil {
		panic(err)
	}
	return c
}()

// HashPassword derives a salted scrypt credential with a fresh random salt.
func HashPassword(password string) (*models.LocalCredential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating password salt: %w", err)
	}

	hash, err := hashWithSalt(password, salt)
	if err != nil {
		return nil, err
	}

	return &models.LocalCredential{
		Salt: hex.EncodeToString(salt),
		Hash: hash,
	}, nil
}

// VerifyPassword recomputes the hash for the stored salt and compares in
// constant time. Any malformed stored material verifies as false.
func VerifyPassword(password, saltHex, expectedHash string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	hash, err := hashWithSalt(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expectedHash)) == 1
}

func hashWithSalt(password string, salt []byte) (string, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("deriving password hash: %w", err)
	}
	return hex.EncodeToString(key), nil
}
