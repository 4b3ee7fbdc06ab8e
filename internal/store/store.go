// Package store persists all user and profile state as a single JSON
// document, rewritten atomically on every mutation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aniserve/internal/models"
)

// Database is the full persisted document. The indexes are maintained by
// PutUser and always map to a key present in Users.
type Database struct {
	Users       map[string]*models.User    `json:"users"`
	EmailIndex  map[string]string          `json:"emailIndex"`
	GoogleIndex map[string]string          `json:"googleIndex"`
	Profiles    map[string]*models.Profile `json:"profiles"`
}

func newDatabase() *Database {
	return &Database{
		Users:       make(map[string]*models.User),
		EmailIndex:  make(map[string]string),
		GoogleIndex: make(map[string]string),
		Profiles:    make(map[string]*models.Profile),
	}
}

// UserByEmail resolves a user through the email index.
func (db *Database) UserByEmail(email string) *models.User {
	id, ok := db.EmailIndex[models.NormalizeEmail(email)]
	if !ok {
		return nil
	}
	return db.Users[id]
}

// UserByGoogleSub resolves a user through the federated-subject index.
func (db *Database) UserByGoogleSub(sub string) *models.User {
	id, ok := db.GoogleIndex[sub]
	if !ok {
		return nil
	}
	return db.Users[id]
}

// PutUser inserts or updates a user and keeps both indexes consistent.
func (db *Database) PutUser(user *models.User) {
	db.Users[user.ID] = user
	db.EmailIndex[models.NormalizeEmail(user.Email)] = user.ID
	if user.GoogleSub != "" {
		db.GoogleIndex[user.GoogleSub] = user.ID
	}
}

// Store owns the in-memory Database and its on-disk JSON document. All
// access goes through View/Update; Update flushes synchronously before
// returning so sequential requests observe each other's writes.
type Store struct {
	path string

	mu sync.Mutex
	db *Database
}

// Open loads the document at path, creating a fresh one if the file is
// absent. A file that fails to parse is backed up rather than silently
// discarded, and startup continues with an empty document.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.db = newDatabase()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}

	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("backing up corrupt store file: %w", renameErr)
		}
		slog.Error("store file is corrupt, starting fresh", "path", path, "backup", backup, "error", err)
		s.db = newDatabase()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if db.Users == nil {
		db.Users = make(map[string]*models.User)
	}
	if db.EmailIndex == nil {
		db.EmailIndex = make(map[string]string)
	}
	if db.GoogleIndex == nil {
		db.GoogleIndex = make(map[string]string)
	}
	if db.Profiles == nil {
		db.Profiles = make(map[string]*models.Profile)
	}

	s.db = &db
	return s, nil
}

// View runs fn with shared read access to the document. fn must not retain
// references past its return.
func (s *Store) View(fn func(db *Database)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.db)
}

// Update runs fn and, if it succeeds, flushes the document to disk before
// returning. A failed fn leaves the file untouched; note the in-memory
// document has no rollback, so fn must validate before mutating.
func (s *Store) Update(fn func(db *Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.db); err != nil {
		return err
	}
	return s.save()
}

// save writes the document to a temp file in the same directory and renames
// it over the target, so a crash mid-write never exposes a partial file.
// Caller must hold mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}
