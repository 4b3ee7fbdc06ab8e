// Package profile implements per-user favorites, pending and watch-history
// lists over the persistent store.
package profile

import (
	"errors"
	"time"

	"aniserve/internal/models"
	"aniserve/internal/store"
)

// ErrUnknownList is returned for a toggle against a list name other than
// favorites or pending.
var ErrUnknownList = errors.New("unknown list name")

type Service struct {
	store *store.Store
	now   func() time.Time
}

func NewService(st *store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Get returns a copy of the user's profile, or an empty profile if none
// exists yet. Reading never creates persistent state.
func (s *Service) Get(userID string) *models.Profile {
	var p *models.Profile
	s.store.View(func(db *store.Database) {
		if existing, ok := db.Profiles[userID]; ok {
			p = copyProfile(existing)
		}
	})
	if p == nil {
		now := s.now().UTC()
		p = &models.Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	return p
}

// ToggleList flips membership of the sanitized reference in the named list.
// An entry with the same animeId is removed; otherwise the reference is
// inserted at the front with a savedAt timestamp and the list truncated to
// its cap. Returns whether the entry was added.
func (s *Service) ToggleList(userID, listName string, ref models.AnimeRef) (bool, error) {
	if !models.ValidListName(listName) {
		return false, ErrUnknownList
	}
	clean, err := models.SanitizeAnimeRef(ref)
	if err != nil {
		return false, err
	}

	added := false
	err = s.store.Update(func(db *store.Database) error {
		p := ensureProfile(db, userID, s.now().UTC())

		list := p.Favorites
		if listName == models.ListPending {
			list = p.Pending
		}

		filtered, removed := removeRef(list, clean.AnimeID)
		if removed {
			added = false
		} else {
			clean.SavedAt = s.now().UTC()
			filtered = append([]models.AnimeRef{clean}, filtered...)
			if len(filtered) > models.MaxListEntries {
				filtered = filtered[:models.MaxListEntries]
			}
			added = true
		}

		if listName == models.ListPending {
			p.Pending = filtered
		} else {
			p.Favorites = filtered
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// UpsertHistory records watch progress. Any existing entry for the same
// animeId is replaced and the entry moves to the front, so the list orders
// by recency rather than episode number.
func (s *Service) UpsertHistory(userID string, entry models.HistoryEntry) error {
	clean, err := models.SanitizeHistoryEntry(entry)
	if err != nil {
		return err
	}

	return s.store.Update(func(db *store.Database) error {
		now := s.now().UTC()
		p := ensureProfile(db, userID, now)

		clean.UpdatedAt = now
		history := make([]models.HistoryEntry, 0, len(p.History)+1)
		history = append(history, clean)
		for _, e := range p.History {
			if e.AnimeID != clean.AnimeID {
				history = append(history, e)
			}
		}
		if len(history) > models.MaxHistoryEntries {
			history = history[:models.MaxHistoryEntries]
		}

		p.History = history
		p.UpdatedAt = now
		return nil
	})
}

// RemoveHistory deletes the entry for animeID, reporting whether a removal
// occurred.
func (s *Service) RemoveHistory(userID string, animeID int) (bool, error) {
	removed := false
	err := s.store.Update(func(db *store.Database) error {
		now := s.now().UTC()
		p := ensureProfile(db, userID, now)

		history := p.History[:0]
		for _, e := range p.History {
			if e.AnimeID == animeID {
				removed = true
				continue
			}
			history = append(history, e)
		}
		p.History = history
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ClearHistory empties the history list unconditionally.
func (s *Service) ClearHistory(userID string) error {
	return s.store.Update(func(db *store.Database) error {
		now := s.now().UTC()
		p := ensureProfile(db, userID, now)
		p.History = nil
		p.UpdatedAt = now
		return nil
	})
}

func ensureProfile(db *store.Database, userID string, now time.Time) *models.Profile {
	if p, ok := db.Profiles[userID]; ok {
		return p
	}
	p := &models.Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	db.Profiles[userID] = p
	return p
}

func removeRef(list []models.AnimeRef, animeID int) ([]models.AnimeRef, bool) {
	removed := false
	out := make([]models.AnimeRef, 0, len(list))
	for _, e := range list {
		if e.AnimeID == animeID {
			removed = true
			continue
		}
		out = append(out, e)
	}
	return out, removed
}

func copyProfile(p *models.Profile) *models.Profile {
	out := *p
	out.Favorites = append([]models.AnimeRef(nil), p.Favorites...)
	out.Pending = append([]models.AnimeRef(nil), p.Pending...)
	out.History = append([]models.HistoryEntry(nil), p.History...)
	return &out
}
