package models

import "time"

const (
	ListFavorites = "favorites"
	ListPending   = "pending"

	MaxListEntries    = 200
	MaxHistoryEntries = 300
)

// Profile holds one user's lists. All three are ordered most-recent-first.
type Profile struct {
	UserID    string         `json:"userId"`
	Favorites []AnimeRef     `json:"favorites"`
	Pending   []AnimeRef     `json:"pending"`
	History   []HistoryEntry `json:"history"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ValidListName reports whether name is one of the toggleable lists.
func ValidListName(name string) bool {
	return name == ListFavorites || name == ListPending
}

// KnownAnimeIDs returns the union of anime ids across history, favorites
// and pending. The recommendation engine excludes these from its results.
func (p *Profile) KnownAnimeIDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(p.History)+len(p.Favorites)+len(p.Pending))
	for _, e := range p.History {
		ids[e.AnimeID] = struct{}{}
	}
	for _, e := range p.Favorites {
		ids[e.AnimeID] = struct{}{}
	}
	for _, e := range p.Pending {
		ids[e.AnimeID] = struct{}{}
	}
	return ids
}
