package models

import (
	"errors"
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxTitleLen = 160
	MaxGenres   = 12

	// StatusReleasing is the catalog status of a currently airing show.
	StatusReleasing = "RELEASING"
)

var (
	ErrMissingAnimeID = errors.New("animeId is required and must be positive")
	ErrMissingTitle   = errors.New("title is required")
)

// Catalog titles arrive from third-party APIs and may carry markup.
var textPolicy = bluemonday.StrictPolicy()

// AnimeRef is a sanitized reference to an external-catalog item, as stored
// in a user's favorites/pending lists. SavedAt is set when the entry is
// inserted into a list.
type AnimeRef struct {
	AnimeID    int       `json:"animeId"`
	IDMal      int       `json:"idMal,omitempty"`
	Title      string    `json:"title"`
	Cover      string    `json:"cover,omitempty"`
	Banner     string    `json:"banner,omitempty"`
	Status     string    `json:"status,omitempty"`
	Episodes   int       `json:"episodes,omitempty"`
	Score      int       `json:"score,omitempty"`
	SeasonYear int       `json:"seasonYear,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	SavedAt    time.Time `json:"savedAt,omitempty"`
}

// HistoryEntry is an AnimeRef plus watch progress, one per anime in the
// continue-watching list.
type HistoryEntry struct {
	AnimeRef
	EpisodeNumber int       `json:"episodeNumber"`
	EpisodeTitle  string    `json:"episodeTitle,omitempty"`
	TotalEpisodes int       `json:"totalEpisodes,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CatalogItem is one entry of the external catalog pool ranked by the
// recommendation engine.
type CatalogItem struct {
	ID           int      `json:"id"`
	IDMal        int      `json:"idMal,omitempty"`
	Title        string   `json:"title"`
	Cover        string   `json:"cover,omitempty"`
	Banner       string   `json:"banner,omitempty"`
	Status       string   `json:"status,omitempty"`
	Episodes     int      `json:"episodes,omitempty"`
	AverageScore int      `json:"averageScore,omitempty"`
	SeasonYear   int      `json:"seasonYear,omitempty"`
	Genres       []string `json:"genres,omitempty"`
}

// SanitizeAnimeRef validates and normalizes an externally supplied
// reference. A reference missing its required fields is rejected wholesale;
// optional fields failing validation are dropped, never partially saved.
func SanitizeAnimeRef(in AnimeRef) (AnimeRef, error) {
	out := AnimeRef{
		AnimeID:    in.AnimeID,
		Status:     SanitizeText(in.Status),
		Episodes:   clampNonNegative(in.Episodes),
		Score:      clampScore(in.Score),
		SeasonYear: clampNonNegative(in.SeasonYear),
	}

	if out.AnimeID <= 0 {
		return AnimeRef{}, ErrMissingAnimeID
	}
	if in.IDMal > 0 {
		out.IDMal = in.IDMal
	}

	out.Title = capLength(SanitizeText(in.Title), MaxTitleLen)
	if out.Title == "" {
		return AnimeRef{}, ErrMissingTitle
	}

	out.Cover = sanitizeURL(in.Cover)
	out.Banner = sanitizeURL(in.Banner)
	out.Genres = dedupeGenres(in.Genres)

	return out, nil
}

// SanitizeHistoryEntry validates a watch-progress entry. The embedded
// AnimeRef must pass SanitizeAnimeRef; episode numbers below 1 default to 1.
func SanitizeHistoryEntry(in HistoryEntry) (HistoryEntry, error) {
	ref, err := SanitizeAnimeRef(in.AnimeRef)
	if err != nil {
		return HistoryEntry{}, err
	}

	out := HistoryEntry{
		AnimeRef:      ref,
		EpisodeNumber: in.EpisodeNumber,
		EpisodeTitle:  capLength(SanitizeText(in.EpisodeTitle), MaxTitleLen),
		TotalEpisodes: clampNonNegative(in.TotalEpisodes),
	}
	if out.EpisodeNumber < 1 {
		out.EpisodeNumber = 1
	}
	return out, nil
}

// SanitizeText strips markup and collapses whitespace in externally
// supplied text.
func SanitizeText(text string) string {
	cleaned := html.UnescapeString(textPolicy.Sanitize(text))
	return strings.Join(strings.Fields(cleaned), " ")
}

func sanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func dedupeGenres(genres []string) []string {
	if len(genres) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = capLength(SanitizeText(g), 40)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
		if len(out) >= MaxGenres {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// capLength truncates to max runes, never mid-rune, so CJK titles stay
// valid UTF-8.
func capLength(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
