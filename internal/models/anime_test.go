package models

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeAnimeRefRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		in      AnimeRef
		wantErr error
	}{
		{name: "zero_id", in: AnimeRef{Title: "Foo"}, wantErr: ErrMissingAnimeID},
		{name: "negative_id", in: AnimeRef{AnimeID: -3, Title: "Foo"}, wantErr: ErrMissingAnimeID},
		{name: "empty_title", in: AnimeRef{AnimeID: 1}, wantErr: ErrMissingTitle},
		{name: "markup_only_title", in: AnimeRef{AnimeID: 1, Title: "<b></b>"}, wantErr: ErrMissingTitle},
		{name: "whitespace_title", in: AnimeRef{AnimeID: 1, Title: "   "}, wantErr: ErrMissingTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeAnimeRef(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SanitizeAnimeRef() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeAnimeRefStripsMarkup(t *testing.T) {
	got, err := SanitizeAnimeRef(AnimeRef{
		AnimeID: 7,
		Title:   " <b>Cowboy</b>   Bebop <script>alert(1)</script> ",
	})
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}
	if got.Title != "Cowboy Bebop" {
		t.Fatalf("title = %q, want %q", got.Title, "Cowboy Bebop")
	}
}

func TestSanitizeAnimeRefCapsTitleLength(t *testing.T) {
	got, err := SanitizeAnimeRef(AnimeRef{
		AnimeID: 7,
		Title:   strings.Repeat("a", MaxTitleLen+50),
	})
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}
	if utf8.RuneCountInString(got.Title) > MaxTitleLen {
		t.Fatalf("title length = %d runes, cap is %d", utf8.RuneCountInString(got.Title), MaxTitleLen)
	}
}

func TestSanitizeAnimeRefCapsMultibyteTitleAtRuneBoundary(t *testing.T) {
	got, err := SanitizeAnimeRef(AnimeRef{
		AnimeID: 7,
		Title:   strings.Repeat("進撃の巨人", 80),
	})
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}
	if !utf8.ValidString(got.Title) {
		t.Fatalf("title %q is not valid UTF-8 after capping", got.Title)
	}
	if utf8.RuneCountInString(got.Title) != MaxTitleLen {
		t.Fatalf("title length = %d runes, want %d", utf8.RuneCountInString(got.Title), MaxTitleLen)
	}
}

func TestSanitizeAnimeRefURLs(t *testing.T) {
	tests := []struct {
		name  string
		cover string
		want  string
	}{
		{name: "https_kept", cover: "https://img.example.com/a.jpg", want: "https://img.example.com/a.jpg"},
		{name: "http_kept", cover: "http://img.example.com/a.jpg", want: "http://img.example.com/a.jpg"},
		{name: "javascript_dropped", cover: "javascript:alert(1)", want: ""},
		{name: "data_dropped", cover: "data:text/html,x", want: ""},
		{name: "relative_dropped", cover: "/img/a.jpg", want: ""},
		{name: "empty", cover: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeAnimeRef(AnimeRef{AnimeID: 1, Title: "Foo", Cover: tt.cover})
			if err != nil {
				t.Fatalf("SanitizeAnimeRef() error = %v", err)
			}
			if got.Cover != tt.want {
				t.Fatalf("cover = %q, want %q", got.Cover, tt.want)
			}
		})
	}
}

func TestSanitizeAnimeRefClampsNumbers(t *testing.T) {
	got, err := SanitizeAnimeRef(AnimeRef{
		AnimeID:    1,
		Title:      "Foo",
		Score:      150,
		Episodes:   -4,
		SeasonYear: -1,
		IDMal:      -9,
	})
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}
	if got.Score != 100 {
		t.Fatalf("score = %d, want clamped to 100", got.Score)
	}
	if got.Episodes != 0 || got.SeasonYear != 0 {
		t.Fatalf("episodes/seasonYear = %d/%d, want 0/0", got.Episodes, got.SeasonYear)
	}
	if got.IDMal != 0 {
		t.Fatalf("idMal = %d, want negative value dropped", got.IDMal)
	}
}

func TestSanitizeAnimeRefGenres(t *testing.T) {
	in := AnimeRef{AnimeID: 1, Title: "Foo", Genres: []string{
		"Action", "action ", "Action", "", "<i>Drama</i>",
	}}
	got, err := SanitizeAnimeRef(in)
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}

	want := []string{"Action", "action", "Drama"}
	if len(got.Genres) != len(want) {
		t.Fatalf("genres = %v, want %v", got.Genres, want)
	}
	for i := range want {
		if got.Genres[i] != want[i] {
			t.Fatalf("genres = %v, want %v", got.Genres, want)
		}
	}
}

func TestSanitizeAnimeRefGenreCap(t *testing.T) {
	var genres []string
	for i := 0; i < MaxGenres+8; i++ {
		genres = append(genres, strings.Repeat("g", 3)+string(rune('a'+i)))
	}
	got, err := SanitizeAnimeRef(AnimeRef{AnimeID: 1, Title: "Foo", Genres: genres})
	if err != nil {
		t.Fatalf("SanitizeAnimeRef() error = %v", err)
	}
	if len(got.Genres) != MaxGenres {
		t.Fatalf("genres length = %d, cap is %d", len(got.Genres), MaxGenres)
	}
}

func TestSanitizeHistoryEntry(t *testing.T) {
	got, err := SanitizeHistoryEntry(HistoryEntry{
		AnimeRef:      AnimeRef{AnimeID: 5, Title: "Foo"},
		EpisodeNumber: 0,
		EpisodeTitle:  "<b>The</b> One",
		TotalEpisodes: -2,
	})
	if err != nil {
		t.Fatalf("SanitizeHistoryEntry() error = %v", err)
	}
	if got.EpisodeNumber != 1 {
		t.Fatalf("episodeNumber = %d, want default 1", got.EpisodeNumber)
	}
	if got.EpisodeTitle != "The One" {
		t.Fatalf("episodeTitle = %q, want markup stripped", got.EpisodeTitle)
	}
	if got.TotalEpisodes != 0 {
		t.Fatalf("totalEpisodes = %d, want 0", got.TotalEpisodes)
	}
}

func TestSanitizeHistoryEntryPropagatesRefErrors(t *testing.T) {
	_, err := SanitizeHistoryEntry(HistoryEntry{AnimeRef: AnimeRef{Title: "Foo"}})
	if !errors.Is(err, ErrMissingAnimeID) {
		t.Fatalf("SanitizeHistoryEntry() error = %v, want ErrMissingAnimeID", err)
	}
}

func TestSanitizeTextUnescapesEntities(t *testing.T) {
	if got := SanitizeText("Fullmetal &amp; Alchemist"); got != "Fullmetal & Alchemist" {
		t.Fatalf("SanitizeText() = %q", got)
	}
}
