package api

import (
	"net/http"
	"strconv"

	"aniserve/internal/models"
	"aniserve/internal/profile"
	"aniserve/internal/recommend"
)

type ProfileHandler struct {
	profiles *profile.Service
	engine   *recommend.Engine
}

func NewProfileHandler(profiles *profile.Service, engine *recommend.Engine) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, engine: engine}
}

type profileResponse struct {
	History   []models.HistoryEntry `json:"history"`
	Favorites []models.AnimeRef     `json:"favorites"`
	Pending   []models.AnimeRef     `json:"pending"`
	Stats     profileStats          `json:"stats"`
}

// GET /api/profile/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	p := h.profiles.Get(session.UserID)
	writeJSON(w, http.StatusOK, profileResponse{
		History:   emptyIfNilHistory(p.History),
		Favorites: emptyIfNilRefs(p.Favorites),
		Pending:   emptyIfNilRefs(p.Pending),
		Stats: profileStats{
			History:   len(p.History),
			Favorites: len(p.Favorites),
			Pending:   len(p.Pending),
		},
	})
}

type toggleListRequest struct {
	List  string          `json:"list" validate:"required"`
	Anime models.AnimeRef `json:"anime" validate:"required"`
}

// POST /api/profile/list/toggle
func (h *ProfileHandler) ToggleList(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	var req toggleListRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	added, err := h.profiles.ToggleList(session.UserID, req.List, req.Anime)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

type upsertHistoryRequest struct {
	Anime         models.AnimeRef `json:"anime" validate:"required"`
	EpisodeNumber int             `json:"episodeNumber" validate:"omitempty,min=1"`
	EpisodeTitle  string          `json:"episodeTitle" validate:"omitempty,max=160"`
	TotalEpisodes int             `json:"totalEpisodes" validate:"omitempty,min=0"`
}

// POST /api/profile/history/upsert
func (h *ProfileHandler) UpsertHistory(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	var req upsertHistoryRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	entry := models.HistoryEntry{
		AnimeRef:      req.Anime,
		EpisodeNumber: req.EpisodeNumber,
		EpisodeTitle:  req.EpisodeTitle,
		TotalEpisodes: req.TotalEpisodes,
	}
	if err := h.profiles.UpsertHistory(session.UserID, entry); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type removeHistoryRequest struct {
	AnimeID int `json:"animeId" validate:"required,gt=0"`
}

// POST /api/profile/history/remove
func (h *ProfileHandler) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	var req removeHistoryRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	removed, err := h.profiles.RemoveHistory(session.UserID, req.AnimeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// POST /api/profile/history/clear
func (h *ProfileHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	if err := h.profiles.ClearHistory(session.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/profile/recommendations
func (h *ProfileHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r)
	if session == nil {
		unauthorized(w, "authentication required")
		return
	}

	limit := recommend.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	p := h.profiles.Get(session.UserID)
	items := h.engine.Recommend(r.Context(), p, limit)
	if items == nil {
		items = []models.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func emptyIfNilRefs(list []models.AnimeRef) []models.AnimeRef {
	if list == nil {
		return []models.AnimeRef{}
	}
	return list
}

func emptyIfNilHistory(list []models.HistoryEntry) []models.HistoryEntry {
	if list == nil {
		return []models.HistoryEntry{}
	}
	return list
}
