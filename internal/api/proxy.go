package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"aniserve/internal/catalog"
)

// ProxyHandler forwards catalog requests for the front end, serving cached
// upstream responses where possible.
type ProxyHandler struct {
	catalog *catalog.Client
}

func NewProxyHandler(c *catalog.Client) *ProxyHandler {
	return &ProxyHandler{catalog: c}
}

type anilistProxyRequest struct {
	Query     string         `json:"query" validate:"required"`
	Variables map[string]any `json:"variables"`
}

// POST /api/anilist
func (h *ProxyHandler) AniList(w http.ResponseWriter, r *http.Request) {
	var req anilistProxyRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(w, "query is required")
		return
	}

	raw, hit, err := h.catalog.Query(r.Context(), req.Query, req.Variables)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	setProxyCacheHeader(w, hit)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// GET /api/jikan/*
func (h *ProxyHandler) Jikan(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	path := "/" + strings.Trim(rest, "/")

	raw, hit, err := h.catalog.JikanGet(r.Context(), path, r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	setProxyCacheHeader(w, hit)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func setProxyCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Proxy-Cache", "HIT")
	} else {
		w.Header().Set("X-Proxy-Cache", "MISS")
	}
}
