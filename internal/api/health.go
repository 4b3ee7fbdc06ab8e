package api

import (
	"net/http"
	"time"

	"aniserve/internal/cache"
)

type HealthHandler struct {
	cache *cache.Cache
}

func NewHealthHandler(c *cache.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// GET /api/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"cacheItems": h.cache.Len(),
		"now":        time.Now().UTC().Format(time.RFC3339),
	})
}
