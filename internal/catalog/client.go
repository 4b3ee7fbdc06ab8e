// Package catalog talks to the external anime catalog APIs (AniList
// GraphQL, Jikan REST) through the shared response cache.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"aniserve/internal/cache"
	"aniserve/internal/models"
)

const (
	poolCacheKey = "catalog:pool:v1"
	poolCacheTTL = 10 * time.Minute

	anilistProxyTTL = time.Minute
	jikanProxyTTL   = 5 * time.Minute

	poolSliceSize = 50
)

// UpstreamError marks a failed or malformed catalog/identity-provider
// response. Soft features degrade on it; hard features surface it.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

var jikanPathPattern = regexp.MustCompile(`^/[a-zA-Z0-9/_-]*$`)

// ErrBadJikanPath rejects proxy paths outside the allow-list.
var ErrBadJikanPath = &UpstreamError{Message: "invalid jikan path"}

type Client struct {
	anilistURL string
	jikanURL   string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewClient(anilistURL, jikanURL string, timeout time.Duration, c *cache.Cache) *Client {
	return &Client{
		anilistURL: anilistURL,
		jikanURL:   jikanURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
	}
}

// poolQuery fetches the three ranked slices merged into the recommendation
// pool. Slice order matters: dedup keeps the first occurrence, so trending
// entries win over popular, and popular over top-rated.
const poolQuery = `query {
  trending: Page(perPage: 50) {
    media(type: ANIME, sort: TRENDING_DESC) { ...poolMedia }
  }
  popular: Page(perPage: 50) {
    media(type: ANIME, sort: POPULARITY_DESC) { ...poolMedia }
  }
  top: Page(perPage: 50) {
    media(type: ANIME, sort: SCORE_DESC) { ...poolMedia }
  }
}
fragment poolMedia on Media {
  id
  idMal
  title { romaji english native }
  coverImage { extraLarge large }
  bannerImage
  status
  episodes
  averageScore
  seasonYear
  genres
}`

type poolMedia struct {
	ID    int `json:"id"`
	IDMal int `json:"idMal"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	CoverImage struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
	} `json:"coverImage"`
	BannerImage  string   `json:"bannerImage"`
	Status       string   `json:"status"`
	Episodes     int      `json:"episodes"`
	AverageScore int      `json:"averageScore"`
	SeasonYear   int      `json:"seasonYear"`
	Genres       []string `json:"genres"`
}

type poolResponse struct {
	Data struct {
		Trending struct {
			Media []poolMedia `json:"media"`
		} `json:"trending"`
		Popular struct {
			Media []poolMedia `json:"media"`
		} `json:"popular"`
		Top struct {
			Media []poolMedia `json:"media"`
		} `json:"top"`
	} `json:"data"`
}

// FetchPool returns the deduplicated catalog snapshot used by the
// recommendation engine, cached for ten minutes.
func (c *Client) FetchPool(ctx context.Context) ([]models.CatalogItem, error) {
	if cached := c.cache.Get(poolCacheKey); cached != nil {
		if pool, ok := cached.([]models.CatalogItem); ok {
			return pool, nil
		}
	}

	raw, err := c.graphql(ctx, poolQuery, nil)
	if err != nil {
		return nil, err
	}

	var parsed poolResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("malformed anilist payload: %v", err)}
	}

	seen := make(map[int]struct{})
	var pool []models.CatalogItem
	for _, slice := range [][]poolMedia{parsed.Data.Trending.Media, parsed.Data.Popular.Media, parsed.Data.Top.Media} {
		for _, m := range slice {
			if m.ID <= 0 {
				continue
			}
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			pool = append(pool, toCatalogItem(m))
		}
	}
	if len(pool) == 0 {
		return nil, &UpstreamError{Message: "anilist returned an empty pool"}
	}

	c.cache.Set(poolCacheKey, pool, poolCacheTTL)
	return pool, nil
}

// Query proxies an arbitrary GraphQL request, caching successful responses
// briefly. The second return reports a cache hit.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, bool, error) {
	keyPayload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, false, fmt.Errorf("encoding anilist cache key: %w", err)
	}
	cacheKey := "anilist:" + string(keyPayload)

	if cached := c.cache.Get(cacheKey); cached != nil {
		if raw, ok := cached.(json.RawMessage); ok {
			return raw, true, nil
		}
	}

	raw, err := c.graphql(ctx, query, variables)
	if err != nil {
		return nil, false, err
	}

	c.cache.Set(cacheKey, raw, anilistProxyTTL)
	return raw, false, nil
}

// JikanGet proxies a GET against the Jikan REST API. The path is restricted
// to an allow-list pattern to keep the proxy from being an open relay.
func (c *Client) JikanGet(ctx context.Context, path string, query url.Values) (json.RawMessage, bool, error) {
	if path == "" || !jikanPathPattern.MatchString(path) {
		return nil, false, ErrBadJikanPath
	}

	target, err := url.Parse(c.jikanURL + path)
	if err != nil {
		return nil, false, &UpstreamError{Message: "invalid jikan path"}
	}
	target.RawQuery = query.Encode()
	cacheKey := "jikan:" + target.String()

	if cached := c.cache.Get(cacheKey); cached != nil {
		if raw, ok := cached.(json.RawMessage); ok {
			return raw, true, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("building jikan request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req, "jikan")
	if err != nil {
		return nil, false, err
	}

	c.cache.Set(cacheKey, raw, jikanProxyTTL)
	return raw, false, nil
}

func (c *Client) graphql(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("encoding anilist request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.anilistURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building anilist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, "anilist")
}

func (c *Client) do(req *http.Request, upstream string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("%s request failed: %v", upstream, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("reading %s response: %v", upstream, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("%s responded with an error", upstream)}
	}
	if !json.Valid(data) {
		return nil, &UpstreamError{Message: fmt.Sprintf("malformed %s payload", upstream)}
	}
	return json.RawMessage(data), nil
}

func toCatalogItem(m poolMedia) models.CatalogItem {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	if title == "" {
		title = m.Title.Native
	}

	cover := m.CoverImage.ExtraLarge
	if cover == "" {
		cover = m.CoverImage.Large
	}

	return models.CatalogItem{
		ID:           m.ID,
		IDMal:        m.IDMal,
		Title:        models.SanitizeText(title),
		Cover:        cover,
		Banner:       m.BannerImage,
		Status:       m.Status,
		Episodes:     m.Episodes,
		AverageScore: m.AverageScore,
		SeasonYear:   m.SeasonYear,
		Genres:       m.Genres,
	}
}
