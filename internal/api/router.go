package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"aniserve/internal/auth"
	"aniserve/internal/cache"
	"aniserve/internal/catalog"
	"aniserve/internal/config"
	"aniserve/internal/profile"
	"aniserve/internal/recommend"
)

type Server struct {
	router *chi.Mux
}

func NewServer(
	cfg *config.Config,
	sessions *auth.SessionManager,
	accounts *auth.AccountService,
	profiles *profile.Service,
	engine *recommend.Engine,
	catalogClient *catalog.Client,
	responseCache *cache.Cache,
	verifier auth.TokenVerifier,
) *Server {
	authHandler := NewAuthHandler(
		accounts,
		sessions,
		profiles,
		verifier,
		cfg.Auth.Google.ClientID,
		cfg.Auth.PasswordMinLen,
		cfg.Auth.SecureCookies,
	)
	profileHandler := NewProfileHandler(profiles, engine)
	proxyHandler := NewProxyHandler(catalogClient)
	healthHandler := NewHealthHandler(responseCache)

	sessionMiddleware := NewSessionMiddleware(sessions, cfg.Auth.SecureCookies)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/api/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

		r.Get("/config", authHandler.GetConfig)

		r.Route("/auth", func(r chi.Router) {
			loginLimiter := httprate.LimitByIP(10, time.Minute)

			r.Get("/session", authHandler.GetSession)
			r.With(loginLimiter).Post("/register", authHandler.Register)
			r.With(loginLimiter).Post("/login", authHandler.Login)
			r.With(loginLimiter).Post("/google", authHandler.GoogleLogin)

			r.Group(func(r chi.Router) {
				r.Use(sessionMiddleware.RequireSession)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(sessionMiddleware.RequireSession)
			r.Get("/me", profileHandler.GetMe)
			r.Post("/list/toggle", profileHandler.ToggleList)
			r.Post("/history/upsert", profileHandler.UpsertHistory)
			r.Post("/history/remove", profileHandler.RemoveHistory)
			r.Post("/history/clear", profileHandler.ClearHistory)
			r.Get("/recommendations", profileHandler.Recommendations)
		})

		r.Post("/anilist", proxyHandler.AniList)
		r.Get("/jikan/*", proxyHandler.Jikan)
	})

	return &Server{router: r}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
