package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"komunitas/pendataan/internal/auth"
	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/config"
	"komunitas/pendataan/internal/metrics"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/service"
)

type Deps struct {
	Submissions *service.Submissions
	Posts       *service.Posts
	Accounts    *service.Accounts
	Cache       cache.Cache
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	cfg         config.Config
	submissions *service.Submissions
	posts       *service.Posts
	accounts    *service.Accounts
	cache       cache.Cache
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
	ready       func(ctx context.Context) error
}

func NewServer(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:         cfg,
		submissions: deps.Submissions,
		posts:       deps.Posts,
		accounts:    deps.Accounts,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		gatherer:    gatherer,
		logger:      logger,
		ready:       deps.Ready,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

	r.Get("/form/schema", s.handleFormSchema)
	r.Get("/statistics", s.handleStatistics)
	r.Get("/posts", s.handleListPublishedPosts)
	r.Get("/posts/{slug}", s.handleGetPublishedPost)
	r.With(s.optionalAuth).Post("/submissions", s.handlePublicSubmit)

	r.Route("/me", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/form-status", s.handleFormStatus)
		r.Get("/submission", s.handleGetOwnSubmission)
		r.Put("/submission", s.handleSaveOwnSubmission)
		r.Post("/submission/finalize", s.handleFinalizeOwnSubmission)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireAdmin)
		r.Post("/validate", s.handleValidate)

		r.Get("/submissions", s.handleListSubmissions)
		r.Post("/submissions", s.handleCreateSubmission)
		r.Get("/submissions/{id}", s.handleGetSubmission)
		r.Put("/submissions/{id}", s.handleUpdateSubmission)
		r.Delete("/submissions/{id}", s.handleDeleteSubmission)
		r.Post("/submissions/{id}/status", s.handleTransitionSubmission)
		r.Post("/submissions/{id}/link", s.handleLinkSubmission)
		r.Get("/submissions/{id}/history", s.handleSubmissionHistory)

		r.Get("/posts", s.handleListPosts)
		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{id}", s.handleGetPost)
		r.Put("/posts/{id}", s.handleUpdatePost)
		r.Delete("/posts/{id}", s.handleDeletePost)
		r.Post("/posts/{id}/publish", s.handlePublishPost)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.Request(r.Method, route, strconv.Itoa(sw.status), elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed.Round(time.Millisecond).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth admits anonymous callers but still rejects a bad token.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		s.authMiddleware(next).ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func actorFromContext(ctx context.Context) *model.Actor {
	return claimsFromContext(ctx).Actor()
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeMutation echoes the invalidated partitions in a header as well as in
// the body.
func writeMutation(w http.ResponseWriter, status int, tags []cache.Tag, payload interface{}) {
	w.Header().Set("X-Cache-Invalidated", strings.Join(cache.Strings(tags), ","))
	writeJSON(w, status, payload)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
