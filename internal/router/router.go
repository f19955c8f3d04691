package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"trivia-backend/internal/handlers"
	"trivia-backend/internal/middleware"
	"trivia-backend/internal/websocket"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	scoreHandler *handlers.ScoreHandler,
	sessionHandler *handlers.SessionHandler,
	profileHandler *handlers.ProfileHandler,
	questionHandler *handlers.QuestionHandler,
	userHandler *handlers.UserHandler,
	wsHub *websocket.Hub,
	allowedOrigins []string,
	health HealthCheck,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(allowedOrigins))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Score submissions (30 req/min per player)
	scoreLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.GoogleLogin)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Leaderboard (identity optional) ────
		r.Route("/scores", func(r chi.Router) {
			r.Use(jwtAuth.Identity)
			r.Get("/", scoreHandler.Top)
			r.With(scoreLimiter.Middleware).Post("/", scoreHandler.Submit)
		})

		// ──── Quiz Sessions (member or guest) ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Identity)
			r.Use(middleware.RequireIdentity)
			r.Post("/", sessionHandler.Start)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/answer", sessionHandler.Answer)
			r.Post("/{id}/advance", sessionHandler.Advance)
			r.Post("/{id}/hint", sessionHandler.Hint)
			r.Post("/{id}/pause", sessionHandler.Pause)
			r.Post("/{id}/resume", sessionHandler.Resume)
			r.Delete("/{id}", sessionHandler.Abandon)
		})

		// ──── Profile (member or guest) ────
		r.Route("/profile", func(r chi.Router) {
			r.Use(jwtAuth.Identity)
			r.Use(middleware.RequireIdentity)
			r.Get("/", profileHandler.Get)
			r.Put("/preferences", profileHandler.UpdatePreferences)
			r.Get("/progress/{sport}", profileHandler.Progress)
			r.Get("/achievements", profileHandler.Achievements)
			r.Get("/achievements/recent", profileHandler.RecentAchievements)
			r.Post("/achievements/reset", profileHandler.ResetAchievements)
		})

		// ──── Question Catalog ────
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.List) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/generate", questionHandler.Generate)
			})
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", questionHandler.GetJob)
		})

		// ──── User & Settings Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/notifications", userHandler.GetNotifications)
			r.Put("/notifications", userHandler.UpdateNotifications)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
