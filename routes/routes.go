package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/tournament-engine/docs"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

const requestTimeout = 30 * time.Second

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// SubmitLimiter throttles result submissions and evidence uploads. Nil disables throttling.
	SubmitLimiter *middleware.RateLimiter
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket без таймаута: соединение живёт долго.
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	authenticate := middleware.Authenticate(opts.JWTSecret)
	throttle := func(next http.Handler) http.Handler { return next }
	if opts.SubmitLimiter != nil {
		throttle = opts.SubmitLimiter.Middleware
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))

		r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
			// Публичные маршруты для просмотра
			r.Get("/stage", tournamentHandler.GetStageStatus)
			r.Get("/bracket", tournamentHandler.GetBracket)
			r.Get("/groups", tournamentHandler.GetGroupStandings)
			r.Get("/playoff", tournamentHandler.ListPlayoffMatches)
			r.Get("/schedule", tournamentHandler.ListSchedule)

			// Управление стадиями только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/stage", tournamentHandler.GenerateStage)
				r.Post("/advance", tournamentHandler.AdvanceLadder)
			})
		})

		r.Get("/teams/{teamID}/eligibility", tournamentHandler.CheckTeamEligibility)

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", matchHandler.GetMatch)

			r.Group(func(r chi.Router) {
				r.Use(throttle)
				r.Post("/result", matchHandler.SubmitResult)
				r.Post("/evidence", matchHandler.UploadEvidence)
			})

			r.With(middleware.RequireRole(models.RoleAdmin)).Post("/resolve", matchHandler.ResolveContested)
		})
	})
}
