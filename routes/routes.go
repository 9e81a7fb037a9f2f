package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/pyramid-ladder/docs"
	"github.com/Dosada05/pyramid-ladder/handlers"
	"github.com/Dosada05/pyramid-ladder/middleware"
	"github.com/Dosada05/pyramid-ladder/models"
)

// HealthCheck reports whether the service's dependencies are reachable.
type HealthCheck func(ctx context.Context) error

func SetupRoutes(
	router chi.Router,
	jwtSecret string,
	corsOrigins []string,
	health HealthCheck,
	pyramidHandler *handlers.PyramidHandler,
	matchHandler *handlers.MatchHandler,
	positionHandler *handlers.PositionHandler,
	teamHandler *handlers.TeamHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/ws/pyramids/{pyramidID}", webSocketHandler.ServeWs)

	router.Route("/pyramids", func(r chi.Router) {
		r.Get("/", pyramidHandler.ListPyramids)
		r.Get("/{pyramidID}", pyramidHandler.GetPyramidView)
		r.Get("/{pyramidID}/history", pyramidHandler.ListHistory)
		r.Get("/{pyramidID}/matches", matchHandler.ListMatches)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/{pyramidID}/challengeable", matchHandler.ChallengeableSlots)
			r.Post("/{pyramidID}/matches", matchHandler.CreateMatch)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", pyramidHandler.CreatePyramid)
			r.Patch("/{pyramidID}", pyramidHandler.UpdatePyramid)
			r.Put("/{pyramidID}/categories", pyramidHandler.SetCategories)
			r.Get("/{pyramidID}/eligible-teams", pyramidHandler.ListEligibleTeams)
			r.Post("/{pyramidID}/positions", positionHandler.SetTeamInPosition)
			r.Post("/{pyramidID}/positions/move", positionHandler.MoveTeamPosition)
			r.Post("/{pyramidID}/risky-sweep", pyramidHandler.SweepRiskyTeams)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatch)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/accept", matchHandler.AcceptMatch)
			r.Post("/{matchID}/reject", matchHandler.RejectMatch)
			r.Post("/{matchID}/cancel", matchHandler.CancelMatch)
			r.Post("/{matchID}/complete", matchHandler.CompleteMatch)
			r.Post("/{matchID}/evidence", matchHandler.UploadEvidence)
			r.Post("/{matchID}/notifications/viewed", notificationHandler.MarkMatchViewed)
		})
	})

	router.Route("/notifications", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", notificationHandler.ListNotifications)
		r.Post("/{notificationID}/viewed", notificationHandler.MarkViewed)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Delete("/positions/{positionID}", positionHandler.RemoveTeamFromPosition)
		r.Post("/teams", teamHandler.CreateTeam)
		r.Get("/teams/{teamID}", teamHandler.GetTeam)
		r.Delete("/teams/{teamID}", teamHandler.DeleteTeam)
	})
}
