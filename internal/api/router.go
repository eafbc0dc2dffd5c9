package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"courier-market-service/internal/api/handlers"
	"courier-market-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root; handlers stay unaware of
// concrete adapters.
func NewRouter(
	lifecycle *services.PackageLifecycle,
	ledger *services.BidLedger,
	registry *services.RouteRegistry,
	matcher *services.Matcher,
	log *zap.SugaredLogger,
) http.Handler {
	pkgHandler := &handlers.PackageHandler{Lifecycle: lifecycle, Log: log}
	bidHandler := &handlers.BidHandler{Ledger: ledger, Log: log}
	routeHandler := &handlers.RouteHandler{Registry: registry, Matcher: matcher, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Route("/packages", func(r chi.Router) {
			r.Post("/", pkgHandler.Create)
			r.Get("/", pkgHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pkgHandler.Get)
				r.Post("/cancel", pkgHandler.Cancel)
				r.Post("/schedule-pickup", pkgHandler.SchedulePickup)
				r.Post("/confirm-pickup", pkgHandler.ConfirmPickup)
				r.Post("/delivered", pkgHandler.Delivered)
				r.Post("/failed", pkgHandler.Failed)
				r.Get("/bids", bidHandler.ListForPackage)
				r.Post("/bids", bidHandler.Place)
			})
		})
		r.Route("/bids/{id}", func(r chi.Router) {
			r.Post("/select", bidHandler.Select)
			r.Post("/withdraw", bidHandler.Withdraw)
		})
		r.Route("/routes", func(r chi.Router) {
			r.Post("/", routeHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", routeHandler.Get)
				r.Post("/deactivate", routeHandler.Deactivate)
				r.Get("/matches", routeHandler.Matches)
			})
		})
	})
	r.Get("/health", handlers.Health)

	return r
}
