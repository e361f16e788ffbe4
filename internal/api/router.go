package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openmast/helmsman/internal/config"
	"github.com/openmast/helmsman/internal/navigation"
	"github.com/openmast/helmsman/internal/simulation"
	"github.com/openmast/helmsman/internal/storage/sqlite"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

// NewRouter creates the HTTP router with all API routes registered
func NewRouter(
	routeStorage *sqlite.RouteStorage,
	navService *navigation.Service,
	simService *simulation.Service,
	cfg *config.Config,
	log *logger.Logger,
	wsServer *websocket.Server,
) chi.Router {
	h := NewHandler(routeStorage, navService, simService, cfg, log, wsServer)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.CORSAllowedOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/routes", func(r chi.Router) {
			r.Get("/", h.ListRoutes)
			r.Post("/", h.CreateRoute)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRoute)
				r.Put("/", h.UpdateRoute)
				r.Delete("/", h.DeleteRoute)
				r.Get("/validation", h.ValidateRoute)
				r.Post("/reorder", h.ReorderRoutePoints)
				r.Post("/reverse", h.ReverseRoute)
				r.Route("/points", func(r chi.Router) {
					r.Post("/", h.AddRoutePoint)
					r.Put("/{pointID}", h.UpdateRoutePoint)
					r.Delete("/{pointID}", h.RemoveRoutePoint)
				})
			})
		})

		r.Route("/navigation", func(r chi.Router) {
			r.Get("/", h.GetNavigation)
			r.Post("/start", h.StartNavigation)
			r.Post("/stop", h.StopNavigation)
			r.Post("/advance", h.AdvanceNavigation)
			r.Post("/skip", h.SkipToPoint)
			r.Put("/settings", h.UpdateNavigationSettings)
		})

		r.Post("/position", h.PostPosition)

		r.Route("/simulation", func(r chi.Router) {
			r.Get("/vessel", h.GetSimulatedVessel)
			r.Post("/vessel", h.CreateSimulatedVessel)
			r.Delete("/vessel", h.RemoveSimulatedVessel)
			r.Put("/controls", h.UpdateSimulationControls)
		})

		r.Get("/ws", wsServer.HandleConnection)
		r.Get("/health", h.GetHealth)
		r.Get("/config", h.GetConfig)
	})

	return r
}

// corsMiddleware applies the configured CORS policy to every response
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if originSet[origin] {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
