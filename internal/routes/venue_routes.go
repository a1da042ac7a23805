package routes

import (
	"github.com/go-chi/chi/v5"

	"venuepermits/internal/config"
	"venuepermits/internal/handlers"
	appmw "venuepermits/internal/middleware"
	"venuepermits/internal/services"
)

func RegisterVenueRoutes(r chi.Router, base handlers.BaseHandler, cfg *config.Config, svc *services.VenueService) {
	handler := handlers.NewVenueHandler(base, svc)

	r.Route("/venues", func(r chi.Router) {
		// Public lookups.
		r.Get("/search", handler.Search)
		r.Get("/{id}", handler.Get)

		r.Group(func(r chi.Router) {
			r.Use(appmw.JWTAuth(cfg.JWTSecret))
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Put("/{id}", handler.Update)
			r.Patch("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
		})
	})
}
