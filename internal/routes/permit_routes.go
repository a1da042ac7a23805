package routes

import (
	"github.com/go-chi/chi/v5"

	"venuepermits/internal/config"
	"venuepermits/internal/handlers"
	appmw "venuepermits/internal/middleware"
	"venuepermits/internal/services"
)

func RegisterPermitRoutes(r chi.Router, base handlers.BaseHandler, cfg *config.Config, svc *services.PermitService) {
	handler := handlers.NewPermitHandler(base, svc, cfg.MaxDocumentBytes)

	r.Route("/permits", func(r chi.Router) {
		r.Use(appmw.JWTAuth(cfg.JWTSecret))
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Patch("/{id}/status", handler.UpdateStatus)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/documents", handler.UploadDocument)
		r.Get("/{id}/documents", handler.ListDocuments)
	})
}
