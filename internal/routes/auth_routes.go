package routes

import (
	"github.com/go-chi/chi/v5"

	"venuepermits/internal/handlers"
	"venuepermits/internal/services"
)

func RegisterAuthRoutes(router chi.Router, base handlers.BaseHandler, svc *services.AuthService) {
	authHandler := handlers.NewAuthHandler(base, svc)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})
}
