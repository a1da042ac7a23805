package routes

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"venuepermits/internal/config"
	"venuepermits/internal/handlers"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/repository"
	"venuepermits/internal/repository/memory"
	"venuepermits/internal/services"
	"venuepermits/internal/telemetry"
)

// Stores bundles the persistence the API runs on. DB is nil when the
// repositories are in-memory.
type Stores struct {
	DB        *sql.DB
	Users     interfaces.UserRepository
	Venues    interfaces.VenueRepository
	Bookings  interfaces.BookingRepository
	Permits   interfaces.PermitRepository
	Documents interfaces.DocumentStore
}

func PostgresStores(db *sql.DB, docs interfaces.DocumentStore) Stores {
	return Stores{
		DB:        db,
		Users:     repository.NewUserRepository(db),
		Venues:    repository.NewVenueRepository(db),
		Bookings:  repository.NewBookingRepository(db),
		Permits:   repository.NewPermitRepository(db),
		Documents: docs,
	}
}

func MemoryStores(store *memory.Store, docs interfaces.DocumentStore) Stores {
	return Stores{
		Users:     store.Users(),
		Venues:    store.Venues(),
		Bookings:  store.Bookings(),
		Permits:   store.Permits(),
		Documents: docs,
	}
}

func SetupRoutes(stores Stores, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// A nil *sql.DB must stay a nil Pinger for the memory-mode health body.
	var db handlers.Pinger
	if stores.DB != nil {
		db = stores.DB
	}
	health := handlers.NewHealthHandler(db)
	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	RegisterSwaggerRoutes(r)

	base := handlers.NewBaseHandler(logger)
	r.Route("/api/v1", func(r chi.Router) {
		RegisterAuthRoutes(r, base, services.NewAuthService(stores.Users, cfg.JWTSecret, cfg.JWTExpiresInSeconds, logger))
		RegisterVenueRoutes(r, base, cfg, services.NewVenueService(stores.Venues, stores.Documents, logger))
		RegisterBookingRoutes(r, base, cfg, services.NewBookingService(stores.Bookings, stores.Documents, logger))
		RegisterPermitRoutes(r, base, cfg, services.NewPermitService(stores.Permits, stores.Documents, logger, cfg.MaxDocumentBytes))
	})

	return r
}
