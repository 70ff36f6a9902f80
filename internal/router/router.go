package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pasarlink/storefront/internal/config"
	"github.com/pasarlink/storefront/internal/database"
	"github.com/pasarlink/storefront/internal/handler"
	mw "github.com/pasarlink/storefront/internal/middleware"
	"github.com/pasarlink/storefront/internal/redisx"
	"github.com/pasarlink/storefront/internal/service"
	"github.com/pasarlink/storefront/internal/ws"
)

// New creates a Chi router with all application routes wired up. Everything
// except health, auth, and the WebSocket endpoint sits behind the session
// cookie middleware.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, locker *redisx.ItemLocker) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration. Credentials must be allowed: the session rides in
	// a cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",    // SvelteKit dev server
			"https://app.pasarlink.id", // Production storefront
			"https://stg.pasarlink.id", // Staging storefront
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.CookieSecure)
	authHandler.RegisterRoutes(r)

	// WebSocket route (validates the session cookie itself)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require a valid session)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Profile
		authHandler.RegisterProtectedRoutes(r)

		// Inventory and catalog
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", productHandler.RegisterRoutes)
		r.Get("/catalog", productHandler.Catalog)

		// Cart
		cartHandler := handler.NewCartHandler(
			queries,
			pool,
			func(db database.DBTX) handler.CartStore {
				return database.New(db)
			},
		)
		r.Route("/cart", cartHandler.RegisterRoutes)

		// Checkout, orders, and the seller workbench
		checkoutService := service.NewCheckoutService(pool, func(db database.DBTX) service.CheckoutStore {
			return database.New(db)
		})
		orderHandler := handler.NewOrderHandler(checkoutService, queries, locker, hub)
		orderHandler.RegisterRoutes(r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
