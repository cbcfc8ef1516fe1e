package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenbasket/greenbasket/internal/auth"
	"github.com/greenbasket/greenbasket/internal/cart"
	"github.com/greenbasket/greenbasket/internal/config"
	"github.com/greenbasket/greenbasket/internal/order"
	"github.com/greenbasket/greenbasket/internal/payment"
	"github.com/greenbasket/greenbasket/internal/product"
	"github.com/greenbasket/greenbasket/pkg/metrics"
)

// NewRouter wires repositories, services and handlers onto one chi mux.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config, srvMetrics *metrics.ServerMetrics) *chi.Mux {
	productRepo := product.NewRepository(pool)
	cartRepo := cart.NewRepository(pool)
	orderRepo := order.NewRepository(pool)

	cartSvc := cart.NewService(cartRepo, productRepo)
	orderSvc := order.NewService(orderRepo)
	gateway := payment.NewPaystackGateway(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL)
	reconciler := payment.NewReconciler(gateway, orderSvc)

	productHandler := product.NewHandler(productRepo)
	cartHandler := cart.NewHandler(cartSvc)
	orderHandler := order.NewHandler(orderSvc)
	paymentHandler := payment.NewHandler(reconciler)

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(srvMetrics.Middleware)

		productHandler.RegisterRoutes(api)

		api.Group(func(authed chi.Router) {
			authed.Use(auth.Middleware(cfg.App.JWTSecret))

			cartHandler.RegisterRoutes(authed)
			orderHandler.RegisterRoutes(authed)
			paymentHandler.RegisterRoutes(authed)

			authed.Group(func(admin chi.Router) {
				admin.Use(auth.RequireAdmin)
				productHandler.RegisterAdminRoutes(admin)
				orderHandler.RegisterAdminRoutes(admin)
			})
		})
	})

	return r
}
