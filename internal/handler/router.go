package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"makemodel/internal/mw"
	"makemodel/internal/service"
)

type Deps struct {
	Auth        *service.AuthService
	Orders      *service.OrderService
	Payments    *service.PaymentLedger
	Settlements *service.SettlementCalculator
	Tokens      TokenIssuer

	// Ping reports storage health for /healthz.
	Ping func(ctx context.Context) error
	// Metrics serves /metrics when set.
	Metrics     http.Handler
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(d.Ping))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// Public routes
	r.Post("/api/auth/register", RegisterHandler(d.Auth, d.Tokens))
	r.Post("/api/auth/login", LoginHandler(d.Auth, d.Tokens))
	r.Post("/api/payments/webhook", PaymentWebhookHandler(d.Payments))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(d.Tokens.Secret))

		r.Get("/api/auth/me", MeHandler(d.Auth))

		r.Post("/api/orders", CreateOrderHandler(d.Orders))
		r.Get("/api/orders", ListOrdersHandler(d.Orders))
		r.Get("/api/orders/{orderID}", GetOrderHandler(d.Orders))
		r.Patch("/api/orders/{orderID}/status", TransitionOrderHandler(d.Orders))

		r.Post("/api/payments", CreatePaymentHandler(d.Payments))
		r.Get("/api/payments/{orderID}", GetPaymentHandler(d.Payments))

		r.Get("/api/settlements", ListSettlementsHandler(d.Settlements))
		r.Get("/api/settlements/summary", SettlementSummaryHandler(d.Settlements))
		r.Get("/api/settlements/{settlementID}", GetSettlementHandler(d.Settlements))
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
