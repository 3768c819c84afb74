package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonkoltuk/sonkoltuk-backend/api/controllers"
	webhookcontrollers "github.com/sonkoltuk/sonkoltuk-backend/api/controllers/webhooks"
	"github.com/sonkoltuk/sonkoltuk-backend/api/middleware"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/booking"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/ingestion"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/offers"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/payments"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/config"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/enums"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	bookingService booking.Service,
	paymentsService payments.Service,
	ingestionService ingestion.Service,
	offersService offers.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	bookingPolicy := middleware.NewRateLimitPolicy(
		"booking",
		cfg.RateLimit.BookingWindow,
		cfg.RateLimit.BookingIPLimit,
		cfg.RateLimit.BookingEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider callbacks authenticate through their payload signature,
	// not a bearer token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentCallback(paymentsService, cfg.Payment.SignatureHeader, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(
			middleware.RateLimit(bookingPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/bookings", controllers.CreateBooking(bookingService, logg))
		r.Get("/bookings/{orderID}", controllers.GetBooking(bookingService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleOperator))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/offers/import", controllers.ImportOffers(ingestionService, logg))
		r.Post("/offers/{offerID}/promote", controllers.PromoteOffer(offersService, logg))
		r.Get("/audit/errors", controllers.AuditErrors(auditService, logg))
		r.Get("/audit/trail/{entity}/{entityID}", controllers.AuditTrail(auditService, logg))
	})

	return r
}
