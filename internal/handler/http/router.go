package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/ticketpay/internal/service"
	"github.com/tillpoint/ticketpay/pkg/health"
	"github.com/tillpoint/ticketpay/pkg/middleware"
)

// NewRouter creates a chi router with all ticketpay routes registered.
func NewRouter(
	paymentService *service.PaymentService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("ticketpay"))
	r.Use(middleware.Tracing("ticketpay"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	ticketHandler := NewTicketHandler(paymentService, logger)
	sessionHandler := NewSessionHandler(paymentService, logger)

	r.Route("/api/v1/tickets", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", ticketHandler.CreateTicket)
		r.Get("/", ticketHandler.ListTickets)
		r.Get("/{id}", ticketHandler.GetTicket)
		r.Post("/{id}/sessions", sessionHandler.OpenSession)
	})

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{id}", sessionHandler.GetSession)
		r.Post("/{id}/select", sessionHandler.SelectItem)
		r.Post("/{id}/clear", sessionHandler.ClearSelection)
		r.Put("/{id}/currency", sessionHandler.SetCurrency)
		r.Post("/{id}/mark-paid", sessionHandler.MarkSelectedPaid)
		r.Post("/{id}/commit", sessionHandler.CommitPayment)
		r.Delete("/{id}", sessionHandler.CloseSession)
	})

	return r
}
