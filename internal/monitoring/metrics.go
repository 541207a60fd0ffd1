package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	purchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase attempts by payment method and outcome",
		},
		[]string{"method", "outcome"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment provider events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	seatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_conflicts_total",
			Help: "Purchases rejected because a seat was taken",
		},
	)

	ticketsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_validated_total",
			Help: "Boarding validations by outcome",
		},
		[]string{"outcome"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "Time spent initiating a purchase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

func RecordPurchase(method, outcome string, started time.Time) {
	purchasesTotal.WithLabelValues(method, outcome).Inc()
	purchaseDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

func RecordWebhookEvent(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func RecordSeatConflict() {
	seatConflicts.Inc()
}

func RecordTicketValidation(outcome string) {
	ticketsValidated.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests by their chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}
