package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	hrest "github.com/ReadWriteReboot/ClassroomBank/internal/handler/rest"
	"github.com/ReadWriteReboot/ClassroomBank/internal/middleware"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbank_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classbank_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// httpMetrics records per-route counters and latency. Uses the chi route
// pattern, not the raw path, to keep the label cardinality bounded.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func SetupRoutes(
	r chi.Router,
	h *hrest.ClassbankRestHandler,
	auth *middleware.AuthMiddleware,
	rdb *redis.Client,
) chi.Router {
	// ---- Global middleware ----
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(httpMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "global"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------- Public ----------------
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimiter(rdb, 5, 30*time.Second, 30*time.Second, "auth"))
			r.Post("/auth/login", h.HandleLogin)
		})

		// ---------------- Authenticated ----------------
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/auth/logout", h.HandleLogout)
			r.Get("/me", h.HandleMe)

			// ---------------- Teacher ----------------
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTeacher())

				r.Post("/ledger/paycheck", h.HandlePaycheck)
				r.Post("/ledger/rent", h.HandleRent)

				r.Get("/students", h.HandleListStudents)
				r.Post("/students", h.HandleEnrollStudent)
				r.Get("/students/{userID}/ledger", h.HandleStudentLedger)
				r.Post("/students/{userID}/adjust", h.HandleAdjust)

				r.Get("/withdrawals/pending", h.HandleListPending)
				r.Post("/withdrawals/{id}/approve", h.HandleApproveWithdrawal)
				r.Post("/withdrawals/{id}/deny", h.HandleDenyWithdrawal)

				r.Get("/quick-actions", h.HandleListQuickActions)
				r.Post("/quick-actions", h.HandleCreateQuickAction)
				r.Delete("/quick-actions/{id}", h.HandleDeleteQuickAction)
				r.Post("/quick-actions/{id}/apply", h.HandleApplyQuickAction)

				r.Get("/stats", h.HandleStats)
			})

			// ---------------- Student ----------------
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStudent())

				r.Get("/me/ledger", h.HandleMyLedger)
				r.Post("/me/withdrawals", h.HandleSubmitWithdrawal)
				r.Get("/me/withdrawals", h.HandleMyWithdrawals)
			})
		})
	})

	return r
}
