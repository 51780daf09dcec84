package shop

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Ubermelon/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

// NewHandler wires the shop routes. s must have its stores loaded; the handler
// only ever reads them.
func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	setupMiddleware(r, deps)
	setupMetrics(r, s, deps)

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)

	r.Get("/healthz", healthz)
	r.Get("/readyz", s.readyz)

	r.Group(func(sr chi.Router) {
		sr.Use(s.withSession)

		sr.Get("/melons", s.listMelons)
		sr.Get("/melons/{id}", s.getMelon)

		sr.Get("/cart", s.showCart)
		sr.Post("/cart/items/{id}", s.addToCart)
		sr.Delete("/cart/items/{id}", s.removeFromCart)

		sr.With(loginLimiter.Middleware).Post("/login", s.login)
		sr.Get("/whoami", s.whoami)
		sr.Post("/logout", s.logout)
		sr.Delete("/session", s.endSession)

		sr.Post("/checkout", s.checkout)
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, s *Server, deps HTTPDeps) {
	if deps.Registry == nil {
		if deps.MetricsEnabled && deps.Log != nil {
			deps.Log.Warn("metrics enabled but Registry is nil")
		}
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
	s.metrics = NewShopMetrics(deps.Registry)

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil || s.Catalog.Len() == 0 {
		s.Log.Warn("readyz failed: catalog empty")
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
		return
	}
	if s.Customers == nil || s.Customers.Len() == 0 {
		s.Log.Warn("readyz failed: customers empty")
		kit.WriteError(w, r, http.StatusServiceUnavailable, "customers not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}
