package apihttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/handlers"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/logging"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/metrics"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/rate"
)

// Deps are the handlers and middleware inputs for NewRouter.
type Deps struct {
	Health   *handlers.HealthHandler
	Fund     *handlers.FundHandler
	Transfer *handlers.TransferHandler
	Balances *handlers.BalanceHandler
	Runs     *handlers.RunsHandler

	Limiter    *rate.IPLimiter
	AdminToken string
	Metrics    *metrics.Metrics
	Log        *zap.SugaredLogger
}

// NewRouter wires routes and middlewares. Faucet-backed routes are rate
// limited; read-only routes are not.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logging.OrNop(d.Log)))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	r.Get("/metrics", d.Metrics.Handler().ServeHTTP)

	r.Route("/api", func(api chi.Router) {
		api.Use(AdminToken(d.AdminToken))
		api.Group(func(spend chi.Router) {
			if d.Limiter != nil {
				spend.Use(RateLimit(d.Limiter))
			}
			if d.Fund != nil {
				spend.Post("/fund", d.Fund.ServeHTTP)
			}
			if d.Transfer != nil {
				spend.Post("/transfer", d.Transfer.ServeHTTP)
			}
		})
		if d.Balances != nil {
			api.Post("/balances", d.Balances.ServeHTTP)
		}
		if d.Runs != nil {
			api.Get("/runs", d.Runs.ServeHTTP)
		}
	})

	return r
}
