package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/sprintboard/pkg/application"
	"github.com/iota-uz/sprintboard/pkg/configuration"
	"github.com/iota-uz/sprintboard/pkg/metrics"
	"github.com/iota-uz/sprintboard/pkg/middleware"
	"github.com/iota-uz/sprintboard/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default registers the standard middleware stack and optional metrics
// endpoint on the application and returns a server for it.
func Default(options *DefaultOptions) *server.HTTPServer {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.LoggerOptions{RequestIDHeader: conf.RequestIDHeader}),
		middleware.ProvidePool(options.Pool),
		middleware.Cors(conf.CORSOrigins()...),
	}
	if conf.RateLimit.Enabled {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             rateLimitStore(conf, options.Logger),
		}))
	}
	app.RegisterMiddleware(middlewares...)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	return server.NewHTTPServer(app)
}

func rateLimitStore(conf *configuration.Configuration, logger *logrus.Logger) limiter.Store {
	if conf.RateLimit.Storage != "redis" {
		return middleware.NewMemoryStore()
	}
	store, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
		return middleware.NewMemoryStore()
	}
	return store
}
