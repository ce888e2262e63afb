package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/http/handlers"
	"github.com/pygmalion/meettodo-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *zap.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/companies", deps.API.Companies)
	mux.HandleFunc("/v1/companies/", deps.API.CompanyRoutes)
	mux.HandleFunc("/v1/agenda/today", deps.API.Agenda)
	mux.HandleFunc("/v1/statistics", deps.API.Statistics)
	mux.HandleFunc("/v1/calendar/sync", deps.API.CalendarSync)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
