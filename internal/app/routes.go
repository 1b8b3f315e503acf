package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"transitguide.org/internal/middleware"
)

// Routes registers every endpoint and wraps the router with the Sentry,
// CORS and security header middleware. ctx bounds the metrics cache refresher.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/landmarks", app.landmarksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stats", app.statsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/nearest", app.nearestHandler)
	router.HandlerFunc(http.MethodGet, "/v1/map", app.mapHandler)
	router.HandlerFunc(http.MethodPost, "/v1/refresh", app.refreshHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	handler = middleware.CORS(app.ConfigService.Config.CORSOrigins)(handler)
	return middleware.SecurityHeaders(handler)
}
