// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/masgolf/teetime/internal/api"
	"github.com/masgolf/teetime/internal/api/blocks"
	"github.com/masgolf/teetime/internal/api/bookings"
	"github.com/masgolf/teetime/internal/api/operatinghours"
	"github.com/masgolf/teetime/internal/api/settings"
	"github.com/masgolf/teetime/internal/config"
	"github.com/masgolf/teetime/internal/ratelimit"
)

func newServer(cfg *config.Config, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	registerRoutes(router, cfg, limiter)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, limiter *ratelimit.Limiter) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public booking routes
	mux.HandleFunc("GET /api/v1/bookings/available", bookings.HandleAvailableTimes)
	mux.HandleFunc("GET /api/v1/bookings/next-available", bookings.HandleNextAvailable)
	mux.Handle("POST /api/v1/bookings",
		limiter.Middleware(cfg.App.Environment == "production")(
			http.HandlerFunc(bookings.HandleBookingCreate)))

	// Admin routes
	adminAuth := api.WithAdminAuth(cfg.App.AdminKeyHash)
	admin := func(h http.HandlerFunc) http.Handler { return adminAuth(h) }

	mux.Handle("GET /api/v1/bookings", admin(bookings.HandleBookingsList))
	mux.Handle("PATCH /api/v1/bookings/{id}/status", admin(bookings.HandleBookingStatusUpdate))

	mux.Handle("GET /api/v1/blocks", admin(blocks.HandleBlocksList))
	mux.Handle("POST /api/v1/blocks", admin(blocks.HandleBlockCreate))
	mux.Handle("DELETE /api/v1/blocks/{id}", admin(blocks.HandleBlockDelete))

	mux.Handle("GET /api/v1/operating-hours", admin(operatinghours.HandleHoursList))
	mux.Handle("PUT /api/v1/operating-hours/{day_of_week}", admin(operatinghours.HandleDayReplace))

	mux.Handle("GET /api/v1/booking-settings", admin(settings.HandleSettingsGet))
	mux.Handle("PUT /api/v1/booking-settings", admin(settings.HandleSettingsUpdate))
}
