package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/psyche-api/internal/api"
	apiMiddleware "github.com/phrazzld/psyche-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	scoringHandler := api.NewScoringHandler(app.engine, app.assessmentService, app.logger)
	sessionHandler := api.NewSessionHandler(app.assessmentService, app.logger)

	// A nil *sql.DB must stay a nil Pinger.
	var pinger api.Pinger
	if app.db != nil {
		pinger = app.db
	}
	healthHandler := api.NewHealthHandler(pinger, app.logger)

	api.RegisterRoutes(r, scoringHandler, sessionHandler, healthHandler)
	return r
}
