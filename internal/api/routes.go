package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the API endpoints on r. A nil health handler skips
// the /health route.
func RegisterRoutes(r chi.Router, scoringHandler *ScoringHandler, sessionHandler *SessionHandler, health *HealthHandler) {
	r.Route("/api", func(r chi.Router) {
		// Stateless engine endpoints
		r.Post("/answers/validate", scoringHandler.ValidateAnswers)
		r.Post("/answers/clean", scoringHandler.CleanAnswers)
		r.Post("/scoring/dimensions", scoringHandler.CalculateDimensionScores)
		r.Post("/scoring/pattern", scoringHandler.AnalyzeAnswerPattern)
		r.Post("/scoring/result", scoringHandler.GenerateResult)
		r.Post("/scoring/batch", scoringHandler.ScoreSessions)

		// Session lifecycle
		r.Post("/sessions", sessionHandler.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/answers", sessionHandler.SubmitAnswer)
			r.Post("/complete", sessionHandler.CompleteSession)
			r.Post("/abandon", sessionHandler.AbandonSession)
			r.Post("/expire", sessionHandler.ExpireSession)
			r.Get("/result", sessionHandler.GetResult)
			r.Get("/export", sessionHandler.ExportSession)
		})

		r.Get("/statistics", sessionHandler.GetStatistics)
	})

	if health != nil {
		r.Get("/health", health.Health)
	}
}
