package server

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, opts Options) {
	logger := opts.Logger
	sessions := opts.Sessions
	broker := opts.Broker
	bank := sessions.Bank()

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if opts.RateLimit > 0 {
		mw := rateLimit(newIPLimiter(opts.RateLimit, opts.RateBurst))
		limit = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Leadership Self-Check API", "/openapi.json", "/docs"))
	if opts.Health != nil {
		r.Mount("/healthz", opts.Health)
	}

	r.Method(http.MethodPost, "/api/assessments", limit(handleCreateAssessment(logger, bank, opts.Recorder, opts.Pipeline)))
	r.Get("/api/assessments/{id}", handleGetAssessment(logger, opts.Store))
	r.Get("/api/assessments/{id}/export", handleExportAssessment(logger, bank, opts.Store))
	r.Get("/api/users/{email}/assessments", handleUserAssessments(logger, opts.Store))

	r.Method(http.MethodPost, "/api/sessions", limit(handleCreateSession(sessions)))
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", handleGetSession(sessions))
		r.Delete("/", handleDeleteSession(sessions))
		r.Post("/start", handleSessionAction(logger, sessions, broker, ActionStart))
		r.Put("/answers/{questionID}", handleSessionAnswer(logger, sessions, broker))
		r.Post("/continue", handleSessionAction(logger, sessions, broker, ActionContinue))
		r.Patch("/user", handleSessionUser(logger, sessions, broker))
		r.Post("/submit", handleSessionAction(logger, sessions, broker, ActionSubmit))
		r.Post("/restart", handleSessionAction(logger, sessions, broker, ActionRestart))
		r.Get("/export", handleExportSession(logger, sessions))
		r.Get("/events", handleEvents(sessions, broker))
		r.Get("/ws", handleSessionWS(logger, sessions, broker))
	})

	if opts.SPADir != "" {
		if info, err := os.Stat(opts.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", opts.SPADir)
			r.NotFound(handleSPA(opts.SPADir))
		}
	}
}
