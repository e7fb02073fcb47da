package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

func handleCreateSession(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, sessions.Create())
	}
}

func handleGetSession(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := sessions.Do(chi.URLParam(r, "id"), nil)
		if err != nil {
			status, body := errorResponse(err)
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleDeleteSession(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sessions.Delete(chi.URLParam(r, "id")) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSessionAction runs a body-less action such as start or submit.
func handleSessionAction(logger *slog.Logger, sessions *Sessions, broker *Broker, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runAction(w, r, logger, sessions, broker, SessionAction{Action: action})
	}
}

func handleSessionAnswer(logger *slog.Logger, sessions *Sessions, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qid, err := strconv.Atoi(chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid question id")
			return
		}

		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		runAction(w, r, logger, sessions, broker, SessionAction{
			Action:     ActionAnswer,
			QuestionID: qid,
			Value:      req.Value,
		})
	}
}

func handleSessionUser(logger *slog.Logger, sessions *Sessions, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UserInfoRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		runAction(w, r, logger, sessions, broker, SessionAction{Action: ActionUser, User: &req})
	}
}

func runAction(w http.ResponseWriter, r *http.Request, logger *slog.Logger, sessions *Sessions, broker *Broker, a SessionAction) {
	id := chi.URLParam(r, "id")
	// Refusals can still change the view, e.g. field errors on submit,
	// so Act publishes them as well.
	view, err := sessions.Act(id, a.Action, a.apply, broker)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err != nil {
		status, body := errorResponse(err)
		if status == http.StatusInternalServerError {
			logger.Error("session action failed", "session_id", id, "action", a.Action, "error", err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func handleExportSession(logger *slog.Logger, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res selfcheck.Result
		_, err := sessions.Do(chi.URLParam(r, "id"), func(s *selfcheck.Session) error {
			held, ok := s.Result()
			if !ok {
				return fmt.Errorf("%w: no result before submit", selfcheck.ErrWrongSection)
			}
			res = held
			return nil
		})
		if err != nil {
			status, body := errorResponse(err)
			writeJSON(w, status, body)
			return
		}
		writePDF(w, logger, res)
	}
}
