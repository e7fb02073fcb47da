package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ddll/leadercheck/internal/export"
	"github.com/ddll/leadercheck/internal/selfcheck"
)

func handleCreateAssessment(logger *slog.Logger, bank *selfcheck.Bank, rec *Recorder, pipe *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssessmentData
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}

		res, err := req.toResult(bank)
		if err != nil {
			status, body := errorResponse(err)
			if status == http.StatusInternalServerError {
				logger.Error("scoring submission failed", "error", err)
			}
			writeJSON(w, status, body)
			return
		}

		if res.ReactiveScore != req.ReactiveScore ||
			res.StrategicScore != req.StrategicScore ||
			res.Interpretation.Label() != req.Interpretation {
			logger.Warn("client totals differ from recomputed scores",
				"email", res.UserInfo.Email,
				"client_reactive", req.ReactiveScore,
				"client_strategic", req.StrategicScore,
				"reactive", res.ReactiveScore,
				"strategic", res.StrategicScore,
			)
		}

		a, err := rec.Record(r.Context(), res)
		if err != nil {
			logger.Error("persisting assessment failed", "email", res.UserInfo.Email, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save assessment")
			return
		}
		logger.Info("assessment stored", "assessment_id", a.ID)

		if pipe != nil {
			pipe.Announce(res, a)
		}
		resp := AssessmentResponse{AssessmentData: resultData(res), ID: a.ID}
		resp.UserInfo.Organization = echoOptional(req.UserInfo.Organization)
		resp.UserInfo.Role = echoOptional(req.UserInfo.Role)
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleGetAssessment(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assessment id")
			return
		}

		d, err := loadAssessment(r.Context(), store, id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Assessment not found")
			return
		}
		if err != nil {
			logger.Error("loading assessment failed", "assessment_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load assessment")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleUserAssessments(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}

		u, err := store.UserByEmail(r.Context(), email)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			logger.Error("loading user failed", "email", email, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load assessments")
			return
		}

		list, err := store.UserAssessments(r.Context(), u.ID)
		if err != nil {
			logger.Error("listing assessments failed", "user_id", u.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load assessments")
			return
		}
		if list == nil {
			list = []Assessment{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleExportAssessment(logger *slog.Logger, bank *selfcheck.Bank, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assessment id")
			return
		}

		d, err := loadAssessment(r.Context(), store, id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Assessment not found")
			return
		}
		if err != nil {
			logger.Error("loading assessment failed", "assessment_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load assessment")
			return
		}

		res, err := storedResult(bank, d)
		if err != nil {
			logger.Error("rebuilding assessment failed", "assessment_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to export assessment")
			return
		}
		writePDF(w, logger, res)
	}
}

func loadAssessment(ctx context.Context, store Store, id int64) (AssessmentDetail, error) {
	a, err := store.Assessment(ctx, id)
	if err != nil {
		return AssessmentDetail{}, err
	}

	d := AssessmentDetail{Assessment: a}
	u, err := store.User(ctx, a.UserID)
	switch {
	case err == nil:
		d.UserInfo = &u
	case !errors.Is(err, ErrNotFound):
		return AssessmentDetail{}, fmt.Errorf("loading user %d: %w", a.UserID, err)
	}

	d.Questions, err = store.AssessmentQuestions(ctx, id)
	if err != nil {
		return AssessmentDetail{}, fmt.Errorf("loading responses: %w", err)
	}
	if d.Questions == nil {
		d.Questions = []AssessmentQuestion{}
	}
	return d, nil
}

// writePDF renders into a buffer first so a render failure can still
// produce a JSON error.
func writePDF(w http.ResponseWriter, logger *slog.Logger, res selfcheck.Result) {
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, res); err != nil {
		logger.Error("rendering report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to export assessment")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(res.Date)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
