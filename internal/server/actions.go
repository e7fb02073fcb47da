package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

const (
	ActionStart    = "start"
	ActionAnswer   = "answer"
	ActionContinue = "continue"
	ActionUser     = "user"
	ActionSubmit   = "submit"
	ActionRestart  = "restart"
)

// UserInfoRequest edits contact details. Omitted fields are left alone.
type UserInfoRequest struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Role         *string `json:"role,omitempty"`
}

type AnswerRequest struct {
	Value int `json:"value" minimum:"1" maximum:"5"`
}

// SessionAction is one user action. The REST routes build it from the
// path and body; websocket clients send it as a JSON message.
type SessionAction struct {
	Action     string           `json:"action" enum:"start,answer,continue,user,submit,restart"`
	QuestionID int              `json:"questionId,omitempty"`
	Value      int              `json:"value,omitempty"`
	User       *UserInfoRequest `json:"user,omitempty"`
}

func (a SessionAction) apply(s *selfcheck.Session) error {
	switch a.Action {
	case ActionStart:
		return s.Start()
	case ActionAnswer:
		return s.Answer(a.QuestionID, a.Value)
	case ActionContinue:
		return s.Continue()
	case ActionUser:
		if a.User == nil {
			return errMissingUser
		}
		return s.UpdateUserInfo(selfcheck.UserInfoPatch{
			Name:         a.User.Name,
			Email:        a.User.Email,
			Organization: a.User.Organization,
			Role:         a.User.Role,
		})
	case ActionSubmit:
		_, err := s.Submit()
		return err
	case ActionRestart:
		return s.Restart()
	default:
		return fmt.Errorf("%w %q", errUnknownAction, a.Action)
	}
}

var (
	errUnknownAction = errors.New("unknown action")
	errMissingUser   = errors.New("user is required")
)

// errorResponse maps core and store errors to a status and body.
func errorResponse(err error) (int, ErrorResponse) {
	var (
		verr *validationError
		ierr *selfcheck.IncompleteAnswersError
		uerr *selfcheck.InvalidUserInfoError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.resp
	case errors.As(err, &ierr):
		return http.StatusBadRequest, ErrorResponse{Message: ierr.Error(), Missing: ierr.Missing}
	case errors.As(err, &uerr):
		return http.StatusBadRequest, ErrorResponse{Message: uerr.Error(), Errors: uerr.Fields}
	case errors.Is(err, selfcheck.ErrInvalidQuestionID),
		errors.Is(err, selfcheck.ErrInvalidRating),
		errors.Is(err, errUnknownAction),
		errors.Is(err, errMissingUser):
		return http.StatusBadRequest, ErrorResponse{Message: err.Error()}
	case errors.Is(err, selfcheck.ErrWrongSection):
		return http.StatusConflict, ErrorResponse{Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "Session not found"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"}
	}
}
