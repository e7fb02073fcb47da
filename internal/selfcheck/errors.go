package selfcheck

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidQuestionID = errors.New("invalid question id")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrWrongSection      = errors.New("action not allowed in current section")

	// ErrPreconditionViolated means scoring was reached with unanswered
	// questions. The state machine gates make this unreachable.
	ErrPreconditionViolated = errors.New("precondition violated")
)

// IncompleteAnswersError blocks Questions -> UserInfo.
type IncompleteAnswersError struct {
	Missing []int
}

func (e *IncompleteAnswersError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%d unanswered questions: %s", len(e.Missing), strings.Join(ids, ", "))
}

// User-facing field messages.
const (
	MsgNameRequired  = "Name is required"
	MsgEmailRequired = "Email is required"
	MsgEmailInvalid  = "Please enter a valid email address"
)

// InvalidUserInfoError blocks UserInfo -> Results. Fields is keyed by
// "name" and "email".
type InvalidUserInfoError struct {
	Fields map[string]string
}

func (e *InvalidUserInfoError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid user info: " + strings.Join(parts, "; ")
}
