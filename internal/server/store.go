package server

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// isoMillis matches the timestamps the web client sends.
const isoMillis = "2006-01-02T15:04:05.000Z"

type User struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Organization *string `json:"organization"`
	Role         *string `json:"role"`
}

type NewUser struct {
	Name         string
	Email        string
	Organization *string
	Role         *string
}

// UserPatch updates only the non-nil fields.
type UserPatch struct {
	Name         *string
	Email        *string
	Organization *string
	Role         *string
}

type Assessment struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"userId"`
	ReactiveScore  int    `json:"reactiveScore"`
	StrategicScore int    `json:"strategicScore"`
	Interpretation string `json:"interpretation"`
	Date           string `json:"date"`
}

type NewAssessment struct {
	UserID         int64
	ReactiveScore  int
	StrategicScore int
	Interpretation string
	Date           time.Time
}

type AssessmentQuestion struct {
	ID           int64  `json:"id"`
	AssessmentID int64  `json:"assessmentId"`
	QuestionID   int    `json:"questionId"`
	Value        int    `json:"value"`
	Category     string `json:"category"`
}

type NewQuestionResponse struct {
	AssessmentID int64
	QuestionID   int
	Value        int
	Category     string
}

// Store is the record store behind submissions and the read endpoints.
// Email lookups are case-insensitive. Missing records yield ErrNotFound.
//
// WithTx runs fn as one unit of work: every write made through the ctx
// passed to fn is kept only if fn returns nil. Nested calls join the
// outer unit.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	User(ctx context.Context, id int64) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UpdateUser(ctx context.Context, id int64, p UserPatch) (User, error)

	CreateAssessment(ctx context.Context, a NewAssessment) (Assessment, error)
	Assessment(ctx context.Context, id int64) (Assessment, error)
	UserAssessments(ctx context.Context, userID int64) ([]Assessment, error)

	SaveQuestionResponse(ctx context.Context, r NewQuestionResponse) (AssessmentQuestion, error)
	AssessmentQuestions(ctx context.Context, assessmentID int64) ([]AssessmentQuestion, error)

	Ping(ctx context.Context) error
}

func applyPatch(u *User, p UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Organization != nil {
		u.Organization = p.Organization
	}
	if p.Role != nil {
		u.Role = p.Role
	}
}
