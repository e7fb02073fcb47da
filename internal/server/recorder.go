package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

// Recorder writes a completed result: lookup-or-create the user, insert the
// assessment, then one row per answered question. Writes for the same email
// are serialized; different users proceed independently.
type Recorder struct {
	store Store

	mu    sync.Mutex
	locks map[string]*emailLock
}

type emailLock struct {
	mu   sync.Mutex
	refs int
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, locks: make(map[string]*emailLock)}
}

// Record stores res in one unit of work: on any failure nothing of it is
// kept, including the user upsert.
func (r *Recorder) Record(ctx context.Context, res selfcheck.Result) (Assessment, error) {
	key := strings.ToLower(res.UserInfo.Email)
	unlock := r.lock(key)
	defer unlock()

	var a Assessment
	err := r.store.WithTx(ctx, func(ctx context.Context) error {
		userID, err := r.upsertUser(ctx, res.UserInfo)
		if err != nil {
			return err
		}

		a, err = r.store.CreateAssessment(ctx, NewAssessment{
			UserID:         userID,
			ReactiveScore:  res.ReactiveScore,
			StrategicScore: res.StrategicScore,
			Interpretation: res.Interpretation.Label(),
			Date:           res.Date,
		})
		if err != nil {
			return fmt.Errorf("creating assessment: %w", err)
		}

		for _, q := range res.Questions {
			if q.Value == nil {
				continue
			}
			_, err := r.store.SaveQuestionResponse(ctx, NewQuestionResponse{
				AssessmentID: a.ID,
				QuestionID:   q.ID,
				Value:        *q.Value,
				Category:     string(q.Category),
			})
			if err != nil {
				return fmt.Errorf("saving response %d for assessment %d: %w", q.ID, a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (r *Recorder) upsertUser(ctx context.Context, info selfcheck.UserInfo) (int64, error) {
	org, role := optional(info.Organization), optional(info.Role)

	existing, err := r.store.UserByEmail(ctx, info.Email)
	switch {
	case err == nil:
		_, err := r.store.UpdateUser(ctx, existing.ID, UserPatch{
			Name:         &info.Name,
			Email:        &info.Email,
			Organization: org,
			Role:         role,
		})
		if err != nil {
			return 0, fmt.Errorf("updating user %d: %w", existing.ID, err)
		}
		return existing.ID, nil
	case errors.Is(err, ErrNotFound):
		u, err := r.store.CreateUser(ctx, NewUser{
			Name:         info.Name,
			Email:        info.Email,
			Organization: org,
			Role:         role,
		})
		if err != nil {
			return 0, fmt.Errorf("creating user: %w", err)
		}
		return u.ID, nil
	default:
		return 0, fmt.Errorf("looking up user: %w", err)
	}
}

func (r *Recorder) lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &emailLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
