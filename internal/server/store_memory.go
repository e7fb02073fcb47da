package server

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore keeps records in maps guarded by one mutex. Ids come from
// per-table counters owned by the store. Writes inside WithTx are visible to
// readers before the unit finishes and are undone if it fails.
type MemStore struct {
	mu          sync.RWMutex
	users       map[int64]User
	assessments map[int64]Assessment
	questions   map[int64]AssessmentQuestion
	nextUser    int64
	nextAssess  int64
	nextQuest   int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[int64]User),
		assessments: make(map[int64]Assessment),
		questions:   make(map[int64]AssessmentQuestion),
	}
}

func (s *MemStore) Ping(context.Context) error { return nil }

type memTxKey struct{}

// memTx is the undo journal of one WithTx call.
type memTx struct {
	undo []func()
}

func (s *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx)
	}

	tx := &memTx{}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
	}
	return err
}

// journal records undo for the unit bound to ctx. Callers hold s.mu.
func journal(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *MemStore) User(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemStore) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u := User{
		ID:           s.nextUser,
		Name:         nu.Name,
		Email:        nu.Email,
		Organization: nu.Organization,
		Role:         nu.Role,
	}
	s.users[u.ID] = u
	journal(ctx, func() { delete(s.users, u.ID) })
	return u, nil
}

func (s *MemStore) UpdateUser(ctx context.Context, id int64, p UserPatch) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u := prev
	applyPatch(&u, p)
	s.users[id] = u
	journal(ctx, func() { s.users[id] = prev })
	return u, nil
}

func (s *MemStore) CreateAssessment(ctx context.Context, na NewAssessment) (Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAssess++
	a := Assessment{
		ID:             s.nextAssess,
		UserID:         na.UserID,
		ReactiveScore:  na.ReactiveScore,
		StrategicScore: na.StrategicScore,
		Interpretation: na.Interpretation,
		Date:           na.Date.UTC().Format(isoMillis),
	}
	s.assessments[a.ID] = a
	journal(ctx, func() { delete(s.assessments, a.ID) })
	return a, nil
}

func (s *MemStore) Assessment(_ context.Context, id int64) (Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemStore) UserAssessments(_ context.Context, userID int64) ([]Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Assessment
	for _, a := range s.assessments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) SaveQuestionResponse(ctx context.Context, r NewQuestionResponse) (AssessmentQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[r.AssessmentID]; !ok {
		return AssessmentQuestion{}, ErrNotFound
	}
	s.nextQuest++
	q := AssessmentQuestion{
		ID:           s.nextQuest,
		AssessmentID: r.AssessmentID,
		QuestionID:   r.QuestionID,
		Value:        r.Value,
		Category:     r.Category,
	}
	s.questions[q.ID] = q
	journal(ctx, func() { delete(s.questions, q.ID) })
	return q, nil
}

func (s *MemStore) AssessmentQuestions(_ context.Context, assessmentID int64) ([]AssessmentQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AssessmentQuestion
	for _, q := range s.questions {
		if q.AssessmentID == assessmentID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
