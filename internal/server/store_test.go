package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ddll/leadercheck/internal/database"
	"github.com/ddll/leadercheck/internal/migrations"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(context.Background(), database.Memory, database.Options{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func ptr[T any](v T) *T { return &v }

func TestStoreUsers(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.CreateUser(ctx, NewUser{Name: "Bob", Email: "bob@example.com", Organization: ptr("Acme")})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if u.ID == 0 {
			t.Fatal("expected an assigned id")
		}
		if u.Role != nil {
			t.Errorf("role = %q, want nil", *u.Role)
		}

		got, err := s.UserByEmail(ctx, "BOB@Example.com")
		if err != nil {
			t.Fatalf("lookup by email: %v", err)
		}
		if got.ID != u.ID || got.Organization == nil || *got.Organization != "Acme" {
			t.Errorf("lookup = %+v", got)
		}

		upd, err := s.UpdateUser(ctx, u.ID, UserPatch{Name: ptr("Robert"), Role: ptr("CTO")})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if upd.Name != "Robert" || upd.Email != "bob@example.com" || *upd.Role != "CTO" || *upd.Organization != "Acme" {
			t.Errorf("updated = %+v", upd)
		}

		again, err := s.User(ctx, u.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if again.Name != "Robert" {
			t.Errorf("name = %q after update", again.Name)
		}

		if _, err := s.User(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing id: err = %v", err)
		}
		if _, err := s.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing email: err = %v", err)
		}
		if _, err := s.UpdateUser(ctx, 999, UserPatch{Name: ptr("x")}); !errors.Is(err, ErrNotFound) {
			t.Errorf("update missing: err = %v", err)
		}
	})
}

func TestStoreAssessments(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.CreateUser(ctx, NewUser{Name: "Ann", Email: "ann@example.org"})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}

		at := time.Date(2025, 3, 14, 10, 30, 0, 0, time.FixedZone("CET", 3600))
		a, err := s.CreateAssessment(ctx, NewAssessment{
			UserID:         u.ID,
			ReactiveScore:  21,
			StrategicScore: 28,
			Interpretation: "Mixed: label",
			Date:           at,
		})
		if err != nil {
			t.Fatalf("create assessment: %v", err)
		}
		if a.Date != "2025-03-14T09:30:00.000Z" {
			t.Errorf("date = %q, want UTC millis", a.Date)
		}

		for _, qid := range []int{3, 1, 2} {
			if _, err := s.SaveQuestionResponse(ctx, NewQuestionResponse{
				AssessmentID: a.ID, QuestionID: qid, Value: qid, Category: "reactive",
			}); err != nil {
				t.Fatalf("save response %d: %v", qid, err)
			}
		}

		got, err := s.Assessment(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != a {
			t.Errorf("get = %+v, want %+v", got, a)
		}

		qs, err := s.AssessmentQuestions(ctx, a.ID)
		if err != nil {
			t.Fatalf("questions: %v", err)
		}
		if len(qs) != 3 {
			t.Fatalf("len = %d, want 3", len(qs))
		}
		for i, q := range qs {
			if q.QuestionID != i+1 || q.AssessmentID != a.ID {
				t.Errorf("questions[%d] = %+v", i, q)
			}
		}

		b, err := s.CreateAssessment(ctx, NewAssessment{UserID: u.ID, Interpretation: "x", Date: at})
		if err != nil {
			t.Fatalf("second assessment: %v", err)
		}
		list, err := s.UserAssessments(ctx, u.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
			t.Errorf("list = %+v", list)
		}

		if _, err := s.Assessment(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing assessment: err = %v", err)
		}
		if _, err := s.SaveQuestionResponse(ctx, NewQuestionResponse{AssessmentID: 999, QuestionID: 1, Value: 1, Category: "reactive"}); err == nil {
			t.Error("expected error saving a response for a missing assessment")
		}
	})
}
