package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

type testEnv struct {
	handler  http.Handler
	store    Store
	pipeline *Pipeline
	sessions *Sessions
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, store Store) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := &recordingNotifier{}
	rec := NewRecorder(store)
	pipe := NewPipeline(rec, PipelineOptions{QueueSize: 16, Notifier: n, Logger: logger})
	sessions := NewSessions(selfcheck.DefaultBank(), pipe, time.Hour)

	return &testEnv{
		handler: NewHandler(Options{
			Logger:   logger,
			Store:    store,
			Sessions: sessions,
			Recorder: rec,
			Pipeline: pipe,
		}),
		store:    store,
		pipeline: pipe,
		sessions: sessions,
		notifier: n,
	}
}

func newTestHandler(t *testing.T, store Store) http.Handler {
	return newTestEnv(t, store).handler
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// submissionBody rates every reactive statement r and every strategic one s.
// The client totals are deliberately wrong: the server recomputes them.
func submissionBody(r, s int) AssessmentData {
	var qs []QuestionData
	for _, q := range selfcheck.DefaultBank().Questions() {
		v := r
		if q.Category == selfcheck.CategoryStrategic {
			v = s
		}
		qs = append(qs, QuestionData{ID: q.ID, Text: q.Text, Value: selfcheck.Rating(v), Category: string(q.Category)})
	}
	return AssessmentData{
		UserInfo: UserInfoData{
			Name:         "Bob",
			Email:        "bob@example.com",
			Organization: ptr("Acme"),
		},
		ReactiveScore:  0,
		StrategicScore: 0,
		Questions:      qs,
		Interpretation: "Somewhere in between",
		Date:           "2025-03-14T09:30:00.000Z",
	}
}

func TestCreateAssessment(t *testing.T) {
	e := newTestEnv(t, NewMemStore())

	rec := e.do(t, http.MethodPost, "/api/assessments", submissionBody(5, 1))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[AssessmentResponse](t, rec)
	if resp.ID != 1 {
		t.Errorf("id = %d, want 1", resp.ID)
	}
	if resp.ReactiveScore != 35 || resp.StrategicScore != 7 {
		t.Errorf("scores = %d/%d, want 35/7", resp.ReactiveScore, resp.StrategicScore)
	}
	if resp.Interpretation != selfcheck.MostlyReactive.Label() {
		t.Errorf("interpretation = %q", resp.Interpretation)
	}
	if resp.Date != "2025-03-14T09:30:00.000Z" {
		t.Errorf("date = %q", resp.Date)
	}
	if resp.UserInfo.Organization == nil || *resp.UserInfo.Organization != "Acme" || resp.UserInfo.Role != nil {
		t.Errorf("user info = %+v", resp.UserInfo)
	}
	if len(resp.Questions) != selfcheck.QuestionCount {
		t.Errorf("questions = %d", len(resp.Questions))
	}

	drain(t, e.pipeline)
	if len(e.notifier.subs) != 1 || e.notifier.subs[0].ID != 1 {
		t.Errorf("notifications = %+v", e.notifier.subs)
	}
	if _, err := e.store.Assessment(t.Context(), 2); !errors.Is(err, ErrNotFound) {
		t.Error("the pipeline recorded the submission a second time")
	}
}

func TestCreateAssessmentValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AssessmentData)
		check  func(t *testing.T, resp ErrorResponse)
	}{
		{
			name:   "blank name",
			mutate: func(d *AssessmentData) { d.UserInfo.Name = "  " },
			check: func(t *testing.T, resp ErrorResponse) {
				if resp.Errors["name"] != selfcheck.MsgNameRequired {
					t.Errorf("errors = %v", resp.Errors)
				}
			},
		},
		{
			name:   "email without dot",
			mutate: func(d *AssessmentData) { d.UserInfo.Email = "bob@example" },
			check: func(t *testing.T, resp ErrorResponse) {
				if resp.Errors["email"] != selfcheck.MsgEmailInvalid {
					t.Errorf("errors = %v", resp.Errors)
				}
			},
		},
		{
			name:   "thirteen answers",
			mutate: func(d *AssessmentData) { d.Questions = d.Questions[:13] },
			check: func(t *testing.T, resp ErrorResponse) {
				if len(resp.Missing) != 1 || resp.Missing[0] != 14 {
					t.Errorf("missing = %v, want [14]", resp.Missing)
				}
			},
		},
		{
			name:   "unanswered question",
			mutate: func(d *AssessmentData) { d.Questions[2].Value = nil },
			check: func(t *testing.T, resp ErrorResponse) {
				if len(resp.Missing) != 1 || resp.Missing[0] != 3 {
					t.Errorf("missing = %v, want [3]", resp.Missing)
				}
			},
		},
		{
			name:   "rating out of range",
			mutate: func(d *AssessmentData) { d.Questions[0].Value = ptr(6) },
		},
		{
			name:   "wrong category",
			mutate: func(d *AssessmentData) { d.Questions[0].Category = "strategic" },
		},
		{
			name:   "unknown question",
			mutate: func(d *AssessmentData) { d.Questions[0].ID = 15 },
		},
		{
			name:   "duplicate question",
			mutate: func(d *AssessmentData) { d.Questions = append(d.Questions, d.Questions[0]) },
		},
		{
			name:   "bad date",
			mutate: func(d *AssessmentData) { d.Date = "14/03/2025" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, NewMemStore())
			body := submissionBody(3, 3)
			tt.mutate(&body)

			rec := e.do(t, http.MethodPost, "/api/assessments", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if !strings.HasPrefix(resp.Message, "Validation error") {
				t.Errorf("message = %q", resp.Message)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
			if _, err := e.store.Assessment(t.Context(), 1); !errors.Is(err, ErrNotFound) {
				t.Error("rejected submission was stored")
			}
		})
	}
}

func TestCreateAssessmentMalformedJSON(t *testing.T) {
	e := newTestEnv(t, NewMemStore())

	for _, body := range []string{`{"userInfo":`, `{} {}`, `[]`} {
		rec := e.do(t, http.MethodPost, "/api/assessments", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
	}
}

func TestCreateAssessmentStoreFailure(t *testing.T) {
	e := newTestEnv(t, failingStore{MemStore: NewMemStore(), err: errors.New("disk full")})

	rec := e.do(t, http.MethodPost, "/api/assessments", submissionBody(3, 3))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Message != "Failed to save assessment" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCreateAssessmentEchoesOptionalFields(t *testing.T) {
	tests := []struct {
		name      string
		org, role *string
		want      map[string]any
	}{
		{"blank", ptr(""), ptr(""), map[string]any{"organization": "", "role": ""}},
		{"padded", ptr(" Acme "), nil, map[string]any{"organization": "Acme"}},
		{"absent", nil, nil, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, NewMemStore())
			body := submissionBody(3, 3)
			body.UserInfo.Organization = tt.org
			body.UserInfo.Role = tt.role

			rec := e.do(t, http.MethodPost, "/api/assessments", body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decode[struct {
				UserInfo map[string]any `json:"userInfo"`
			}](t, rec)

			for _, key := range []string{"organization", "role"} {
				got, ok := resp.UserInfo[key]
				want, wantOK := tt.want[key]
				if ok != wantOK || got != want {
					t.Errorf("%s = %v (present %v), want %v (present %v)", key, got, ok, want, wantOK)
				}
			}
		})
	}
}

func TestCreateAssessmentPartialWriteLeavesNothing(t *testing.T) {
	e := newTestEnv(t, &flakyResponses{Store: NewMemStore(), failAt: 5})

	rec := e.do(t, http.MethodPost, "/api/assessments", submissionBody(5, 1))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	if rec := e.do(t, http.MethodGet, "/api/assessments/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after failed save: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodGet, "/api/users/bob@example.com/assessments", nil); rec.Code != http.StatusNotFound {
		t.Errorf("list after failed save: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestReadAssessments(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		e := newTestEnv(t, s)
		if rec := e.do(t, http.MethodPost, "/api/assessments", submissionBody(2, 5)); rec.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
		}

		rec := e.do(t, http.MethodGet, "/api/assessments/1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
		}
		d := decode[AssessmentDetail](t, rec)
		if d.StrategicScore != 35 || d.Interpretation != selfcheck.MostlyStrategic.Label() {
			t.Errorf("detail = %+v", d.Assessment)
		}
		if d.UserInfo == nil || d.UserInfo.Email != "bob@example.com" {
			t.Errorf("user = %+v", d.UserInfo)
		}
		if len(d.Questions) != selfcheck.QuestionCount {
			t.Errorf("questions = %d", len(d.Questions))
		}

		for _, email := range []string{"bob@example.com", "BOB@example.com"} {
			rec = e.do(t, http.MethodGet, "/api/users/"+email+"/assessments", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("list %s: %d", email, rec.Code)
			}
			if list := decode[[]Assessment](t, rec); len(list) != 1 || list[0].ID != 1 {
				t.Errorf("list %s = %+v", email, list)
			}
		}

		notFound := []string{
			"/api/assessments/99",
			"/api/assessments/99/export",
			"/api/users/nobody@example.com/assessments",
		}
		for _, path := range notFound {
			if rec := e.do(t, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
				t.Errorf("%s: status = %d, want 404", path, rec.Code)
			}
		}
		if rec := e.do(t, http.MethodGet, "/api/assessments/abc", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("non-numeric id: status = %d", rec.Code)
		}
	})
}

func TestExportAssessment(t *testing.T) {
	e := newTestEnv(t, NewMemStore())
	e.do(t, http.MethodPost, "/api/assessments", submissionBody(3, 4))

	rec := e.do(t, http.MethodGet, "/api/assessments/1/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content-type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "leadership-assessment-2025-03-14.pdf") {
		t.Errorf("content-disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestStoredResultFallsBackToClassifier(t *testing.T) {
	d := AssessmentDetail{
		Assessment: Assessment{
			ReactiveScore:  30,
			StrategicScore: 10,
			Interpretation: "legacy label",
			Date:           "2025-03-14T09:30:00.000Z",
		},
		Questions: []AssessmentQuestion{{QuestionID: 1, Value: 4, Category: "reactive"}},
	}

	res, err := storedResult(selfcheck.DefaultBank(), d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Interpretation != selfcheck.MostlyReactive {
		t.Errorf("interpretation = %s", res.Interpretation)
	}
	if res.Questions[0].Value == nil || *res.Questions[0].Value != 4 || res.Questions[1].Value != nil {
		t.Error("stored answers not mapped onto the bank")
	}
}
