package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

func createSession(t *testing.T, e *testEnv) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[SessionView](t, rec).ID
}

func answer(t *testing.T, e *testEnv, id string, qid, value int) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPut, fmt.Sprintf("/api/sessions/%s/answers/%d", id, qid), AnswerRequest{Value: value})
}

func TestSessionFlow(t *testing.T) {
	e := newTestEnv(t, NewMemStore())
	id := createSession(t, e)
	base := "/api/sessions/" + id

	if rec := answer(t, e, id, 1, 3); rec.Code != http.StatusConflict {
		t.Fatalf("answer before start: status = %d", rec.Code)
	}

	rec := e.do(t, http.MethodPost, base+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	if v := decode[SessionView](t, rec); v.Section != "questions" {
		t.Fatalf("section = %q after start", v.Section)
	}

	for _, bad := range []struct {
		qid, value int
	}{{1, 0}, {1, 6}, {0, 3}, {15, 3}} {
		if rec := answer(t, e, id, bad.qid, bad.value); rec.Code != http.StatusBadRequest {
			t.Errorf("answer %d=%d: status = %d", bad.qid, bad.value, rec.Code)
		}
	}
	if rec := e.do(t, http.MethodPut, base+"/answers/x", AnswerRequest{Value: 3}); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric question: status = %d", rec.Code)
	}

	for qid := 1; qid < selfcheck.QuestionCount; qid++ {
		v := 2
		if qid > selfcheck.QuestionsPerCategory {
			v = 5
		}
		if rec := answer(t, e, id, qid, v); rec.Code != http.StatusOK {
			t.Fatalf("answer %d: %d %s", qid, rec.Code, rec.Body.String())
		}
	}

	rec = e.do(t, http.MethodPost, base+"/continue", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("continue with 13 answers: status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); len(resp.Missing) != 1 || resp.Missing[0] != 14 {
		t.Errorf("missing = %v, want [14]", resp.Missing)
	}

	answer(t, e, id, 14, 5)
	rec = e.do(t, http.MethodPost, base+"/continue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("continue: %d %s", rec.Code, rec.Body.String())
	}
	if v := decode[SessionView](t, rec); v.Section != "userInfo" || v.Progress != 80 {
		t.Fatalf("after continue: section %q progress %v", v.Section, v.Progress)
	}

	rec = e.do(t, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit without contact details: status = %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Errors["name"] != selfcheck.MsgNameRequired || resp.Errors["email"] != selfcheck.MsgEmailRequired {
		t.Errorf("errors = %v", resp.Errors)
	}
	if v := decode[SessionView](t, e.do(t, http.MethodGet, base, nil)); len(v.FieldErrors) != 2 {
		t.Errorf("field errors = %v, want name and email", v.FieldErrors)
	}

	rec = e.do(t, http.MethodPatch, base+"/user", UserInfoRequest{Name: ptr("Bob"), Email: ptr("bob@example")})
	if v := decode[SessionView](t, rec); len(v.FieldErrors) != 0 {
		t.Errorf("edited fields kept errors: %v", v.FieldErrors)
	}
	rec = e.do(t, http.MethodPost, base+"/submit", nil)
	if resp := decode[ErrorResponse](t, rec); rec.Code != http.StatusBadRequest || resp.Errors["email"] != selfcheck.MsgEmailInvalid {
		t.Fatalf("submit with bad email: %d %v", rec.Code, resp.Errors)
	}

	e.do(t, http.MethodPatch, base+"/user", UserInfoRequest{Email: ptr("bob@example.com"), Role: ptr("Director")})
	rec = e.do(t, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	v := decode[SessionView](t, rec)
	if v.Section != "results" || v.Progress != 100 || v.Result == nil {
		t.Fatalf("after submit: %+v", v)
	}
	if v.Result.ReactiveScore != 14 || v.Result.StrategicScore != 35 || v.Result.Interpretation != selfcheck.MostlyStrategic.Label() {
		t.Errorf("result = %+v", v.Result)
	}

	if rec := e.do(t, http.MethodPatch, base+"/user", UserInfoRequest{Name: ptr("x")}); rec.Code != http.StatusConflict {
		t.Errorf("edit in results: status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, base+"/export", nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("export: status %d", rec.Code)
	}

	drain(t, e.pipeline)
	u, err := e.store.UserByEmail(t.Context(), "bob@example.com")
	if err != nil {
		t.Fatalf("submitted session was not recorded: %v", err)
	}
	if u.Role == nil || *u.Role != "Director" {
		t.Errorf("recorded user = %+v", u)
	}

	rec = e.do(t, http.MethodPost, base+"/restart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restart: %d", rec.Code)
	}
	v = decode[SessionView](t, rec)
	if v.Section != "introduction" || v.Result != nil || len(v.Unanswered) != selfcheck.QuestionCount {
		t.Errorf("after restart: %+v", v)
	}
	if v.UserInfo.Name != "Bob" {
		t.Errorf("contact details lost on restart: %+v", v.UserInfo)
	}
	if rec := e.do(t, http.MethodGet, base+"/export", nil); rec.Code != http.StatusConflict {
		t.Errorf("export after restart: status = %d", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, base+"/start", nil); rec.Code != http.StatusNotFound {
		t.Errorf("start after delete: %d", rec.Code)
	}
}

func TestSessionEvents(t *testing.T) {
	e := newTestEnv(t, NewMemStore())
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	id := createSession(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	events := bufio.NewReader(resp.Body)
	next := func() SessionEvent {
		t.Helper()
		for {
			line, err := events.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var ev SessionEvent
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					t.Fatalf("decoding event: %v", err)
				}
				return ev
			}
		}
	}

	if ev := next(); ev.Session == nil || ev.Session.Section != "introduction" {
		t.Fatalf("initial event = %+v", ev)
	}

	if rec := e.do(t, http.MethodPost, "/api/sessions/"+id+"/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}
	ev := next()
	if ev.Type != ActionStart || ev.Session == nil || ev.Session.Section != "questions" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSessionEventsUnknownSession(t *testing.T) {
	e := newTestEnv(t, NewMemStore())
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions/nope/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionWebSocket(t *testing.T) {
	e := newTestEnv(t, NewMemStore())
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	id := createSession(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() SessionEvent {
		t.Helper()
		var ev SessionEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}

	if ev := read(); ev.Type != "state" || ev.Session.Section != "introduction" {
		t.Fatalf("initial = %+v", ev)
	}

	wsjson.Write(ctx, conn, SessionAction{Action: ActionStart})
	if ev := read(); ev.Type != ActionStart || ev.Session.Section != "questions" {
		t.Fatalf("after start = %+v", ev)
	}

	wsjson.Write(ctx, conn, SessionAction{Action: ActionAnswer, QuestionID: 2, Value: 4})
	if ev := read(); ev.Session == nil || ev.Session.Questions[1].Value == nil || *ev.Session.Questions[1].Value != 4 {
		t.Fatalf("after answer = %+v", ev)
	}

	// A refused action yields both the unchanged state and an error, in
	// either order.
	wsjson.Write(ctx, conn, SessionAction{Action: ActionAnswer, QuestionID: 2, Value: 9})
	var gotErr, gotState bool
	for range 2 {
		ev := read()
		switch ev.Type {
		case "error":
			gotErr = ev.Error != nil && ev.Error.Message != ""
		case ActionAnswer:
			gotState = *ev.Session.Questions[1].Value == 4
		}
	}
	if !gotErr || !gotState {
		t.Errorf("refused answer: error %v, state %v", gotErr, gotState)
	}

	conn.Write(ctx, websocket.MessageText, []byte("not json"))
	if ev := read(); ev.Type != "error" || ev.Error.Message != "invalid message" {
		t.Errorf("garbage message reply = %+v", ev)
	}

	// REST changes reach the socket too.
	if rec := answer(t, e, id, 1, 1); rec.Code != http.StatusOK {
		t.Fatalf("rest answer: %d", rec.Code)
	}
	if ev := read(); ev.Session == nil || ev.Session.Questions[0].Value == nil {
		t.Errorf("rest change not forwarded: %+v", ev)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}
