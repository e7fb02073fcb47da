package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

// UserInfoData is the contact block of the submission contract.
type UserInfoData struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Organization *string `json:"organization,omitempty"`
	Role         *string `json:"role,omitempty"`
}

type QuestionData struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Value    *int   `json:"value"`
	Category string `json:"category" enum:"reactive,strategic"`
}

// AssessmentData is the body of POST /api/assessments.
type AssessmentData struct {
	UserInfo       UserInfoData   `json:"userInfo"`
	ReactiveScore  int            `json:"reactiveScore"`
	StrategicScore int            `json:"strategicScore"`
	Questions      []QuestionData `json:"questions"`
	Interpretation string         `json:"interpretation"`
	Date           string         `json:"date"`
}

// AssessmentResponse echoes the submission with the assigned id.
type AssessmentResponse struct {
	AssessmentData
	ID int64 `json:"id"`
}

// AssessmentDetail is a stored assessment with its user and answers.
type AssessmentDetail struct {
	Assessment
	UserInfo  *User                `json:"userInfo"`
	Questions []AssessmentQuestion `json:"questions"`
}

// validationError carries a 400 response body.
type validationError struct {
	resp ErrorResponse
}

func (e *validationError) Error() string { return e.resp.Message }

func invalid(format string, args ...any) *validationError {
	return &validationError{resp: ErrorResponse{Message: "Validation error: " + fmt.Sprintf(format, args...)}}
}

// toResult validates d against bank and scores it. Client-sent totals and
// interpretation are ignored: the scoring engine is authoritative.
func (d AssessmentData) toResult(bank *selfcheck.Bank) (selfcheck.Result, error) {
	info := selfcheck.UserInfo{
		Name:         d.UserInfo.Name,
		Email:        d.UserInfo.Email,
		Organization: deref(d.UserInfo.Organization),
		Role:         deref(d.UserInfo.Role),
	}
	if err := selfcheck.CheckUserInfo(info); err != nil {
		var uerr *selfcheck.InvalidUserInfoError
		if errors.As(err, &uerr) {
			ve := invalid("%s", uerr.Error())
			ve.resp.Errors = uerr.Fields
			return selfcheck.Result{}, ve
		}
		return selfcheck.Result{}, err
	}

	responses := selfcheck.NewResponses(bank)
	seen := make(map[int]bool, len(d.Questions))
	for _, q := range d.Questions {
		bq, ok := bank.Question(q.ID)
		if !ok {
			return selfcheck.Result{}, invalid("unknown question id %d", q.ID)
		}
		if seen[q.ID] {
			return selfcheck.Result{}, invalid("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true
		if string(bq.Category) != q.Category {
			return selfcheck.Result{}, invalid("question %d has category %q, want %q", q.ID, q.Category, bq.Category)
		}
		if q.Value == nil {
			continue
		}
		if err := responses.SetAnswer(q.ID, *q.Value); err != nil {
			return selfcheck.Result{}, invalid("question %d: %v", q.ID, err)
		}
	}

	if err := selfcheck.CheckAnswers(responses); err != nil {
		var ierr *selfcheck.IncompleteAnswersError
		if errors.As(err, &ierr) {
			ve := invalid("%s", ierr.Error())
			ve.resp.Missing = ierr.Missing
			return selfcheck.Result{}, ve
		}
		return selfcheck.Result{}, err
	}

	date, err := time.Parse(time.RFC3339Nano, d.Date)
	if err != nil {
		return selfcheck.Result{}, invalid("date must be an ISO-8601 timestamp")
	}

	questions := responses.Snapshot()
	scores, err := selfcheck.Score(questions)
	if err != nil {
		return selfcheck.Result{}, err
	}

	return selfcheck.Result{
		UserInfo: selfcheck.UserInfo{
			Name:         strings.TrimSpace(info.Name),
			Email:        strings.TrimSpace(info.Email),
			Organization: strings.TrimSpace(info.Organization),
			Role:         strings.TrimSpace(info.Role),
		},
		ReactiveScore:  scores.Reactive,
		StrategicScore: scores.Strategic,
		Questions:      questions,
		Interpretation: selfcheck.Classify(scores),
		Date:           date.UTC(),
	}, nil
}

func resultData(res selfcheck.Result) AssessmentData {
	return AssessmentData{
		UserInfo:       userInfoData(res.UserInfo),
		ReactiveScore:  res.ReactiveScore,
		StrategicScore: res.StrategicScore,
		Questions:      questionData(res.Questions),
		Interpretation: res.Interpretation.Label(),
		Date:           res.Date.UTC().Format(isoMillis),
	}
}

func userInfoData(u selfcheck.UserInfo) UserInfoData {
	return UserInfoData{
		Name:         u.Name,
		Email:        u.Email,
		Organization: optional(u.Organization),
		Role:         optional(u.Role),
	}
}

func questionData(qs []selfcheck.Question) []QuestionData {
	out := make([]QuestionData, len(qs))
	for i, q := range qs {
		out[i] = QuestionData{ID: q.ID, Text: q.Text, Value: q.Value, Category: string(q.Category)}
	}
	return out
}

// storedResult rebuilds a result from stored rows for export. Statement text
// comes from the bank; unknown labels fall back to classifying the scores.
func storedResult(bank *selfcheck.Bank, d AssessmentDetail) (selfcheck.Result, error) {
	date, err := time.Parse(time.RFC3339Nano, d.Date)
	if err != nil {
		return selfcheck.Result{}, fmt.Errorf("parsing stored date %q: %w", d.Date, err)
	}

	values := make(map[int]int, len(d.Questions))
	for _, q := range d.Questions {
		values[q.QuestionID] = q.Value
	}
	questions := bank.Questions()
	for i, q := range questions {
		if v, ok := values[q.ID]; ok {
			questions[i].Value = selfcheck.Rating(v)
		}
	}

	interp, ok := selfcheck.ParseLabel(d.Interpretation)
	if !ok {
		interp = selfcheck.Classify(selfcheck.Scores{Reactive: d.ReactiveScore, Strategic: d.StrategicScore})
	}

	res := selfcheck.Result{
		ReactiveScore:  d.ReactiveScore,
		StrategicScore: d.StrategicScore,
		Questions:      questions,
		Interpretation: interp,
		Date:           date,
	}
	if d.UserInfo != nil {
		res.UserInfo = selfcheck.UserInfo{
			Name:         d.UserInfo.Name,
			Email:        d.UserInfo.Email,
			Organization: deref(d.UserInfo.Organization),
			Role:         deref(d.UserInfo.Role),
		}
	}
	return res, nil
}

// SessionView is the client-facing state of a session.
type SessionView struct {
	ID          string            `json:"id"`
	Section     string            `json:"section" enum:"introduction,questions,userInfo,results"`
	Progress    float64           `json:"progress"`
	Questions   []QuestionData    `json:"questions"`
	Unanswered  []int             `json:"unanswered"`
	UserInfo    UserInfoData      `json:"userInfo"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Result      *AssessmentData   `json:"result,omitempty"`
}

func newSessionView(id string, s *selfcheck.Session) SessionView {
	v := SessionView{
		ID:          id,
		Section:     string(s.Section()),
		Progress:    s.Progress(),
		Questions:   questionData(s.Questions()),
		Unanswered:  s.Unanswered(),
		UserInfo:    userInfoData(s.UserInfo()),
		FieldErrors: s.FieldErrors(),
	}
	if v.Unanswered == nil {
		v.Unanswered = []int{}
	}
	if len(v.FieldErrors) == 0 {
		v.FieldErrors = nil
	}
	if res, ok := s.Result(); ok {
		data := resultData(res)
		v.Result = &data
	}
	return v
}

// echoOptional returns a field exactly as present in the request, blank
// values included, trimmed the way it is stored.
func echoOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
