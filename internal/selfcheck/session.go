package selfcheck

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeNow is swapped in tests to pin result dates.
var timeNow = time.Now

// Dispatcher receives each completed result. Dispatch must not block: the
// transition to Results never waits on it.
type Dispatcher interface {
	Dispatch(Result)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(Result)

func (f DispatcherFunc) Dispatch(r Result) { f(r) }

// UserInfoPatch carries the fields being edited. Nil fields are left alone.
type UserInfoPatch struct {
	Name         *string
	Email        *string
	Organization *string
	Role         *string
}

// Session is one run of the assessment. It is not safe for concurrent use;
// callers own one Session per user and serialize actions on it.
type Session struct {
	bank       *Bank
	section    Section
	responses  *Responses
	userInfo   UserInfo
	userErrors map[string]string
	result     *Result
	dispatcher Dispatcher
}

// NewSession starts in the Introduction section. d may be nil.
func NewSession(bank *Bank, d Dispatcher) *Session {
	return &Session{
		bank:       bank,
		section:    SectionIntroduction,
		responses:  NewResponses(bank),
		userErrors: make(map[string]string),
		dispatcher: d,
	}
}

func (s *Session) Section() Section { return s.section }

// Start moves Introduction -> Questions.
func (s *Session) Start() error {
	if err := s.expect(SectionIntroduction); err != nil {
		return err
	}
	s.section = SectionQuestions
	return nil
}

// Answer rates a question while in the Questions section.
func (s *Session) Answer(questionID, value int) error {
	if err := s.expect(SectionQuestions); err != nil {
		return err
	}
	return s.responses.SetAnswer(questionID, value)
}

// Continue moves Questions -> UserInfo once every question is answered.
// On refusal the session stays in Questions and the error is an
// *IncompleteAnswersError.
func (s *Session) Continue() error {
	if err := s.expect(SectionQuestions); err != nil {
		return err
	}
	if err := CheckAnswers(s.responses); err != nil {
		return err
	}
	s.section = SectionUserInfo
	return nil
}

// UpdateUserInfo applies p. Each edited field loses its pending error;
// other fields are not re-validated.
func (s *Session) UpdateUserInfo(p UserInfoPatch) error {
	if s.section == SectionResults {
		return fmt.Errorf("%w: results are final", ErrWrongSection)
	}
	if p.Name != nil {
		s.userInfo.Name = *p.Name
		delete(s.userErrors, "name")
	}
	if p.Email != nil {
		s.userInfo.Email = *p.Email
		delete(s.userErrors, "email")
	}
	if p.Organization != nil {
		s.userInfo.Organization = *p.Organization
	}
	if p.Role != nil {
		s.userInfo.Role = *p.Role
	}
	return nil
}

// Submit moves UserInfo -> Results. It scores the answers, classifies them,
// freezes the result and hands it to the dispatcher.
func (s *Session) Submit() (Result, error) {
	if err := s.expect(SectionUserInfo); err != nil {
		return Result{}, err
	}

	if err := CheckUserInfo(s.userInfo); err != nil {
		var uerr *InvalidUserInfoError
		if errors.As(err, &uerr) {
			for k, v := range uerr.Fields {
				s.userErrors[k] = v
			}
		}
		return Result{}, err
	}

	questions := s.responses.Snapshot()
	scores, err := Score(questions)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		UserInfo: UserInfo{
			Name:         strings.TrimSpace(s.userInfo.Name),
			Email:        strings.TrimSpace(s.userInfo.Email),
			Organization: strings.TrimSpace(s.userInfo.Organization),
			Role:         strings.TrimSpace(s.userInfo.Role),
		},
		ReactiveScore:  scores.Reactive,
		StrategicScore: scores.Strategic,
		Questions:      questions,
		Interpretation: Classify(scores),
		Date:           timeNow().UTC(),
	}
	s.result = &res
	s.section = SectionResults

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(res.clone())
	}
	return res.clone(), nil
}

// Restart moves Results -> Introduction, clearing every answer and the
// held result. Contact details are kept for the next run.
func (s *Session) Restart() error {
	if err := s.expect(SectionResults); err != nil {
		return err
	}
	s.responses.ResetAll()
	s.result = nil
	clear(s.userErrors)
	s.section = SectionIntroduction
	return nil
}

// Result returns the held result, if the session reached Results.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return s.result.clone(), true
}

func (s *Session) Questions() []Question { return s.responses.Snapshot() }

func (s *Session) Unanswered() []int { return s.responses.Unanswered() }

func (s *Session) UserInfo() UserInfo { return s.userInfo }

// FieldErrors returns the pending user info messages keyed by field.
func (s *Session) FieldErrors() map[string]string {
	out := make(map[string]string, len(s.userErrors))
	for k, v := range s.userErrors {
		out[k] = v
	}
	return out
}

// Progress is the 0-100 indicator value for the current state. It never
// gates a transition.
func (s *Session) Progress() float64 {
	switch s.section {
	case SectionQuestions:
		return 10 + 60*float64(s.responses.AnsweredCount())/float64(s.bank.Len())
	case SectionUserInfo:
		return 80
	case SectionResults:
		return 100
	default:
		return 10
	}
}

func (s *Session) expect(sec Section) error {
	if s.section != sec {
		return fmt.Errorf("%w: in %s, want %s", ErrWrongSection, s.section, sec)
	}
	return nil
}

func (r Result) clone() Result {
	r.Questions = cloneQuestions(r.Questions)
	return r
}
