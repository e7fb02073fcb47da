// Package selfcheck implements the leadership self-check: the question bank,
// answer state, validation gates, scoring, interpretation and the section
// state machine that ties them together. It has no external dependencies.
package selfcheck

import "time"

// Category determines which sub-score a question contributes to.
type Category string

const (
	CategoryReactive  Category = "reactive"
	CategoryStrategic Category = "strategic"
)

func (c Category) Valid() bool {
	return c == CategoryReactive || c == CategoryStrategic
}

const (
	MinRating = 1
	MaxRating = 5

	// QuestionsPerCategory is the number of statements in each category.
	QuestionsPerCategory = 7
	QuestionCount        = 2 * QuestionsPerCategory

	// MaxCategoryScore is the highest possible sub-score.
	MaxCategoryScore = QuestionsPerCategory * MaxRating
)

// Question is one Likert statement. Value is nil while unanswered.
type Question struct {
	ID       int
	Text     string
	Category Category
	Value    *int
}

func (q Question) Answered() bool { return q.Value != nil }

// UserInfo is the contact information collected before results.
type UserInfo struct {
	Name         string
	Email        string
	Organization string
	Role         string
}

// Result is the immutable record of a completed session.
type Result struct {
	UserInfo       UserInfo
	ReactiveScore  int
	StrategicScore int
	Questions      []Question
	Interpretation Interpretation
	Date           time.Time
}

// Section is a stage of the assessment flow.
type Section string

const (
	SectionIntroduction Section = "introduction"
	SectionQuestions    Section = "questions"
	SectionUserInfo     Section = "userInfo"
	SectionResults      Section = "results"
)

func cloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q
		if q.Value != nil {
			v := *q.Value
			out[i].Value = &v
		}
	}
	return out
}

// Rating returns a pointer to v, for building answered questions.
func Rating(v int) *int { return &v }
