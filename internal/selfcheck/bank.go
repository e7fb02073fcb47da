package selfcheck

import "fmt"

var reactiveStatements = [QuestionsPerCategory]string{
	"I often defer decisions until I get approval or input from others.",
	"I feel uncomfortable challenging others' opinions or authority figures.",
	"I tend to avoid conflict and keep conversations 'safe.'",
	"I measure my worth by how well I perform or how others see me.",
	"I'm quick to fix problems myself rather than delegate or develop others.",
	"I feel driven to achieve and avoid failure at all costs.",
	"I hesitate to take bold action if there's uncertainty or risk.",
}

var strategicStatements = [QuestionsPerCategory]string{
	"I take initiative aligned with a clear internal purpose, not just external expectations.",
	"I actively develop others and trust their capacity to lead.",
	"I bring my authentic voice to high-stakes conversations.",
	"I lead with a long-term vision, not just immediate results.",
	"I can hold complexity and paradox without rushing to fix or control.",
	"I make decisions that reflect both my values and systemic impact.",
	"I regularly pause to reflect and grow from setbacks.",
}

// Bank is the fixed, ordered set of statements. Reactive statements take
// ids 1-7 and strategic statements ids 8-14.
type Bank struct {
	questions []Question
}

// DefaultBank returns the built-in English statements.
func DefaultBank() *Bank {
	b, _ := NewBank(reactiveStatements[:], strategicStatements[:])
	return b
}

// NewBank numbers the given statements. Each category must have exactly
// QuestionsPerCategory non-empty statements.
func NewBank(reactive, strategic []string) (*Bank, error) {
	if len(reactive) != QuestionsPerCategory {
		return nil, fmt.Errorf("reactive statements: got %d, want %d", len(reactive), QuestionsPerCategory)
	}
	if len(strategic) != QuestionsPerCategory {
		return nil, fmt.Errorf("strategic statements: got %d, want %d", len(strategic), QuestionsPerCategory)
	}

	qs := make([]Question, 0, QuestionCount)
	for _, text := range reactive {
		qs = append(qs, Question{ID: len(qs) + 1, Text: text, Category: CategoryReactive})
	}
	for _, text := range strategic {
		qs = append(qs, Question{ID: len(qs) + 1, Text: text, Category: CategoryStrategic})
	}
	for _, q := range qs {
		if q.Text == "" {
			return nil, fmt.Errorf("question %d has no text", q.ID)
		}
	}
	return &Bank{questions: qs}, nil
}

// Questions returns a fresh, unanswered copy of the bank in order.
func (b *Bank) Questions() []Question {
	return cloneQuestions(b.questions)
}

// Question looks up a statement by id.
func (b *Bank) Question(id int) (Question, bool) {
	if id < 1 || id > len(b.questions) {
		return Question{}, false
	}
	return b.questions[id-1], true
}

func (b *Bank) Len() int { return len(b.questions) }
