package selfcheck

// Responses holds the live answer state for one session, in bank order.
type Responses struct {
	questions []Question
}

func NewResponses(b *Bank) *Responses {
	return &Responses{questions: b.Questions()}
}

// SetAnswer records value for questionID. The stored state is untouched on
// error.
func (r *Responses) SetAnswer(questionID, value int) error {
	idx := r.index(questionID)
	if idx < 0 {
		return ErrInvalidQuestionID
	}
	if value < MinRating || value > MaxRating {
		return ErrInvalidRating
	}
	r.questions[idx].Value = Rating(value)
	return nil
}

func (r *Responses) IsComplete() bool {
	return len(r.Unanswered()) == 0
}

// Unanswered returns the ids still missing a value, in order.
func (r *Responses) Unanswered() []int {
	var missing []int
	for _, q := range r.questions {
		if !q.Answered() {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func (r *Responses) AnsweredCount() int {
	return len(r.questions) - len(r.Unanswered())
}

// ResetAll clears every value. Identity and order are preserved.
func (r *Responses) ResetAll() {
	for i := range r.questions {
		r.questions[i].Value = nil
	}
}

// Snapshot returns a deep copy safe to hand out.
func (r *Responses) Snapshot() []Question {
	return cloneQuestions(r.questions)
}

func (r *Responses) index(id int) int {
	for i, q := range r.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
