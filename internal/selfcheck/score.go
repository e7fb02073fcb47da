package selfcheck

import (
	"fmt"
	"math"
)

// Scores are the two category totals.
type Scores struct {
	Reactive  int
	Strategic int
}

// Score sums the values per category. Every question must be answered and
// carry a known category; anything else is ErrPreconditionViolated.
func Score(questions []Question) (Scores, error) {
	var s Scores
	for _, q := range questions {
		if q.Value == nil {
			return Scores{}, fmt.Errorf("%w: question %d is unanswered", ErrPreconditionViolated, q.ID)
		}
		switch q.Category {
		case CategoryReactive:
			s.Reactive += *q.Value
		case CategoryStrategic:
			s.Strategic += *q.Value
		default:
			return Scores{}, fmt.Errorf("%w: question %d has category %q", ErrPreconditionViolated, q.ID, q.Category)
		}
	}
	return s, nil
}

// Percent renders a category score as a rounded share of MaxCategoryScore.
func Percent(score int) int {
	return int(math.Round(float64(score) / MaxCategoryScore * 100))
}

// Interpretation is the classifier outcome.
type Interpretation string

const (
	MostlyStrategic Interpretation = "MostlyStrategic"
	MostlyReactive  Interpretation = "MostlyReactive"
	Mixed           Interpretation = "Mixed"
)

// Interpretations lists every outcome in guide order.
var Interpretations = []Interpretation{MostlyStrategic, MostlyReactive, Mixed}

type interpretationText struct {
	title, description, guide string
}

var interpretationTexts = map[Interpretation]interpretationText{
	MostlyStrategic: {
		title:       "Mostly Strategic",
		description: "You're leading from vision, self-trust, and courage.",
		guide:       "Mostly Strategic (>25 on Strategic, <20 on Reactive)",
	},
	MostlyReactive: {
		title:       "Mostly Reactive",
		description: "You may be leading from fear of disapproval or control.",
		guide:       "Mostly Reactive (>25 on Reactive, <20 on Strategic)",
	},
	Mixed: {
		title:       "Mixed",
		description: "You're in a transition zone—aware of new ways but held back by old patterns.",
		guide:       "Mixed (20–25 in both)",
	},
}

// Classify maps the two totals to an outcome. The first matching rule wins.
func Classify(s Scores) Interpretation {
	switch {
	case s.Strategic > 25 && s.Reactive < 20:
		return MostlyStrategic
	case s.Reactive > 25 && s.Strategic < 20:
		return MostlyReactive
	default:
		return Mixed
	}
}

func (i Interpretation) Title() string       { return interpretationTexts[i].title }
func (i Interpretation) Description() string { return interpretationTexts[i].description }

// Guide is the heading used in the scoring guide, thresholds included.
func (i Interpretation) Guide() string { return interpretationTexts[i].guide }

// Label is the "Title: Description" string carried on the wire.
func (i Interpretation) Label() string {
	t := interpretationTexts[i]
	return t.title + ": " + t.description
}

func (i Interpretation) Valid() bool {
	_, ok := interpretationTexts[i]
	return ok
}

// ParseLabel reverses Label. Unknown labels report false.
func ParseLabel(label string) (Interpretation, bool) {
	for _, i := range Interpretations {
		if i.Label() == label {
			return i, true
		}
	}
	return "", false
}
