// Package notify delivers stored submissions to outbound sinks. Delivery is
// best effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
)

// Submission is the payload sent to every sink.
type Submission struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Organization   string `json:"organization,omitempty"`
	Role           string `json:"role,omitempty"`
	ReactiveScore  int    `json:"reactiveScore"`
	StrategicScore int    `json:"strategicScore"`
	Interpretation string `json:"interpretation"`
	Date           string `json:"date"`
	ReportURL      string `json:"reportUrl,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, s Submission) error
}

// Nop discards every submission.
type Nop struct{}

func (Nop) Notify(context.Context, Submission) error { return nil }

// Multi fans out to each sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, s Submission) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
