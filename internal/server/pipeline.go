package server

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ddll/leadercheck/internal/archive"
	"github.com/ddll/leadercheck/internal/export"
	"github.com/ddll/leadercheck/internal/notify"
	"github.com/ddll/leadercheck/internal/selfcheck"
)

// Archiver stores rendered reports and returns where they live.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type PipelineOptions struct {
	Workers   int
	QueueSize int
	Notifier  notify.Notifier
	Archive   Archiver
	Logger    *slog.Logger
}

type job struct {
	result     selfcheck.Result
	assessment *Assessment
}

// Pipeline runs submission side effects off the request path: recording
// session results, archiving reports and notifying sinks. Every failure is
// logged and dropped; none reaches the user.
type Pipeline struct {
	recorder *Recorder
	notifier notify.Notifier
	archive  Archiver
	logger   *slog.Logger
	workers  int
	jobs     chan job

	mu      sync.Mutex
	stopped bool
}

func NewPipeline(recorder *Recorder, opts PipelineOptions) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		recorder: recorder,
		notifier: opts.Notifier,
		archive:  opts.Archive,
		logger:   opts.Logger,
		workers:  opts.Workers,
		jobs:     make(chan job, opts.QueueSize),
	}
}

// Dispatch queues a session result for recording. It never blocks.
func (p *Pipeline) Dispatch(res selfcheck.Result) {
	p.enqueue(job{result: res})
}

// Announce queues archive and notification for an already recorded result.
func (p *Pipeline) Announce(res selfcheck.Result, a Assessment) {
	p.enqueue(job{result: res, assessment: &a})
}

func (p *Pipeline) enqueue(j job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.logger.Error("submission pipeline stopped, dropping job",
			"email", j.result.UserInfo.Email,
		)
		return
	}
	select {
	case p.jobs <- j:
	default:
		p.logger.Error("submission queue full, dropping job",
			"email", j.result.UserInfo.Email,
		)
	}
}

// Run processes jobs until ctx is done, then drains what is already queued.
// Jobs offered after that are refused and logged, so callers should stop
// producing before cancelling ctx.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j := <-p.jobs:
					p.process(gctx, j)
				}
			}
		})
	}
	g.Wait()

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		select {
		case j := <-p.jobs:
			p.process(drainCtx, j)
		default:
			return nil
		}
	}
}

func (p *Pipeline) process(ctx context.Context, j job) {
	a := j.assessment
	if a == nil {
		rec, err := p.recorder.Record(ctx, j.result)
		if err != nil {
			p.logger.Error("persisting assessment failed",
				"email", j.result.UserInfo.Email,
				"error", err,
			)
			return
		}
		a = &rec
		p.logger.Info("assessment stored", "assessment_id", a.ID)
	}

	var reportURL string
	if p.archive != nil {
		reportURL = p.archiveReport(ctx, j.result, a.ID)
	}

	if err := p.notifier.Notify(ctx, submission(j.result, *a, reportURL)); err != nil {
		p.logger.Warn("notification failed", "assessment_id", a.ID, "error", err)
	}
}

func (p *Pipeline) archiveReport(ctx context.Context, res selfcheck.Result, id int64) string {
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, res); err != nil {
		p.logger.Error("rendering report failed", "assessment_id", id, "error", err)
		return ""
	}
	url, err := p.archive.Put(ctx, archive.Key(id, res.Date), buf.Bytes(), "application/pdf")
	if err != nil {
		p.logger.Error("archiving report failed", "assessment_id", id, "error", err)
		return ""
	}
	return url
}

func submission(res selfcheck.Result, a Assessment, reportURL string) notify.Submission {
	return notify.Submission{
		ID:             a.ID,
		Name:           res.UserInfo.Name,
		Email:          res.UserInfo.Email,
		Organization:   res.UserInfo.Organization,
		Role:           res.UserInfo.Role,
		ReactiveScore:  res.ReactiveScore,
		StrategicScore: res.StrategicScore,
		Interpretation: res.Interpretation.Label(),
		Date:           a.Date,
		ReportURL:      reportURL,
	}
}
