package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sourcemapscan/internal/model"
)

// Step is one stage of an analysis. A step reads what earlier steps left in
// the report and adds its own results.
type Step interface {
	// Do runs the step against report. A returned error ends the analysis;
	// per-script problems belong in the report instead.
	Do(ctx context.Context, report *model.Report) error

	// Name identifies the step in logs and in Report.PerformedSteps.
	Name() string
}

// Pipeline runs steps in the order they were added.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against report and stops at the first failure,
// which is recorded with report.SetError and returned.
// Cancellation is checked between steps; a running step sees ctx itself.
func (p *Pipeline) Execute(ctx context.Context, report *model.Report) error {
	started := time.Now()
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("analysis cancelled before step",
				"step", step.Name(),
				"page", report.PageURL,
				"reason", err,
			)
			report.Cancelled = true
			report.SetError(err)
			return err
		}

		stepStarted := time.Now()
		err := step.Do(ctx, report)
		elapsed := time.Since(stepStarted)
		if err != nil {
			report.Cancelled = ctx.Err() != nil
			p.logger.Error("step failed",
				"step", step.Name(),
				"page", report.PageURL,
				"elapsed", elapsed,
				"error", err,
			)
			report.SetError(err)
			return err
		}

		p.logger.Debug("step done",
			"step", step.Name(),
			"page", report.PageURL,
			"elapsed", elapsed,
		)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	p.logger.Debug("analysis finished",
		"page", report.PageURL,
		"steps", len(p.steps),
		"elapsed", time.Since(started),
	)
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
