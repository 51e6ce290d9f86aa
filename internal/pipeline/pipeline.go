package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/newscrawl/internal/model"
)

// Step defines the interface that all round steps must implement.
// Steps are executed in sequence, with each step receiving the report
// accumulated by the previous steps.
type Step interface {
	// Do executes the step. Non-critical problems are recorded in the
	// report and nil is returned; an error means the round cannot go on.
	Do(ctx context.Context, report *model.RoundReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	now func() time.Time
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step; steps handle their own timeouts.
//
// Execution stops at the first failing step. Its error is returned and
// recorded in report.
func (p *Pipeline) Execute(ctx context.Context, report *model.RoundReport) error {
	defer func() { report.FinishedAt = p.now() }()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("round cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.TimedOut = true
			report.Error = ctx.Err()
			report.ErrorMessage = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"round", report.Round,
			"locale", report.Locale,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"round", report.Round,
				"error", err,
			)

			report.Error = err
			report.ErrorMessage = err.Error()
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"round", report.Round,
		)

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
