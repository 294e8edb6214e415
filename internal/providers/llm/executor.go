package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/datacom/internal/metrics"
	"github.com/sandevgo/datacom/pkg/log"
	"golang.org/x/sync/semaphore"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimedOut
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what a single inference produced. Text is only meaningful for
// OutcomeOK; Err carries the cause of the other outcomes.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

type ExecutorConfig struct {
	Generation      GenerationConfig
	Timeout         time.Duration
	Workers         int64
	MaxPromptTokens int
}

// modelSource is satisfied by *ModelHandle.
type modelSource interface {
	Get(ctx context.Context) (Generator, error)
}

// Executor runs inference off the caller's goroutine, bounded by a worker
// semaphore and a wall-clock timeout.
type Executor struct {
	model modelSource
	cfg   ExecutorConfig
	sem   *semaphore.Weighted
	meter *TokenMeter
}

// NewExecutor returns an Executor. meter may be nil to skip prompt metering.
func NewExecutor(model modelSource, cfg ExecutorConfig, meter *TokenMeter) *Executor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Executor{
		model: model,
		cfg:   cfg,
		sem:   semaphore.NewWeighted(cfg.Workers),
		meter: meter,
	}
}

type generation struct {
	text string
	err  error
}

// Run never returns a Go error: every failure is folded into the Result.
// On timeout the worker is abandoned and its context cancelled.
func (e *Executor) Run(ctx context.Context, prompt string) Result {
	logger := log.FromCtx(ctx)
	start := time.Now()

	e.meterPrompt(ctx, prompt)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// Waiting for a free worker counts against the timeout
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return e.finish(ctx, start, generation{err: fmt.Errorf("waiting for inference worker: %w", err)})
	}

	done := make(chan generation, 1)
	metrics.InferenceInFlight.Inc()

	go func() {
		defer metrics.InferenceInFlight.Dec()
		defer e.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("inference panic: %v", r)}
			}
		}()

		gen, err := e.model.Get(ctx)
		if err != nil {
			done <- generation{err: err}
			return
		}

		text, err := gen.Generate(ctx, prompt, e.cfg.Generation)
		if err != nil {
			done <- generation{err: fmt.Errorf("generation failed: %w", err)}
			return
		}
		done <- generation{text: text}
	}()

	select {
	case g := <-done:
		return e.finish(ctx, start, g)
	case <-ctx.Done():
		logger.Warn().Dur("timeout", e.cfg.Timeout).Msg("inference abandoned")
		return e.finish(ctx, start, generation{err: ctx.Err()})
	}
}

func (e *Executor) finish(ctx context.Context, start time.Time, g generation) Result {
	res := Result{
		Text:    g.text,
		Err:     g.err,
		Elapsed: time.Since(start),
	}

	switch {
	case g.err == nil:
		res.Outcome = OutcomeOK
	case errors.Is(g.err, context.DeadlineExceeded):
		res.Outcome = OutcomeTimedOut
	default:
		res.Outcome = OutcomeFailed
	}

	metrics.InferenceDuration.WithLabelValues(res.Outcome.String()).Observe(res.Elapsed.Seconds())

	logger := log.FromCtx(ctx)
	event := logger.Debug()
	if res.Outcome != OutcomeOK {
		event = logger.Warn().Err(res.Err)
	}
	event.Str("outcome", res.Outcome.String()).
		Dur("elapsed", res.Elapsed).
		Int("chars", len(res.Text)).
		Msg("inference finished")

	return res
}

func (e *Executor) meterPrompt(ctx context.Context, prompt string) {
	if e.meter == nil {
		return
	}

	n, err := e.meter.Count(prompt)
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("token count unavailable")
		return
	}

	metrics.PromptTokens.Observe(float64(n))
	if e.cfg.MaxPromptTokens > 0 && n > e.cfg.MaxPromptTokens {
		log.FromCtx(ctx).Warn().
			Int("tokens", n).
			Int("max", e.cfg.MaxPromptTokens).
			Msg("prompt exceeds model context")
	}
}
