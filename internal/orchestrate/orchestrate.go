// Package orchestrate drives the generation channel: the class narrative
// first, then each batch strictly in index order with pacing in between,
// falling back to one single-shot attempt when batched generation fails.
// All calls are sequential; the external service is rate limited and
// later batches depend on the already-generated narrative.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"classlens/internal/aggregate"
	"classlens/internal/batch"
	"classlens/internal/config"
	"classlens/internal/llm"
	"classlens/internal/prompt"
)

// ErrGenerationFailed is the fatal outcome: both the batched path and
// the single-shot fallback failed. There is no further fallback.
var ErrGenerationFailed = errors.New("report generation failed")

// Outcome carries the raw generation results for validation and merging.
type Outcome struct {
	Overall      string
	PerBatch     []string
	UsedFallback bool
}

// sleeper abstracts the inter-batch pacing delay so tests do not wait.
type sleeper func(ctx context.Context, d time.Duration) error

// Orchestrator issues generation calls for one analysis session. The
// accumulating result buffer is owned by the orchestrator instance and
// never exposed for concurrent mutation.
type Orchestrator struct {
	client   llm.Client
	composer *prompt.Composer
	analysis config.AnalysisConfig
	log      *zap.Logger
	sleep    sleeper
}

// New creates an orchestrator.
func New(client llm.Client, composer *prompt.Composer, analysis config.AnalysisConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:   client,
		composer: composer,
		analysis: analysis,
		log:      log,
		sleep:    sleepFor,
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RunSingle issues the single-shot request over the whole student set.
// Failure here is fatal for the session.
func (o *Orchestrator) RunSingle(ctx context.Context, summary aggregate.Summary, entities []aggregate.EntityStats) (string, error) {
	req := o.composer.ComposeOverall(summary, entities)
	text, err := o.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return text, nil
}

// RunBatches generates the class narrative first, then each batch in
// index order, embedding the narrative as shared context. Any channel
// failure switches to the single-shot fallback, attempted at most once.
// Caller cancellation is honored as-is, never converted into a fallback.
func (o *Orchestrator) RunBatches(ctx context.Context, summary aggregate.Summary, entities []aggregate.EntityStats, batches []batch.Batch) (Outcome, error) {
	overall, err := o.generate(ctx, o.composer.ComposeClassContext(summary, entities))
	if err != nil {
		return o.fallback(ctx, summary, entities, err)
	}
	o.log.Info("class narrative generated", zap.Int("batches", len(batches)))

	perBatch := make([]string, 0, len(batches))
	for i, b := range batches {
		if i > 0 {
			if err := o.sleep(ctx, o.analysis.PacingDelayDuration()); err != nil {
				return Outcome{}, err
			}
		}

		text, err := o.generate(ctx, o.composer.ComposeBatch(b, overall))
		if err != nil {
			return o.fallback(ctx, summary, entities, err)
		}
		o.log.Info("batch generated",
			zap.Int("batch", b.Index),
			zap.Int("students", len(b.Entities)))
		perBatch = append(perBatch, text)
	}

	return Outcome{Overall: overall, PerBatch: perBatch}, nil
}

// fallback runs the single-shot path over the entire unbatched set. The
// single-shot response carries both the narrative and the annotations,
// so it doubles as the one merged batch.
func (o *Orchestrator) fallback(ctx context.Context, summary aggregate.Summary, entities []aggregate.EntityStats, cause error) (Outcome, error) {
	if ctx.Err() != nil {
		// The caller aborted; partial results from prior batches stay
		// with the caller, but no new generation is attempted.
		return Outcome{}, ctx.Err()
	}
	o.log.Warn("batched generation failed, falling back to single-shot", zap.Error(cause))

	text, err := o.RunSingle(ctx, summary, entities)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Overall: text, PerBatch: []string{text}, UsedFallback: true}, nil
}

// generate issues one call under the per-call inactivity ceiling. A
// timeout is a channel failure for fallback purposes, not a hang.
func (o *Orchestrator) generate(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.analysis.RequestTimeoutDuration())
	defer cancel()
	return o.client.Generate(callCtx, req)
}
