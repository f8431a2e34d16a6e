// Package session owns one full analysis run: roster build, activity
// integration, aggregation, batch planning, generation, validation and
// merging. Every intermediate value is owned by the session and dies
// with it; nothing is shared across runs.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classlens/internal/aggregate"
	"classlens/internal/batch"
	"classlens/internal/config"
	"classlens/internal/integrate"
	"classlens/internal/llm"
	"classlens/internal/orchestrate"
	"classlens/internal/prompt"
	"classlens/internal/report"
	"classlens/internal/roster"
)

// Session runs one analysis end to end.
type Session struct {
	cfg    *config.Config
	client llm.Client
	log    *zap.Logger
	runID  string
}

// New creates a session with a fresh run id.
func New(cfg *config.Config, client llm.Client, log *zap.Logger) *Session {
	runID := uuid.NewString()
	return &Session{
		cfg:    cfg,
		client: client,
		log:    log.Named("session").With(zap.String("run_id", runID)),
		runID:  runID,
	}
}

// Run executes the pipeline over already-decoded rows. The only
// suspension points are the generation calls; everything before them is
// synchronous and in-memory.
func (s *Session) Run(ctx context.Context, rosterRows, activityRows []roster.RawRow) (*report.FinalReport, error) {
	idx := roster.Build(rosterRows)
	s.log.Info("roster built", zap.Int("enrolled", idx.Size()))

	res := integrate.Integrate(activityRows, idx)
	s.log.Info("activity integrated",
		zap.Int("rows", res.TotalRows),
		zap.Int("matched", res.MatchedCount),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.Float64("match_rate", res.MatchRate))
	for _, a := range res.Anomalies {
		s.log.Debug("row dropped", zap.String("reason", a.Reason))
	}

	active, inactive := aggregate.Aggregate(res.Records, idx)
	summary := aggregate.BuildSummary(res, active, inactive, idx.Size())
	s.log.Info("aggregated",
		zap.Int("active", len(active)),
		zap.Int("inactive", len(inactive)))

	rep := &report.FinalReport{
		RunID:       s.runID,
		GeneratedAt: time.Now(),
		Summary:     summary,
	}

	if len(active) == 0 {
		// Nothing to narrate; the summary alone is still a renderable
		// report.
		s.log.Warn("no active students, skipping generation")
		return rep, nil
	}

	composer := prompt.NewComposer(s.cfg.Analysis, s.cfg.LLM)
	orch := orchestrate.New(s.client, composer, s.cfg.Analysis, s.log.Named("orchestrate"))

	batched := len(active) > s.cfg.Analysis.SingleShotThreshold
	rep.Batched = batched

	var perBatch []string
	if !batched {
		text, err := orch.RunSingle(ctx, summary, active)
		if err != nil {
			return nil, err
		}
		rep.Overall = text
		perBatch = []string{text}
		if s.cfg.Analysis.UseAnnotations {
			rep.Validations = append(rep.Validations, report.Validate(0, text, active))
		}
	} else {
		batches, err := batch.Plan(active, s.cfg.Analysis.BatchSize)
		if err != nil {
			return nil, err
		}
		s.log.Info("batched mode", zap.Int("batches", len(batches)))

		outcome, err := orch.RunBatches(ctx, summary, active, batches)
		if err != nil {
			return nil, err
		}
		rep.Overall = outcome.Overall
		rep.UsedFallback = outcome.UsedFallback
		perBatch = outcome.PerBatch

		switch {
		case !s.cfg.Analysis.UseAnnotations:
			// No contract was requested, so there is nothing to check.
		case outcome.UsedFallback:
			rep.Validations = append(rep.Validations, report.Validate(0, outcome.Overall, active))
		default:
			for i, b := range batches {
				v := report.Validate(b.Index, perBatch[i], b.Entities)
				if !v.IsValid {
					s.log.Warn("batch violates annotation contract",
						zap.Int("batch", b.Index),
						zap.Strings("missing", v.MissingIDs),
						zap.Strings("extra", v.ExtraIDs),
						zap.Bool("terminator", v.HasTerminator))
				}
				rep.Validations = append(rep.Validations, v)
			}
		}
	}

	if s.cfg.Analysis.UseAnnotations {
		evals, dups := report.Merge(perBatch, report.IDLookup(active))
		for _, id := range dups {
			s.log.Info("duplicate evaluation, kept first", zap.String("id", id))
		}
		rep.Evaluations = evals
		rep.DuplicateEvaluations = dups
		rep.MissingNarratives = report.MissingFor(active, evals)
		if n := len(rep.MissingNarratives); n > 0 {
			s.log.Warn("students missing narratives", zap.Int("count", n))
		}
	}

	s.log.Info("report assembled",
		zap.Int("evaluations", len(rep.Evaluations)),
		zap.Bool("batched", rep.Batched),
		zap.Bool("fallback", rep.UsedFallback))
	return rep, nil
}
