package report

import (
	"encoding/json"
	"time"

	"classlens/internal/aggregate"
)

// FinalReport is the assembled output of one analysis session, handed to
// the external renderer. Every student found across all batches has
// exactly one evaluation; students the generation channel failed to
// annotate are listed, not hidden.
type FinalReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Overall     string       `json:"overall"`
	Evaluations []Evaluation `json:"evaluations"`

	Summary     aggregate.Summary `json:"summary"`
	Validations []Validation      `json:"validations,omitempty"`

	// MissingNarratives lists students that were aggregated but received
	// no evaluation from any batch.
	MissingNarratives []string `json:"missing_narratives,omitempty"`

	// DuplicateEvaluations lists students annotated by more than one
	// batch; the first occurrence was kept.
	DuplicateEvaluations []string `json:"duplicate_evaluations,omitempty"`

	Batched      bool `json:"batched"`
	UsedFallback bool `json:"used_fallback"`
}

// MissingFor computes the aggregated students that ended up without an
// evaluation.
func MissingFor(entities []aggregate.EntityStats, evals []Evaluation) []string {
	have := make(map[string]bool, len(evals))
	for _, ev := range evals {
		have[ev.EntityID] = true
	}
	var missing []string
	for _, e := range entities {
		if !have[e.ID] {
			missing = append(missing, e.ID)
		}
	}
	return missing
}

// JSON encodes the report for the rendering hand-off.
func (r *FinalReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
