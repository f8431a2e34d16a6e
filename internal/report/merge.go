package report

import (
	"strings"

	"classlens/internal/aggregate"
	"classlens/internal/markers"
)

// Evaluation is one student's narrative recovered from generated text.
// EntityID is the roster id when the marker name is known, otherwise the
// marker name itself.
type Evaluation struct {
	EntityID    string `json:"entity_id"`
	DisplayName string `json:"display_name"`
	Body        string `json:"body"`
}

// Extract recovers every well-formed start/body/end span from one batch
// response, in text order. The scan takes one start marker at a time and
// looks forward for that student's exact end marker; when it is absent
// the scan resumes right after the start marker, so a broken pair never
// swallows a later well-formed one. A batch does not need to be fully
// valid to contribute the pairs it does contain.
func Extract(raw string) []Evaluation {
	var out []Evaluation
	rest := raw
	for {
		loc := markers.StartPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			return out
		}
		name := rest[loc[2]:loc[3]]
		rest = rest[loc[1]:]

		end := markers.End(name)
		i := strings.Index(rest, end)
		if i < 0 {
			continue
		}
		out = append(out, Evaluation{
			DisplayName: name,
			Body:        strings.TrimSpace(rest[:i]),
		})
		rest = rest[i+len(end):]
	}
}

// Merge concatenates per-batch extractions in batch order, deduplicating
// by student identity: the first occurrence wins, later duplicates are
// dropped and returned for logging. Output keeps first-seen order across
// batches.
func Merge(perBatchRaw []string, idByName map[string]string) (evals []Evaluation, duplicates []string) {
	seen := make(map[string]bool)
	for _, raw := range perBatchRaw {
		for _, ev := range Extract(raw) {
			if id, ok := idByName[ev.DisplayName]; ok {
				ev.EntityID = id
			} else {
				ev.EntityID = ev.DisplayName
			}
			if seen[ev.EntityID] {
				duplicates = append(duplicates, ev.EntityID)
				continue
			}
			seen[ev.EntityID] = true
			evals = append(evals, ev)
		}
	}
	return evals, duplicates
}

// IDLookup builds the display name -> id translation from the
// aggregated student list.
func IDLookup(entities []aggregate.EntityStats) map[string]string {
	m := make(map[string]string, len(entities))
	for _, e := range entities {
		m[e.DisplayName] = e.ID
	}
	return m
}

// SortByEntityOrder reorders merged evaluations to match the aggregated
// student order, appending evaluations for unknown students at the end
// in their merged order. The merger itself keeps first-seen order; this
// is the opt-in for renderers that want roster-stable output.
func SortByEntityOrder(evals []Evaluation, entities []aggregate.EntityStats) []Evaluation {
	pos := make(map[string]int, len(entities))
	for i, e := range entities {
		pos[e.ID] = i
	}

	ordered := make([]Evaluation, 0, len(evals))
	var unknown []Evaluation
	byID := make(map[string]Evaluation, len(evals))
	for _, ev := range evals {
		if _, ok := pos[ev.EntityID]; ok {
			byID[ev.EntityID] = ev
		} else {
			unknown = append(unknown, ev)
		}
	}
	for _, e := range entities {
		if ev, ok := byID[e.ID]; ok {
			ordered = append(ordered, ev)
		}
	}
	return append(ordered, unknown...)
}
