// Package report checks generated batch text against the annotation
// contract and assembles the final report model handed to the external
// renderer.
package report

import (
	"strings"

	"classlens/internal/aggregate"
	"classlens/internal/markers"
)

// Validation is the per-batch contract check. It is data, never an
// error: an invalid batch is logged and tolerated, the merger still
// extracts whatever well-formed pairs it contains.
type Validation struct {
	BatchIndex    int      `json:"batch_index"`
	ExpectedIDs   []string `json:"expected_ids"`
	FoundIDs      []string `json:"found_ids"`
	MissingIDs    []string `json:"missing_ids"`
	ExtraIDs      []string `json:"extra_ids"`
	HasTerminator bool     `json:"has_terminator"`
	IsValid       bool     `json:"is_valid"`
}

// Validate checks one batch response against the students it was asked
// to cover. Markers carry display names; found names are translated back
// to ids where the expected set knows them, unexpected names pass
// through verbatim so the report stays readable.
func Validate(batchIndex int, raw string, expected []aggregate.EntityStats) Validation {
	v := Validation{BatchIndex: batchIndex}

	idByName := make(map[string]string, len(expected))
	for _, e := range expected {
		v.ExpectedIDs = append(v.ExpectedIDs, e.ID)
		idByName[e.DisplayName] = e.ID
	}

	found := make(map[string]bool)
	for _, m := range markers.StartPattern.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		id, known := idByName[name]
		if !known {
			id = name
		}
		if found[id] {
			continue
		}
		found[id] = true
		v.FoundIDs = append(v.FoundIDs, id)
		if !known {
			v.ExtraIDs = append(v.ExtraIDs, name)
		}
	}

	for _, id := range v.ExpectedIDs {
		if !found[id] {
			v.MissingIDs = append(v.MissingIDs, id)
		}
	}

	v.HasTerminator = strings.Contains(raw, markers.Terminator)
	v.IsValid = len(v.MissingIDs) == 0 && len(v.ExtraIDs) == 0 && v.HasTerminator
	return v
}
