// Package batch partitions the aggregated student list into fixed-size
// batches for bounded generation requests.
package batch

import (
	"errors"

	"classlens/internal/aggregate"
)

// ErrInvalidSize is returned when the requested batch size is below 1.
var ErrInvalidSize = errors.New("batch size must be at least 1")

// Batch is one contiguous slice of the student list. Concatenating all
// batches in index order reproduces the input exactly.
type Batch struct {
	Index    int                     `json:"index"`
	Total    int                     `json:"total"`
	Entities []aggregate.EntityStats `json:"entities"`
}

// Plan splits entities strictly sequentially: batch k holds
// [k*size, (k+1)*size). No shuffling, no rebalancing.
func Plan(entities []aggregate.EntityStats, size int) ([]Batch, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	if len(entities) == 0 {
		return nil, nil
	}

	total := (len(entities) + size - 1) / size
	batches := make([]Batch, 0, total)
	for i := 0; i < len(entities); i += size {
		end := i + size
		if end > len(entities) {
			end = len(entities)
		}
		batches = append(batches, Batch{
			Index:    len(batches),
			Total:    total,
			Entities: entities[i:end],
		})
	}
	return batches, nil
}
