package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"classlens/internal/aggregate"
	"classlens/internal/batch"
	"classlens/internal/config"
	"classlens/internal/markers"
	"classlens/internal/roster"
)

func testComposer(useAnnotations bool) *Composer {
	analysis := config.DefaultConfig().Analysis
	analysis.UseAnnotations = useAnnotations
	return NewComposer(analysis, config.LLMConfig{Model: "test-model", Temperature: 0.7})
}

func entity(id, name string, participation int) aggregate.EntityStats {
	return aggregate.EntityStats{
		ID:                 id,
		DisplayName:        name,
		ParticipationCount: participation,
		PositiveCount:      participation,
		TotalScore:         float64(participation),
		Trend:              aggregate.TrendGood,
	}
}

func TestComposeOverall(t *testing.T) {
	summary := aggregate.Summary{
		TotalRows:     10,
		MatchedCount:  8,
		MatchRate:     0.8,
		EnrolledCount: 3,
		ActiveCount:   2,
		InactiveCount: 1,
		Inactive:      []roster.Entry{{ID: "3", DisplayName: "Cy"}},
	}
	entities := []aggregate.EntityStats{
		entity("1", "Ann", 4),
		entity("2", "Bo", 2),
	}

	req := testComposer(true).ComposeOverall(summary, entities)

	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 0.7, req.Temperature)

	assert.Contains(t, req.Text, "Enrolled students: 3")
	assert.Contains(t, req.Text, "match rate 80.0%")
	assert.Contains(t, req.Text, "no recorded activity: Cy")
	assert.Contains(t, req.Text, "Ann (id 1)")
	assert.Contains(t, req.Text, "Bo (id 2)")

	// Annotation contract is spelled out with the exact marker syntax.
	assert.Contains(t, req.Text, markers.Start("StudentName"))
	assert.Contains(t, req.Text, markers.End("StudentName"))
	assert.Contains(t, req.Text, markers.Terminator)
}

func TestComposeOverall_AnnotationsDisabled(t *testing.T) {
	req := testComposer(false).ComposeOverall(aggregate.Summary{}, nil)
	assert.NotContains(t, req.Text, markers.Terminator)
	assert.NotContains(t, req.Text, markers.Start("StudentName"))
}

func TestComposeClassContext_NeverRequestsAnnotations(t *testing.T) {
	// Even with annotations enabled, the batched-mode first call asks
	// only for the class narrative; batches cover the students.
	req := testComposer(true).ComposeClassContext(aggregate.Summary{}, []aggregate.EntityStats{entity("1", "Ann", 1)})
	assert.NotContains(t, req.Text, markers.Terminator)
	assert.Contains(t, req.Text, "Ann (id 1)")
}

func TestComposeBatch(t *testing.T) {
	b := batch.Batch{
		Index: 1,
		Total: 3,
		Entities: []aggregate.EntityStats{
			entity("16", "Pia", 5),
		},
	}

	req := testComposer(true).ComposeBatch(b, "The class did well overall.")

	assert.Contains(t, req.Text, "batch 2 of 3")
	assert.Contains(t, req.Text, "The class did well overall.")
	assert.Contains(t, req.Text, "read-only context")
	assert.Contains(t, req.Text, "Pia (id 16)")
	assert.Contains(t, req.Text, markers.Terminator)
}

func TestComposeBatch_AnnotationsDisabled(t *testing.T) {
	b := batch.Batch{Index: 0, Total: 1, Entities: []aggregate.EntityStats{entity("1", "Ann", 1)}}

	req := testComposer(false).ComposeBatch(b, "narrative")

	assert.NotContains(t, req.Text, markers.Terminator)
	assert.NotContains(t, req.Text, markers.Start("StudentName"))
	assert.Contains(t, req.Text, "Ann (id 1)")
}

func TestComposeBatch_PromptsTextuallyIndependent(t *testing.T) {
	c := testComposer(true)
	overall := "Shared class narrative."

	b1 := batch.Batch{Index: 0, Total: 2, Entities: []aggregate.EntityStats{entity("1", "Ann", 1)}}
	b2 := batch.Batch{Index: 1, Total: 2, Entities: []aggregate.EntityStats{entity("2", "Bo", 1)}}

	r1 := c.ComposeBatch(b1, overall)
	r2 := c.ComposeBatch(b2, overall)

	// Batch prompts share only the overall-context paragraph: batch 2
	// never mentions batch 1's students, so prompt size stays bounded
	// regardless of total batch count.
	assert.NotContains(t, r2.Text, "Ann")
	assert.NotContains(t, r1.Text, "Bo")
	assert.Contains(t, r1.Text, overall)
	assert.Contains(t, r2.Text, overall)
}

func TestStatsLine(t *testing.T) {
	e := aggregate.EntityStats{
		ID:                 "1",
		DisplayName:        "Ann",
		ParticipationCount: 3,
		PositiveCount:      2,
		ZeroCount:          1,
		TotalScore:         2.5,
		Trend:              aggregate.TrendExcellent,
		Categories: map[string]aggregate.BucketStats{
			"Math": {Count: 2, TotalScore: 2},
			"Art":  {Count: 1, TotalScore: 0.5},
		},
		TimeBuckets: map[string]aggregate.BucketStats{
			"2024-01": {Count: 3, TotalScore: 2.5},
		},
	}

	line := statsLine(e)
	assert.Contains(t, line, "3 participations")
	assert.Contains(t, line, "total score 2.5")
	assert.Contains(t, line, "trend excellent")
	// Categories are sorted for deterministic prompts.
	assert.Less(t, strings.Index(line, "Art"), strings.Index(line, "Math"))
	assert.Contains(t, line, "2024-01 3 (score 2.5)")
}
