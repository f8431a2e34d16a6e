package prompt

import (
	"fmt"
	"sort"
	"strings"

	"classlens/internal/aggregate"
	"classlens/internal/batch"
	"classlens/internal/config"
	"classlens/internal/llm"
	"classlens/internal/markers"
)

// Composer renders generation requests. Policy comes from the explicit
// config values passed at construction; the composer never reads ambient
// state.
type Composer struct {
	analysis config.AnalysisConfig
	llm      config.LLMConfig
	engine   *Engine
}

// NewComposer creates a composer bound to the session's options.
func NewComposer(analysis config.AnalysisConfig, llmCfg config.LLMConfig) *Composer {
	return &Composer{
		analysis: analysis,
		llm:      llmCfg,
		engine:   NewEngine(),
	}
}

const overallTemplate = `You are an experienced homeroom teacher writing a class performance report from activity statistics.

Class overview:
- Enrolled students: {{enrolled}}
- Students with recorded activity: {{active}}
- Activity rows analyzed: {{total_rows}} ({{matched}} matched, match rate {{match_rate}})
{{#if inactive_names}}- Students with no recorded activity: {{inactive_names}}
{{/if}}
Per-student statistics:
{{#each students}}- {{this.name}} (id {{this.id}}): {{this.stats}}
{{/each}}
Write a cohesive class-level narrative covering overall participation, score distribution, and notable patterns. Do not invent facts beyond the statistics above.
{{#if annotations}}
After the narrative, write one evaluation per student listed above, {{min_length}}-{{max_length}} characters each, grounded in that student's statistics.

Output contract (non-negotiable):
- Wrap each evaluation exactly as:
{{start_example}}
...evaluation text...
{{end_example}}
  where StudentName is the student's name copied verbatim from the list above.
- After the final evaluation, output {{terminator}} on its own line.
{{/if}}`

const batchTemplate = `You are continuing a class performance report.
{{#if overall}}
CLASS NARRATIVE (read-only context, do not restate or revise it):
{{overall}}
{{/if}}
This is batch {{batch_number}} of {{batch_total}}. Evaluate ONLY the following students:
{{#each students}}- {{this.name}} (id {{this.id}}): {{this.stats}}
{{/each}}
Write one evaluation per student listed above, {{min_length}}-{{max_length}} characters each, grounded in that student's statistics and consistent with the class narrative.
{{#if annotations}}
Output contract (non-negotiable):
- Wrap each evaluation exactly as:
{{start_example}}
...evaluation text...
{{end_example}}
  where StudentName is the student's name copied verbatim from the list above.
- Evaluate every student in this batch and no one else.
- After the final evaluation of this batch, output {{terminator}} on its own line.
{{/if}}`

// ComposeOverall builds the single-shot request: class narrative plus,
// when annotations are enabled, one annotated evaluation per student.
func (c *Composer) ComposeOverall(summary aggregate.Summary, entities []aggregate.EntityStats) llm.Request {
	return c.composeOverall(summary, entities, c.analysis.UseAnnotations)
}

// ComposeClassContext builds the class-narrative-only request issued
// first in batched mode. Per-student evaluations are never requested
// here; the batches cover them.
func (c *Composer) ComposeClassContext(summary aggregate.Summary, entities []aggregate.EntityStats) llm.Request {
	return c.composeOverall(summary, entities, false)
}

func (c *Composer) composeOverall(summary aggregate.Summary, entities []aggregate.EntityStats, annotations bool) llm.Request {
	inactiveNames := make([]string, 0, len(summary.Inactive))
	for _, e := range summary.Inactive {
		inactiveNames = append(inactiveNames, e.DisplayName)
	}

	data := map[string]any{
		"enrolled":       summary.EnrolledCount,
		"active":         summary.ActiveCount,
		"total_rows":     summary.TotalRows,
		"matched":        summary.MatchedCount,
		"match_rate":     fmt.Sprintf("%.1f%%", summary.MatchRate*100),
		"inactive_names": strings.Join(inactiveNames, ", "),
		"students":       studentRows(entities),
		"annotations":    annotations,
		"min_length":     c.analysis.MinLength,
		"max_length":     c.analysis.MaxLength,
		"start_example":  markers.Start("StudentName"),
		"end_example":    markers.End("StudentName"),
		"terminator":     markers.Terminator,
	}

	return c.request(c.engine.Render(overallTemplate, data))
}

// ComposeBatch builds the request for one batch. The previously
// generated class narrative is embedded as read-only context so batch
// prompts stay textually independent of each other and bounded in size.
// The annotation contract follows the same toggle as the single-shot
// prompt.
func (c *Composer) ComposeBatch(b batch.Batch, overallContext string) llm.Request {
	data := map[string]any{
		"overall":       overallContext,
		"batch_number":  b.Index + 1,
		"batch_total":   b.Total,
		"students":      studentRows(b.Entities),
		"annotations":   c.analysis.UseAnnotations,
		"min_length":    c.analysis.MinLength,
		"max_length":    c.analysis.MaxLength,
		"start_example": markers.Start("StudentName"),
		"end_example":   markers.End("StudentName"),
		"terminator":    markers.Terminator,
	}

	return c.request(c.engine.Render(batchTemplate, data))
}

func (c *Composer) request(text string) llm.Request {
	return llm.Request{
		Text:        text,
		Model:       c.llm.Model,
		Temperature: c.llm.Temperature,
	}
}

func studentRows(entities []aggregate.EntityStats) []map[string]any {
	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, map[string]any{
			"id":    e.ID,
			"name":  e.DisplayName,
			"stats": statsLine(e),
		})
	}
	return rows
}

// statsLine renders one student's statistics as a compact prompt line.
func statsLine(e aggregate.EntityStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d participations (%d scored positive, %d zero, %d unscored), total score %s, trend %s",
		e.ParticipationCount, e.PositiveCount, e.ZeroCount, e.UnscoredCount,
		trimFloat(e.TotalScore), e.Trend)

	if s := bucketLine(e.Categories); s != "" {
		b.WriteString("; by category: ")
		b.WriteString(s)
	}
	if s := bucketLine(e.TimeBuckets); s != "" {
		b.WriteString("; by month: ")
		b.WriteString(s)
	}
	return b.String()
}

func bucketLine(buckets map[string]aggregate.BucketStats) string {
	if len(buckets) == 0 {
		return ""
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d (score %s)", k, buckets[k].Count, trimFloat(buckets[k].TotalScore)))
	}
	return strings.Join(parts, ", ")
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
