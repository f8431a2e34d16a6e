// Package aggregate groups merged activity records per student and
// computes the statistics the narrative prompts are built from:
// participation and score counters, category and month breakdowns, and a
// coarse trend classification.
package aggregate

import (
	"sort"
	"time"

	"classlens/internal/integrate"
	"classlens/internal/roster"
)

// Trend is the coarse performance classification derived from the
// average score per participation.
type Trend string

const (
	TrendNeedsAttention Trend = "needs_attention"
	TrendImproving      Trend = "improving"
	TrendGood           Trend = "good"
	TrendExcellent      Trend = "excellent"
)

// Average-score thresholds for trend classification.
const (
	excellentThreshold = 0.8
	goodThreshold      = 0.5
	improvingThreshold = 0.3
)

// unknownBucket collects records whose timestamp matches none of the
// accepted date formats.
const unknownBucket = "unknown"

// BucketStats is a count/total pair for one category or time bucket.
type BucketStats struct {
	Count      int     `json:"count"`
	TotalScore float64 `json:"total_score"`
}

// EntityStats is the per-student aggregation snapshot. Immutable once
// produced; everything downstream (prompt composition, validation)
// reads it without copying.
type EntityStats struct {
	ID                 string                 `json:"id"`
	DisplayName        string                 `json:"display_name"`
	Records            []integrate.Merged     `json:"records"`
	ParticipationCount int                    `json:"participation_count"`
	TotalScore         float64                `json:"total_score"`
	PositiveCount      int                    `json:"positive_count"`
	ZeroCount          int                    `json:"zero_count"`
	UnscoredCount      int                    `json:"unscored_count"`
	Categories         map[string]BucketStats `json:"categories"`
	TimeBuckets        map[string]BucketStats `json:"time_buckets"`
	Trend              Trend                  `json:"trend"`
}

// Aggregate groups records by student id. Only students with at least
// one contributing record appear; roster members with no activity are
// returned separately as the inactive set, in roster order. Output is
// sorted by descending participation, ties broken by roster order.
func Aggregate(records []integrate.Merged, idx *roster.Index) (active []EntityStats, inactive []roster.Entry) {
	byID := make(map[string]*EntityStats)
	var order []string

	for _, rec := range records {
		st, ok := byID[rec.ID]
		if !ok {
			st = &EntityStats{
				ID:          rec.ID,
				DisplayName: rec.DisplayName,
				Categories:  make(map[string]BucketStats),
				TimeBuckets: make(map[string]BucketStats),
			}
			byID[rec.ID] = st
			order = append(order, rec.ID)
		}

		st.Records = append(st.Records, rec)
		st.ParticipationCount++

		var score float64
		switch {
		case rec.Score == nil:
			st.UnscoredCount++
		case *rec.Score > 0:
			st.PositiveCount++
			score = *rec.Score
			st.TotalScore += score
		default:
			st.ZeroCount++
		}

		if rec.Category != "" {
			b := st.Categories[rec.Category]
			b.Count++
			b.TotalScore += score
			st.Categories[rec.Category] = b
		}

		bucket := timeBucket(rec.Timestamp)
		b := st.TimeBuckets[bucket]
		b.Count++
		b.TotalScore += score
		st.TimeBuckets[bucket] = b
	}

	active = make([]EntityStats, 0, len(order))
	for _, id := range order {
		st := byID[id]
		st.Trend = classify(st.TotalScore, st.ParticipationCount)
		active = append(active, *st)
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].ParticipationCount != active[j].ParticipationCount {
			return active[i].ParticipationCount > active[j].ParticipationCount
		}
		pi, iOK := idx.Position(active[i].ID)
		pj, jOK := idx.Position(active[j].ID)
		if iOK && jOK {
			return pi < pj
		}
		return iOK
	})

	for _, entry := range idx.Entries() {
		if _, ok := byID[entry.ID]; !ok {
			inactive = append(inactive, entry)
		}
	}
	return active, inactive
}

func classify(totalScore float64, participation int) Trend {
	if participation == 0 {
		return TrendNeedsAttention
	}
	avg := totalScore / float64(participation)
	switch {
	case avg >= excellentThreshold:
		return TrendExcellent
	case avg >= goodThreshold:
		return TrendGood
	case avg >= improvingThreshold:
		return TrendImproving
	default:
		return TrendNeedsAttention
	}
}

// Accepted timestamp layouts. Both zero-padded and bare month/day digits
// occur in exported sheets.
var dateLayouts = []string{
	"2006年1月2日",
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
}

// timeBucket maps a raw timestamp to its YYYY-MM month bucket, or
// "unknown" when the timestamp is absent or unparseable. Never errors;
// garbage dates are a data condition, not a failure.
func timeBucket(timestamp string) string {
	if timestamp == "" {
		return unknownBucket
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, timestamp); err == nil {
			return t.Format("2006-01")
		}
	}
	return unknownBucket
}
