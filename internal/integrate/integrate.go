// Package integrate joins decoded activity rows against the roster index,
// screens out anomalous rows, and folds near-duplicate rows into merged
// records so a twice-reported event cannot inflate totals.
package integrate

import (
	"classlens/internal/roster"
)

// Score bounds for the validity filter. Values outside are anomalies, not
// legitimate observations.
const (
	minValidScore = 0
	maxValidScore = 100
)

// Record is one successfully matched activity observation. DisplayName
// always comes from the roster, never from the activity row. Score is nil
// when the row carried no parseable score (an unscored participation).
type Record struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Category    string        `json:"category,omitempty"`
	Timestamp   string        `json:"timestamp,omitempty"`
	Score       *float64      `json:"score,omitempty"`
	Raw         roster.RawRow `json:"-"`
}

// Merged is a group of Records sharing (id, timestamp, category), folded
// into one observation keeping the maximum score. MergedCount is how many
// raw records the group absorbed, always >= 1.
type Merged struct {
	Record
	MergedCount int `json:"merged_count"`
}

// Unmatched is an activity row that passed the validity filter but has no
// roster entry. Reported, never aggregated.
type Unmatched struct {
	Record Record `json:"record"`
	Reason string `json:"reason"`
}

// Anomaly is a row dropped by the validity filter before matching. Kept
// out of both matched and unmatched outputs.
type Anomaly struct {
	Row    roster.RawRow `json:"row"`
	Reason string        `json:"reason"`
}

// Result is the full outcome of one integration pass.
type Result struct {
	Records      []Merged    `json:"records"`
	Unmatched    []Unmatched `json:"unmatched"`
	Anomalies    []Anomaly   `json:"anomalies"`
	TotalRows    int         `json:"total_rows"`
	MatchedCount int         `json:"matched_count"` // before dedup
	MatchRate    float64     `json:"match_rate"`
}

const reasonNoRosterMatch = "no roster match"

// Integrate extracts, filters, matches and deduplicates activity rows.
// MatchRate is matched rows over total input rows, defined as 0 for an
// empty input rather than NaN.
func Integrate(rows []roster.RawRow, idx *roster.Index) Result {
	res := Result{TotalRows: len(rows)}
	var matched []Record

	for _, row := range rows {
		id, ok := roster.FirstNonEmpty(row, roster.IDFields)
		if !ok {
			res.Anomalies = append(res.Anomalies, Anomaly{Row: row, Reason: "missing id"})
			continue
		}

		var score *float64
		if s, ok := roster.ExtractScore(row); ok {
			if s < minValidScore || s > maxValidScore {
				res.Anomalies = append(res.Anomalies, Anomaly{Row: row, Reason: "score out of range"})
				continue
			}
			score = &s
		}

		category, _ := roster.FirstNonEmpty(row, roster.CategoryFields)
		timestamp, _ := roster.FirstNonEmpty(row, roster.DateFields)

		rec := Record{
			ID:        id,
			Category:  category,
			Timestamp: timestamp,
			Score:     score,
			Raw:       row,
		}

		name, ok := idx.Lookup(id)
		if !ok {
			// Fall back to whatever name the row itself carries so the
			// unmatched report stays readable.
			rec.DisplayName, _ = roster.FirstNonEmpty(row, roster.NameFields)
			res.Unmatched = append(res.Unmatched, Unmatched{Record: rec, Reason: reasonNoRosterMatch})
			continue
		}
		rec.DisplayName = name
		matched = append(matched, rec)
	}

	res.MatchedCount = len(matched)
	if res.TotalRows > 0 {
		res.MatchRate = float64(res.MatchedCount) / float64(res.TotalRows)
	}
	res.Records = Dedup(matched)
	return res
}

type dedupKey struct {
	id, timestamp, category string
}

// Dedup folds records sharing (id, timestamp, category) into one Merged
// per group, first-seen group order preserved.
func Dedup(records []Record) []Merged {
	wrapped := make([]Merged, len(records))
	for i, r := range records {
		wrapped[i] = Merged{Record: r, MergedCount: 1}
	}
	return DedupMerged(wrapped)
}

// DedupMerged is the merge step over already-merged records: scores take
// the group maximum, counts sum. Applying it to its own output is a
// no-op, which is what makes the fold idempotent.
func DedupMerged(records []Merged) []Merged {
	byKey := make(map[dedupKey]int)
	var out []Merged

	for _, r := range records {
		key := dedupKey{id: r.ID, timestamp: r.Timestamp, category: r.Category}
		i, seen := byKey[key]
		if !seen {
			byKey[key] = len(out)
			out = append(out, r)
			continue
		}
		out[i].MergedCount += r.MergedCount
		if r.Score != nil && (out[i].Score == nil || *r.Score > *out[i].Score) {
			s := *r.Score
			out[i].Score = &s
		}
	}
	return out
}
