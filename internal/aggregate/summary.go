package aggregate

import (
	"classlens/internal/integrate"
	"classlens/internal/roster"
)

// Summary carries the session-level counters that accompany the final
// report and feed the class-level prompt.
type Summary struct {
	TotalRows      int     `json:"total_rows"`
	MatchedCount   int     `json:"matched_count"`
	UnmatchedCount int     `json:"unmatched_count"`
	AnomalyCount   int     `json:"anomaly_count"`
	MatchRate      float64 `json:"match_rate"`
	EnrolledCount  int     `json:"enrolled_count"`
	ActiveCount    int     `json:"active_count"`
	InactiveCount  int     `json:"inactive_count"`

	// Inactive lists roster members with zero aggregated records, in
	// roster order.
	Inactive []roster.Entry `json:"inactive,omitempty"`
}

// BuildSummary assembles the counters from an integration result and the
// aggregation outputs.
func BuildSummary(res integrate.Result, active []EntityStats, inactive []roster.Entry, enrolled int) Summary {
	return Summary{
		TotalRows:      res.TotalRows,
		MatchedCount:   res.MatchedCount,
		UnmatchedCount: len(res.Unmatched),
		AnomalyCount:   len(res.Anomalies),
		MatchRate:      res.MatchRate,
		EnrolledCount:  enrolled,
		ActiveCount:    len(active),
		InactiveCount:  len(inactive),
		Inactive:       inactive,
	}
}
