package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlens/internal/integrate"
	"classlens/internal/roster"
)

func ptr(f float64) *float64 { return &f }

func rec(id, name, cat, ts string, score *float64) integrate.Merged {
	return integrate.Merged{
		Record: integrate.Record{
			ID: id, DisplayName: name, Category: cat, Timestamp: ts, Score: score,
		},
		MergedCount: 1,
	}
}

func testRoster() *roster.Index {
	return roster.Build([]roster.RawRow{
		{"id": "1", "name": "Ann"},
		{"id": "2", "name": "Bo"},
		{"id": "3", "name": "Cy"},
	})
}

func TestAggregate_CounterInvariant(t *testing.T) {
	records := []integrate.Merged{
		rec("1", "Ann", "Math", "2024-01-10", ptr(1)),
		rec("1", "Ann", "Math", "2024-01-11", ptr(0)),
		rec("1", "Ann", "Sci", "2024-01-12", nil),
		rec("1", "Ann", "Sci", "2024-01-13", ptr(0.5)),
	}

	active, _ := Aggregate(records, testRoster())
	require.Len(t, active, 1)
	st := active[0]

	assert.Equal(t, st.ParticipationCount, st.PositiveCount+st.ZeroCount+st.UnscoredCount)
	assert.Equal(t, 4, st.ParticipationCount)
	assert.Equal(t, 2, st.PositiveCount)
	assert.Equal(t, 1, st.ZeroCount)
	assert.Equal(t, 1, st.UnscoredCount)

	// Only strictly positive scores contribute to the total.
	assert.Equal(t, 1.5, st.TotalScore)
}

func TestAggregate_CategoryAndTimeBuckets(t *testing.T) {
	records := []integrate.Merged{
		rec("1", "Ann", "Math", "2024-01-10", ptr(1)),
		rec("1", "Ann", "Math", "2024-02-01", ptr(1)),
		rec("1", "Ann", "Sci", "2024年2月3日", ptr(1)),
		rec("1", "Ann", "", "not a date", nil),
	}

	active, _ := Aggregate(records, testRoster())
	require.Len(t, active, 1)
	st := active[0]

	assert.Equal(t, 2, st.Categories["Math"].Count)
	assert.Equal(t, 1, st.Categories["Sci"].Count)
	assert.NotContains(t, st.Categories, "")

	assert.Equal(t, 1, st.TimeBuckets["2024-01"].Count)
	assert.Equal(t, 2, st.TimeBuckets["2024-02"].Count)
	assert.Equal(t, 1, st.TimeBuckets["unknown"].Count)
}

func TestAggregate_TrendThresholds(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		want  Trend
	}{
		{"excellent at 0.8", 0.8, TrendExcellent},
		{"good at 0.5", 0.5, TrendGood},
		{"improving at 0.3", 0.3, TrendImproving},
		{"needs attention below", 0.2, TrendNeedsAttention},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			active, _ := Aggregate([]integrate.Merged{
				rec("1", "Ann", "Math", "2024-01-10", ptr(tc.score)),
			}, testRoster())
			require.Len(t, active, 1)
			assert.Equal(t, tc.want, active[0].Trend)
		})
	}
}

func TestAggregate_InactiveSetDifference(t *testing.T) {
	records := []integrate.Merged{
		rec("1", "Ann", "Math", "2024-01-10", ptr(1)),
	}

	active, inactive := Aggregate(records, testRoster())

	require.Len(t, active, 1)
	require.Len(t, inactive, 2)
	assert.Equal(t, "2", inactive[0].ID)
	assert.Equal(t, "3", inactive[1].ID)
}

func TestAggregate_OrderByParticipationThenRoster(t *testing.T) {
	records := []integrate.Merged{
		rec("3", "Cy", "Math", "2024-01-10", ptr(1)),
		rec("2", "Bo", "Math", "2024-01-10", ptr(1)),
		rec("2", "Bo", "Math", "2024-01-11", ptr(1)),
		rec("1", "Ann", "Math", "2024-01-10", ptr(1)),
	}

	active, _ := Aggregate(records, testRoster())
	require.Len(t, active, 3)

	// Bo participates twice, Ann and Cy once each; roster order breaks
	// the tie in Ann's favor.
	assert.Equal(t, "2", active[0].ID)
	assert.Equal(t, "1", active[1].ID)
	assert.Equal(t, "3", active[2].ID)
}

func TestTimeBucket(t *testing.T) {
	cases := map[string]string{
		"2024年1月10日": "2024-01",
		"2024-01-10":  "2024-01",
		"2024/1/5":    "2024-01",
		"2024/01/05":  "2024-01",
		"":            "unknown",
		"sometime":    "unknown",
	}
	for in, want := range cases {
		assert.Equal(t, want, timeBucket(in), "input %q", in)
	}
}

func TestBuildSummary(t *testing.T) {
	res := integrate.Result{
		TotalRows:    3,
		MatchedCount: 2,
		MatchRate:    2.0 / 3.0,
		Unmatched:    []integrate.Unmatched{{Reason: "no roster match"}},
	}
	active := []EntityStats{{ID: "1"}}
	inactive := []roster.Entry{{ID: "2"}, {ID: "3"}}

	s := BuildSummary(res, active, inactive, 3)
	assert.Equal(t, 3, s.TotalRows)
	assert.Equal(t, 2, s.MatchedCount)
	assert.Equal(t, 1, s.UnmatchedCount)
	assert.Equal(t, 1, s.ActiveCount)
	assert.Equal(t, 2, s.InactiveCount)
	assert.Equal(t, 3, s.EnrolledCount)
}
