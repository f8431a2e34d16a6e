package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlens/internal/aggregate"
	"classlens/internal/markers"
)

func annotated(name, body string) string {
	return fmt.Sprintf("%s\n%s\n%s\n", markers.Start(name), body, markers.End(name))
}

func expectedSet(names ...string) []aggregate.EntityStats {
	out := make([]aggregate.EntityStats, 0, len(names))
	for i, n := range names {
		out = append(out, aggregate.EntityStats{
			ID:          fmt.Sprintf("%d", i+1),
			DisplayName: n,
		})
	}
	return out
}

func TestValidate_MissingStudent(t *testing.T) {
	raw := annotated("A", "did well") + annotated("C", "improving") + markers.Terminator

	v := Validate(0, raw, expectedSet("A", "B", "C"))

	assert.Equal(t, []string{"1", "3"}, v.FoundIDs)
	assert.Equal(t, []string{"2"}, v.MissingIDs)
	assert.Empty(t, v.ExtraIDs)
	assert.True(t, v.HasTerminator)
	assert.False(t, v.IsValid)
}

func TestValidate_Valid(t *testing.T) {
	raw := annotated("A", "x") + annotated("B", "y") + markers.Terminator

	v := Validate(2, raw, expectedSet("A", "B"))

	assert.Equal(t, 2, v.BatchIndex)
	assert.True(t, v.IsValid)
	assert.Empty(t, v.MissingIDs)
	assert.Empty(t, v.ExtraIDs)
}

func TestValidate_ExtraStudent(t *testing.T) {
	raw := annotated("A", "x") + annotated("Zed", "who?") + markers.Terminator

	v := Validate(0, raw, expectedSet("A"))

	assert.Equal(t, []string{"Zed"}, v.ExtraIDs)
	assert.False(t, v.IsValid)
}

func TestValidate_NoTerminator(t *testing.T) {
	raw := annotated("A", "x")

	v := Validate(0, raw, expectedSet("A"))

	assert.False(t, v.HasTerminator)
	assert.False(t, v.IsValid)
	assert.Empty(t, v.MissingIDs)
}

func TestValidate_DuplicateMarkerCountedOnce(t *testing.T) {
	raw := annotated("A", "x") + annotated("A", "again") + markers.Terminator

	v := Validate(0, raw, expectedSet("A"))

	assert.Equal(t, []string{"1"}, v.FoundIDs)
	assert.True(t, v.IsValid)
}

func TestExtract(t *testing.T) {
	t.Run("recovers pairs in text order", func(t *testing.T) {
		raw := "preamble\n" + annotated("Ann", "good effort") + "noise\n" + annotated("Bo", "solid")
		evals := Extract(raw)

		require.Len(t, evals, 2)
		assert.Equal(t, "Ann", evals[0].DisplayName)
		assert.Equal(t, "good effort", evals[0].Body)
		assert.Equal(t, "Bo", evals[1].DisplayName)
	})

	t.Run("mismatched pair is skipped", func(t *testing.T) {
		raw := markers.Start("Ann") + "text" + markers.End("Bo")
		assert.Empty(t, Extract(raw))
	})

	t.Run("broken pair does not swallow the next one", func(t *testing.T) {
		// Ann's end marker never arrives; Bo's well-formed span right
		// after it must still be recovered.
		raw := markers.Start("Ann") + "\nunterminated\n" + annotated("Bo", "solid") + markers.Terminator
		evals := Extract(raw)

		require.Len(t, evals, 1)
		assert.Equal(t, "Bo", evals[0].DisplayName)
		assert.Equal(t, "solid", evals[0].Body)
	})

	t.Run("no markers yields nothing", func(t *testing.T) {
		assert.Empty(t, Extract("just prose, no annotations"))
	})
}

func TestMerge_FirstSeenWins(t *testing.T) {
	entities := expectedSet("X", "Y")
	lookup := IDLookup(entities)

	batch1 := annotated("X", "from batch one")
	batch2 := annotated("X", "from batch two") + annotated("Y", "only here")

	// Merge is deterministic: repeated invocations always keep batch
	// one's text for the duplicated student.
	for i := 0; i < 5; i++ {
		evals, dups := Merge([]string{batch1, batch2}, lookup)

		require.Len(t, evals, 2)
		assert.Equal(t, "from batch one", evals[0].Body)
		assert.Equal(t, "1", evals[0].EntityID)
		assert.Equal(t, "only here", evals[1].Body)
		assert.Equal(t, []string{"1"}, dups)
	}
}

func TestMerge_UnknownNameKeepsNameAsID(t *testing.T) {
	evals, _ := Merge([]string{annotated("Mystery", "???")}, map[string]string{})
	require.Len(t, evals, 1)
	assert.Equal(t, "Mystery", evals[0].EntityID)
}

func TestMerge_PartialCredit(t *testing.T) {
	// A batch without a terminator is invalid per Validate, yet its
	// well-formed pairs still contribute.
	raw := annotated("X", "kept") // no terminator
	evals, _ := Merge([]string{raw}, map[string]string{"X": "1"})
	require.Len(t, evals, 1)
	assert.Equal(t, "kept", evals[0].Body)
}

func TestSortByEntityOrder(t *testing.T) {
	entities := expectedSet("A", "B", "C")
	evals := []Evaluation{
		{EntityID: "3", DisplayName: "C"},
		{EntityID: "1", DisplayName: "A"},
		{EntityID: "Stranger", DisplayName: "Stranger"},
	}

	sorted := SortByEntityOrder(evals, entities)
	require.Len(t, sorted, 3)
	assert.Equal(t, "1", sorted[0].EntityID)
	assert.Equal(t, "3", sorted[1].EntityID)
	assert.Equal(t, "Stranger", sorted[2].EntityID)
}

func TestMissingFor(t *testing.T) {
	entities := expectedSet("A", "B", "C")
	evals := []Evaluation{{EntityID: "2"}}

	assert.Equal(t, []string{"1", "3"}, MissingFor(entities, evals))
}

func TestFinalReport_JSON(t *testing.T) {
	r := &FinalReport{RunID: "run-1", Overall: "narrative"}
	data, err := r.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}
