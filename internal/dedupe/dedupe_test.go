package dedupe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

func outcome(id, name string, status pipeline.Status) pipeline.OutcomeRecord {
	return pipeline.OutcomeRecord{
		ProductID:        id,
		URL:              "https://shop.example.com/" + id + ".html",
		SourceCollection: "test",
		ProductName:      name,
		Status:           status,
		FetchedAt:        1700000000,
	}
}

func TestMergeNamedBeatsUnnamed(t *testing.T) {
	t.Parallel()

	unnamed := outcome("p1", "", pipeline.StatusNoNameFound)
	named := outcome("p1", "Diamond Ring Aurora", pipeline.StatusSlugHeuristic)

	merged := Merge([]pipeline.OutcomeRecord{unnamed, named})
	require.Len(t, merged, 1)
	require.Equal(t, named, merged[0])
}

func TestMergeSuccessBeatsOtherNamed(t *testing.T) {
	t.Parallel()

	slug := outcome("p1", "Ring Splendore", pipeline.StatusSlugHeuristic)
	success := outcome("p1", "Splendore Ring Rose", pipeline.StatusSuccess)

	merged := Merge([]pipeline.OutcomeRecord{slug, success})
	require.Len(t, merged, 1)
	require.Equal(t, success, merged[0])
}

// Whenever the priority rule decides the winner, the result must not depend on
// the completion order the scheduler happened to produce.
func TestMergeOrderInvariantForDecidedPriorities(t *testing.T) {
	t.Parallel()

	success := outcome("p1", "Splendore Ring Rose", pipeline.StatusSuccess)
	slug := outcome("p1", "Ring Splendore", pipeline.StatusSlugHeuristic)
	unnamed := outcome("p1", "", pipeline.StatusNoHTML)

	permutations := [][]pipeline.OutcomeRecord{
		{success, slug, unnamed},
		{success, unnamed, slug},
		{slug, success, unnamed},
		{slug, unnamed, success},
		{unnamed, success, slug},
		{unnamed, slug, success},
	}
	for i, perm := range permutations {
		merged := Merge(perm)
		require.Lenf(t, merged, 1, "permutation %d", i)
		require.Equalf(t, success, merged[0], "permutation %d", i)
	}
}

func TestMergeFirstSeenWinsOnTies(t *testing.T) {
	t.Parallel()

	first := outcome("p1", "", pipeline.StatusNoHTML)
	second := outcome("p1", "", pipeline.StatusNonProductPage)

	merged := Merge([]pipeline.OutcomeRecord{first, second})
	require.Len(t, merged, 1)
	require.Equal(t, first, merged[0])
}

func TestMergePreservesFirstSeenOrderAcrossIDs(t *testing.T) {
	t.Parallel()

	merged := Merge([]pipeline.OutcomeRecord{
		outcome("p2", "Band Celine", pipeline.StatusSuccess),
		outcome("p1", "", pipeline.StatusNoHTML),
		outcome("p3", "Hoop Sophia", pipeline.StatusSuccess),
		outcome("p1", "Ring Aurora", pipeline.StatusSuccess),
	})
	require.Len(t, merged, 3)
	require.Equal(t, "p2", merged[0].ProductID)
	require.Equal(t, "p1", merged[1].ProductID)
	require.Equal(t, "p3", merged[2].ProductID)
	require.Equal(t, "Ring Aurora", merged[1].ProductName)
}

func TestMergeDropsRecordsWithoutProductID(t *testing.T) {
	t.Parallel()

	merged := Merge([]pipeline.OutcomeRecord{
		outcome("", "Orphan Name", pipeline.StatusSuccess),
		outcome("p1", "Ring Aurora", pipeline.StatusSuccess),
	})
	require.Len(t, merged, 1)
	require.Equal(t, "p1", merged[0].ProductID)
}

func TestMergeEmptyInput(t *testing.T) {
	t.Parallel()

	require.Nil(t, Merge(nil))
	require.Nil(t, Merge([]pipeline.OutcomeRecord{}))
}
