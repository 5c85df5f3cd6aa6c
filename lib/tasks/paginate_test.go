package tasks

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func completedStore(t *testing.T, id string, n int) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.Create(id, "amazon", "bicycle"))
	store.MarkRunning(id)

	records := make([]Record, n)
	for i := range records {
		records[i] = Record{"index": i}
	}
	store.MarkCompleted(id, records)
	return store
}

func TestPageSlicing(t *testing.T) {
	store := completedStore(t, "a", 25)

	page, err := store.Page("a", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 10)
	require.Equal(t, 1, page.CurrentPage)
	require.Equal(t, 25, page.TotalItems)
	require.Equal(t, 3, page.TotalPages)
	require.True(t, page.HasNext)
	require.False(t, page.HasPrevious)
	require.Equal(t, 0, page.Records[0]["index"])

	page, err = store.Page("a", 3, 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 5)
	require.False(t, page.HasNext)
	require.True(t, page.HasPrevious)
	require.Equal(t, 20, page.Records[0]["index"])
}

func TestPageClampsOutOfRange(t *testing.T) {
	store := completedStore(t, "a", 5)

	page, err := store.Page("a", 999999, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Records, 5)
	require.False(t, page.HasNext)

	page, err = store.Page("a", -3, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.CurrentPage)

	// page size is clamped too instead of erroring
	page, err = store.Page("a", 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.PageSize)
	require.Len(t, page.Records, 1)
}

func TestPageTotals(t *testing.T) {
	for _, tc := range []struct {
		n, size, pages int
	}{
		{0, 10, 1},
		{5, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{25, 1, 25},
	} {
		t.Run(fmt.Sprintf("n=%d size=%d", tc.n, tc.size), func(t *testing.T) {
			store := completedStore(t, "a", tc.n)

			total := 0
			for p := 1; ; p++ {
				page, err := store.Page("a", p, tc.size)
				require.NoError(t, err)
				require.Equal(t, tc.pages, page.TotalPages)
				total += len(page.Records)
				if !page.HasNext {
					break
				}
			}
			require.Equal(t, tc.n, total)
		})
	}
}

func TestPageIdempotence(t *testing.T) {
	store := completedStore(t, "a", 17)

	first, err := store.Page("a", 2, 5)
	require.NoError(t, err)
	second, err := store.Page("a", 2, 5)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPagePreconditions(t *testing.T) {
	store := NewStore()

	_, err := store.Page("unknown", 1, 10)
	require.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, store.Create("a", "amazon", ""))
	store.MarkRunning("a")

	_, err = store.Page("a", 1, 10)
	var notReady NotReadyError
	require.ErrorAs(t, err, &notReady)
	require.Equal(t, StatusRunning, notReady.Status)

	store.MarkFailed("a", "boom")
	_, err = store.Page("a", 1, 10)
	require.ErrorAs(t, err, &notReady)
	require.Equal(t, StatusFailed, notReady.Status)
	require.Contains(t, notReady.Error(), "boom")
}

func TestPageEmptyResults(t *testing.T) {
	store := completedStore(t, "a", 0)

	page, err := store.Page("a", 1, 10)
	require.NoError(t, err)
	require.NotNil(t, page.Records)
	require.Len(t, page.Records, 0)
	require.Equal(t, 1, page.TotalPages)
	require.Equal(t, 0, page.TotalItems)
	require.False(t, page.HasNext)
}
