package tasks

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExportJSONRoundTrip(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create("a", "amazon", "bicycle"))
	store.MarkRunning("a")

	records := []Record{
		{"title": "first", "price": 9.99},
		{"title": "second", "rating": float64(4)},
		{"title": "third", "tags": []any{"x", "y"}},
	}
	store.MarkCompleted("a", records)

	blob, err := store.ExportJSON("a")
	require.NoError(t, err)

	var export JSONExport
	require.NoError(t, json.Unmarshal(blob, &export))
	require.Equal(t, "a", export.TaskID)
	require.Equal(t, 3, export.TotalCount)
	require.False(t, export.ExportTime.IsZero())

	// same records in the same order
	require.Len(t, export.Results, 3)
	require.Equal(t, "first", export.Results[0]["title"])
	require.Equal(t, "second", export.Results[1]["title"])
	require.Equal(t, "third", export.Results[2]["title"])
	require.Equal(t, 9.99, export.Results[0]["price"])
}

func TestExportJSONEmptyResults(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create("a", "amazon", ""))
	store.MarkRunning("a")
	store.MarkCompleted("a", nil)

	blob, err := store.ExportJSON("a")
	require.NoError(t, err)

	var export JSONExport
	require.NoError(t, json.Unmarshal(blob, &export))
	require.Equal(t, 0, export.TotalCount)
	require.NotNil(t, export.Results)
}

func TestExportCSVUnionOfKeys(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create("a", "amazon", ""))
	store.MarkRunning("a")
	store.MarkCompleted("a", []Record{
		{"title": "first", "price": 9.99},
		{"title": "second", "rating": float64(4), "in_stock": true},
		{"title": "third", "dims": map[string]any{"w": float64(2)}},
	})

	blob, err := store.ExportCSV("a")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(blob))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// header is the sorted union of all keys
	require.Equal(t, []string{"dims", "in_stock", "price", "rating", "title"}, rows[0])

	// missing fields render as empty cells, not missing columns
	require.Equal(t, []string{"", "", "9.99", "", "first"}, rows[1])
	require.Equal(t, []string{"", "true", "", "4", "second"}, rows[2])

	// non-scalar cells are their JSON text
	require.Equal(t, `{"w":2}`, rows[3][0])
	require.Equal(t, "third", rows[3][4])
}

func TestExportCSVNoData(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create("a", "amazon", ""))
	store.MarkRunning("a")
	store.MarkCompleted("a", nil)

	_, err := store.ExportCSV("a")
	require.ErrorIs(t, err, ErrNoData)
}

func TestExportPreconditions(t *testing.T) {
	store := NewStore()

	_, err := store.ExportJSON("unknown")
	require.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, store.Create("a", "amazon", ""))
	_, err = store.ExportCSV("a")
	var notReady NotReadyError
	require.ErrorAs(t, err, &notReady)
	require.Equal(t, StatusPending, notReady.Status)
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 5, 20, 13, 45, 30, 0, time.UTC)

	require.Equal(
		t, "mountain-bike-24_20240520_134530.csv",
		ExportFilename("Mountain Bike 24\"", "csv", at),
	)
	require.Equal(
		t, "export_20240520_134530.json",
		ExportFilename("   ", "json", at),
	)
}
