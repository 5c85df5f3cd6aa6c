package tasks

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"scrapehub-backend/lib/textutil"
)

// JSONExport is the download document for the json format. Decoding it
// reproduces the stored record list in the same order.
type JSONExport struct {
	TaskID     string    `json:"task_id"`
	ExportTime time.Time `json:"export_time"`
	TotalCount int       `json:"total_count"`
	Results    []Record  `json:"results"`
}

// ExportJSON serializes a completed task's full result list plus
// provenance metadata.
func (s *Store) ExportJSON(id string) ([]byte, error) {
	task, err := s.completedTask(id)
	if err != nil {
		return nil, err
	}

	results := task.Results
	if results == nil {
		results = []Record{}
	}
	return json.MarshalIndent(JSONExport{
		TaskID:     task.ID,
		ExportTime: time.Now(),
		TotalCount: len(results),
		Results:    results,
	}, "", "  ")
}

// ExportCSV serializes a completed task's results as one header row
// (the sorted union of all record keys, records may have heterogeneous
// shapes) followed by one row per record. Missing fields render as
// empty cells, non-scalar values as their JSON text. Zero records
// yield ErrNoData rather than a header-only file.
func (s *Store) ExportCSV(id string) ([]byte, error) {
	task, err := s.completedTask(id)
	if err != nil {
		return nil, err
	}
	if len(task.Results) == 0 {
		return nil, ErrNoData
	}

	keySet := map[string]struct{}{}
	for _, record := range task.Results {
		for key := range record {
			keySet[key] = struct{}{}
		}
	}
	header := make([]string, 0, len(keySet))
	for key := range keySet {
		header = append(header, key)
	}
	sort.Strings(header)

	var buff bytes.Buffer
	w := csv.NewWriter(&buff)
	err = w.Write(header)
	if err != nil {
		return nil, err
	}
	for _, record := range task.Results {
		row := make([]string, len(header))
		for i, key := range header {
			value, ok := record[key]
			if !ok {
				continue
			}
			row[i], err = csvCell(value)
			if err != nil {
				return nil, err
			}
		}
		err = w.Write(row)
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	if w.Error() != nil {
		return nil, w.Error()
	}

	return buff.Bytes(), nil
}

func (s *Store) completedTask(id string) (Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return Task{}, err
	}
	if task.Status != StatusCompleted {
		return Task{}, NotReadyError{Status: task.Status, TaskError: task.Error}
	}
	return task, nil
}

func csvCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	default:
		text, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("serialize csv cell: %w", err)
		}
		return string(text), nil
	}
}

// ExportFilename derives a deterministic attachment filename from a
// human-readable source (usually the task's query) and a timestamp, so
// repeated exports of the same task stay time-ordered and
// distinguishable.
func ExportFilename(source, format string, now time.Time) string {
	slug := textutil.Slugify(source)
	if slug == "" {
		slug = "export"
	}
	return fmt.Sprintf("%s_%s.%s", slug, now.Format("20060102_150405"), format)
}
