package lode

import "time"

// RecordKindRun is the record_kind of a run summary.
const RecordKindRun = "run"

// RunRecord summarizes one played script.
type RunRecord struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Name        string    `json:"name" yaml:"name"`
	Status      string    `json:"status" yaml:"status"`
	ReportFile  string    `json:"report_file" yaml:"report_file"`
	DurationMs  int64     `json:"duration_ms" yaml:"duration_ms"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`

	// Step counts by status
	Steps   int64 `json:"steps_total" yaml:"steps_total"`
	Passed  int64 `json:"passed_total" yaml:"passed_total"`
	Failed  int64 `json:"failed_total" yaml:"failed_total"`
	Broken  int64 `json:"broken_total" yaml:"broken_total"`
	Skipped int64 `json:"skipped_total" yaml:"skipped_total"`

	// Narration counters
	Wraps    int64 `json:"wraps_total" yaml:"wraps_total"`
	Closes   int64 `json:"closes_total" yaml:"closes_total"`
	Recorded int64 `json:"recorded_total" yaml:"recorded_total"`
	Cleared  int64 `json:"cleared_total" yaml:"cleared_total"`
	Flushed  int64 `json:"flushed_total" yaml:"flushed_total"`
}

// toRunRecordMap converts a RunRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any carrying the partition keys.
func toRunRecordMap(rec RunRecord, cfg Config) map[string]any {
	runID := rec.RunID
	if runID == "" {
		runID = cfg.RunID
	}
	return map[string]any{
		"record_kind":     RecordKindRun,
		"day":             cfg.Day,
		"run_id":          runID,
		"name":            rec.Name,
		"status":          rec.Status,
		"report_file":     rec.ReportFile,
		"duration_ms":     rec.DurationMs,
		"completed_at":    rec.CompletedAt.UTC().Format(time.RFC3339Nano),
		"steps_total":     rec.Steps,
		"passed_total":    rec.Passed,
		"failed_total":    rec.Failed,
		"broken_total":    rec.Broken,
		"skipped_total":   rec.Skipped,
		"wraps_total":     rec.Wraps,
		"closes_total":    rec.Closes,
		"recorded_total":  rec.Recorded,
		"cleared_total":   rec.Cleared,
		"flushed_total":   rec.Flushed,
	}
}

// fromRunRecordMap is the inverse of toRunRecordMap. Numbers may come back as
// float64 after a JSONL round trip.
func fromRunRecordMap(m map[string]any) RunRecord {
	completedAt, _ := time.Parse(time.RFC3339Nano, toString(m["completed_at"]))
	return RunRecord{
		RunID:       toString(m["run_id"]),
		Name:        toString(m["name"]),
		Status:      toString(m["status"]),
		ReportFile:  toString(m["report_file"]),
		DurationMs:  toInt64(m["duration_ms"]),
		CompletedAt: completedAt,
		Steps:       toInt64(m["steps_total"]),
		Passed:      toInt64(m["passed_total"]),
		Failed:      toInt64(m["failed_total"]),
		Broken:      toInt64(m["broken_total"]),
		Skipped:     toInt64(m["skipped_total"]),
		Wraps:       toInt64(m["wraps_total"]),
		Closes:      toInt64(m["closes_total"]),
		Recorded:    toInt64(m["recorded_total"]),
		Cleared:     toInt64(m["cleared_total"]),
		Flushed:     toInt64(m["flushed_total"]),
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
