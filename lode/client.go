// Package lode stores narration results in Lode.
//
// Report artifacts are written as plain files at Hive-partitioned paths under
// reports/. Run summaries are written as JSONL records to the "narrator"
// dataset, partitioned by day, run_id and record_kind, so that the latest run
// can be queried back without scanning report files.
package lode

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"
)

// DatasetID is the Lode dataset holding run records.
const DatasetID = "narrator"

// partitionKeys is the Hive layout of the run dataset.
var partitionKeys = []string{"day", "run_id", "record_kind"}

// DeriveDay computes the partition day from a run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds the partition keys for one run.
type Config struct {
	// RunID is the partition key for the run identifier.
	RunID string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
}

// LodeWriter writes report files and run records for a single run.
type LodeWriter struct {
	config  Config
	dataset lode.Dataset

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewLodeWriter creates a writer with filesystem storage rooted at root.
func NewLodeWriter(cfg Config, root string) (*LodeWriter, error) {
	return NewLodeWriterWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeWriterWithFactory creates a writer with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeWriterWithFactory(cfg Config, factory lode.StoreFactory) (*LodeWriter, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("lode writer: run ID is required")
	}
	if cfg.Day == "" {
		cfg.Day = DeriveDay(time.Now())
	}

	ds, err := NewRunDataset(factory)
	if err != nil {
		return nil, WrapInitError(err, DatasetID)
	}

	return &LodeWriter{
		config:       cfg,
		dataset:      ds,
		storeFactory: factory,
	}, nil
}

// Config returns the writer's partition keys.
func (w *LodeWriter) Config() Config {
	return w.config
}

// PutFile writes a report file at the run's Hive path.
// The store is created on first use.
func (w *LodeWriter) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}

	store, err := w.getOrCreateStore()
	if err != nil {
		return WrapInitError(fmt.Errorf("file write store init failed: %w", err), DatasetID)
	}

	path := w.FilePath(filename)
	return WrapWriteError(store.Put(ctx, path, bytes.NewReader(data)), path)
}

// WriteRun appends a run record to the run dataset.
func (w *LodeWriter) WriteRun(ctx context.Context, rec RunRecord) error {
	record := toRunRecordMap(rec, w.config)
	if _, err := w.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, DatasetID+"/run_id="+w.config.RunID)
	}
	return nil
}

// FilePath computes the Hive-partitioned path for a report file.
// Format: reports/run_id=<run>/day=<day>/<filename>
func (w *LodeWriter) FilePath(filename string) string {
	return fmt.Sprintf("reports/run_id=%s/day=%s/%s", w.config.RunID, w.config.Day, filename)
}

// Close releases writer resources.
func (w *LodeWriter) Close() error {
	return nil
}

func (w *LodeWriter) getOrCreateStore() (lode.Store, error) {
	w.storeOnce.Do(func() {
		w.store, w.storeErr = w.storeFactory()
	})
	return w.store, w.storeErr
}

var (
	_ FileWriter = (*LodeWriter)(nil)
	_ RunWriter  = (*LodeWriter)(nil)
)
