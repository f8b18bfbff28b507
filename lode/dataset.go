package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRunsFound is returned when no run records exist in the dataset.
var ErrNoRunsFound = errors.New("no run records found")

// NewRunDataset opens the run dataset over factory.
// The read and write paths share the same codec and layout.
func NewRunDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(DatasetID),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// QueryLatestRun finds the most recent run record, optionally for one run ID.
func QueryLatestRun(ctx context.Context, ds lode.Dataset, runID string) (RunRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		err = WrapReadError(err, DatasetID+"/snapshots")
		// A store nothing was ever written to has no dataset directory.
		if errors.Is(err, ErrNotFound) {
			return RunRecord{}, ErrNoRunsFound
		}
		return RunRecord{}, err
	}

	// Snapshots are ordered by creation time; latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "record_kind", RecordKindRun) || !snapshotMatches(snap, "run_id", runID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return RunRecord{}, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", DatasetID, snap.ID))
		}

		// Path filtering is coarse; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindRun {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			return fromRunRecordMap(record), nil
		}
	}

	return RunRecord{}, ErrNoRunsFound
}

// snapshotMatches reports whether any file of snap lies in the key=value
// partition. An empty value matches everything.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so that
// run_id=run-1 does not match run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for part := range strings.SplitSeq(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
