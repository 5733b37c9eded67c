package domain

import (
	"fmt"
	"time"
)

// Row is one sample of a tabular time series: a timestamp and one value per
// column, in column order.
type Row struct {
	Timestamp time.Time `json:"ts"`
	Values    []float64 `json:"values"`
}

// TimeSeriesRecord is the tabular time series ingested from one snapshot
// file. It is read-only to the assembler.
type TimeSeriesRecord struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// MasterSeries is the ordered concatenation of per-snapshot series covering
// the full forecast horizon. It is built fresh on every pipeline run and is
// treated as an immutable snapshot result by consumers.
//
// BuiltAt is stamped from the package clock, so rebuilding with the same
// reference and catalog is byte-for-byte reproducible only under a pinned
// clock (see SetClock); everything else is a pure function of the inputs.
type MasterSeries struct {
	Reference time.Time     `json:"reference"`
	BuiltAt   time.Time     `json:"built_at"`
	Keys      []SnapshotKey `json:"snapshot_keys"`
	Columns   []string      `json:"columns"`
	Rows      []Row         `json:"rows"`
}

// ConcatSeries concatenates fragments into a MasterSeries. keys and fragments
// are parallel slices already in ascending key order; row order within each
// fragment is preserved exactly.
//
// Every fragment must carry the column set of the first one. A disagreeing
// fragment is reported as an *IngestionError against its key: the file was
// readable but not compatible with the rest of the horizon.
func ConcatSeries(reference time.Time, keys []SnapshotKey, fragments []TimeSeriesRecord) (MasterSeries, error) {
	if len(keys) != len(fragments) {
		return MasterSeries{}, fmt.Errorf("concat series: %d keys but %d fragments", len(keys), len(fragments))
	}
	if len(fragments) == 0 {
		return MasterSeries{}, ErrEmptyWindow
	}

	columns := fragments[0].Columns
	total := 0
	for i, frag := range fragments {
		if !sameColumns(columns, frag.Columns) {
			return MasterSeries{}, &IngestionError{
				Key: keys[i],
				Err: fmt.Errorf("columns %v do not match horizon columns %v", frag.Columns, columns),
			}
		}
		total += len(frag.Rows)
	}

	rows := make([]Row, 0, total)
	for _, frag := range fragments {
		rows = append(rows, frag.Rows...)
	}

	return MasterSeries{
		Reference: reference,
		BuiltAt:   clock.Now().UTC(),
		Keys:      append([]SnapshotKey(nil), keys...),
		Columns:   append([]string(nil), columns...),
		Rows:      rows,
	}, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
