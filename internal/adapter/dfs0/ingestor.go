// Package dfs0 ingests HD model snapshot exports. The modelling toolchain
// writes each run's dfs0 time series out as a CSV sidecar: a header row of
// "timestamp" plus the named numeric columns, then one sample per row.
package dfs0

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

// rowTimeLayout is the sample timestamp format the exporter writes.
const rowTimeLayout = "2006-01-02 15:04:05"

// Ingestor reads one snapshot export into a TimeSeriesRecord. Any defect
// (unreadable path, bad header, unparsable sample, empty series) is a hard
// error; the ingestor never returns a partial record.
type Ingestor struct{}

// NewIngestor creates a snapshot file ingestor.
func NewIngestor() *Ingestor {
	return &Ingestor{}
}

// Ingest parses the snapshot export at path.
func (ing *Ingestor) Ingest(ctx context.Context, path string) (domain.TimeSeriesRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TimeSeriesRecord{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.TimeSeriesRecord{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 0 // every row must match the header width

	header, err := r.Read()
	if err != nil {
		return domain.TimeSeriesRecord{}, fmt.Errorf("read snapshot header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "timestamp") {
		return domain.TimeSeriesRecord{}, fmt.Errorf("snapshot header %v: want timestamp plus at least one series column", header)
	}

	columns := make([]string, len(header)-1)
	for i, name := range header[1:] {
		columns[i] = strings.TrimSpace(name)
	}

	var rows []domain.Row
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.TimeSeriesRecord{}, fmt.Errorf("read snapshot line %d: %w", line, err)
		}

		ts, err := time.ParseInLocation(rowTimeLayout, strings.TrimSpace(record[0]), time.UTC)
		if err != nil {
			return domain.TimeSeriesRecord{}, fmt.Errorf("snapshot line %d: bad timestamp %q: %w", line, record[0], err)
		}

		values := make([]float64, len(columns))
		for i, field := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return domain.TimeSeriesRecord{}, fmt.Errorf("snapshot line %d: column %q: bad value %q", line, columns[i], field)
			}
			values[i] = v
		}

		rows = append(rows, domain.Row{Timestamp: ts, Values: values})
	}

	if len(rows) == 0 {
		return domain.TimeSeriesRecord{}, errors.New("snapshot contains no samples")
	}

	return domain.TimeSeriesRecord{Columns: columns, Rows: rows}, nil
}
