// Command forecastcheck runs one forecast build against a snapshot catalog
// and validates the assembled master series: window bounds, key ordering,
// column consistency, and row shape. Intended for verifying a catalog share
// before pointing the service at it.
//
// Usage:
//
//	go run ./cmd/forecastcheck \
//	  -root /data/WaterForecastTT \
//	  -client TT_HD_BPTT_Cypre \
//	  -reference 2024030100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tidecast/hydro-forecast-etl/internal/adapter/catalog"
	"github.com/tidecast/hydro-forecast-etl/internal/adapter/dfs0"
	"github.com/tidecast/hydro-forecast-etl/internal/domain"
	"github.com/tidecast/hydro-forecast-etl/internal/forecast"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	root := flag.String("root", "", "catalog root directory")
	client := flag.String("client", "TT_HD_BPTT_Cypre", "client subdirectory to check")
	reference := flag.String("reference", "", "reference instant as YYYYMMDDHH (default: now)")
	windowDays := flag.Int("window-days", domain.DefaultWindowDays, "forecast horizon in days")
	concurrency := flag.Int("concurrency", 4, "parallel snapshot ingestions")
	flag.Parse()

	if *root == "" {
		flag.Usage()
		os.Exit(1)
	}

	ref := time.Now().UTC()
	if *reference != "" {
		parsed, err := domain.SnapshotKey(*reference).Instant()
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -reference: %v\n", err)
			os.Exit(1)
		}
		ref = parsed
	}

	if code := run(*root, *client, ref, *windowDays, *concurrency); code != 0 {
		os.Exit(code)
	}
}

func run(root, client string, reference time.Time, windowDays, concurrency int) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assembler := forecast.New(
		catalog.NewFS(root),
		dfs0.NewIngestor(),
		client,
		windowDays,
		concurrency,
		logger,
		observability.NewMetricsForTesting(),
	)

	fmt.Println("=== Forecast Catalog Check ===")
	fmt.Printf("catalog: %s  client: %s  reference: %s  window: %dd\n\n",
		root, client, reference.Format(time.RFC3339), windowDays)

	series, err := assembler.BuildForecast(context.Background(), reference)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyWindow) {
			fmt.Fprintf(os.Stderr, "FAIL: no snapshots fall inside the forecast window\n")
			return 1
		}
		fmt.Fprintf(os.Stderr, "FATAL: build failed: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateWindowBounds(series, reference, windowDays),
		validateKeyOrdering(series),
		validateSeriesShape(series),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
	}

	fmt.Printf("\nAssembled: %d snapshots, %d columns, %d rows\n",
		len(series.Keys), len(series.Columns), len(series.Rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// validateWindowBounds checks every selected key decodes to an instant whose
// whole-day distance from the reference lies in (0, windowDays].
func validateWindowBounds(series domain.MasterSeries, reference time.Time, windowDays int) *phase {
	p := &phase{name: "window bounds"}
	for _, key := range series.Keys {
		when, err := key.Instant()
		if err != nil {
			p.errorf("key %s: %v", key, err)
			continue
		}
		elapsed := when.Sub(reference)
		if elapsed <= 0 {
			p.errorf("key %s is not ahead of the reference", key)
			continue
		}
		days := int(elapsed / (24 * time.Hour))
		if days < 1 || days > windowDays {
			p.errorf("key %s is %d whole days ahead, outside (0, %d]", key, days, windowDays)
		}
	}
	return p
}

// validateKeyOrdering checks keys are strictly ascending by decoded instant.
func validateKeyOrdering(series domain.MasterSeries) *phase {
	p := &phase{name: "key ordering"}
	var prev time.Time
	for i, key := range series.Keys {
		when, err := key.Instant()
		if err != nil {
			p.errorf("key %s: %v", key, err)
			continue
		}
		if i > 0 && !when.After(prev) {
			p.errorf("key %s does not sort after its predecessor", key)
		}
		prev = when
	}
	return p
}

// validateSeriesShape checks the row grid matches the column set.
func validateSeriesShape(series domain.MasterSeries) *phase {
	p := &phase{name: "series shape"}
	if len(series.Columns) == 0 {
		p.errorf("no columns")
	}
	if len(series.Rows) == 0 {
		p.errorf("no rows")
	}
	for i, row := range series.Rows {
		if len(row.Values) != len(series.Columns) {
			p.errorf("row %d has %d values, want %d", i, len(row.Values), len(series.Columns))
		}
		if row.Timestamp.IsZero() {
			p.errorf("row %d has a zero timestamp", i)
		}
	}
	return p
}
