// Command gensnapshots writes a synthetic snapshot catalog for local
// development and testing. Each generated file follows the production layout,
// <root>/<client>/<YYYYMMDDHH>.dfs0.csv, with plausible hydrodynamic values.
//
// Usage:
//
//	go run ./cmd/gensnapshots \
//	  -root /tmp/catalog \
//	  -client TT_HD_BPTT_Cypre \
//	  -start 2024030106 -count 10
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

var columns = []string{"Salinity", "Temperature", "Density", "Current direction", "Current speed"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	root := flag.String("root", "", "catalog root directory")
	client := flag.String("client", "TT_HD_BPTT_Cypre", "client subdirectory to populate")
	start := flag.String("start", "", "first snapshot key (YYYYMMDDHH)")
	count := flag.Int("count", 10, "number of snapshots to generate")
	cadence := flag.Duration("cadence", 24*time.Hour, "spacing between snapshot runs")
	rows := flag.Int("rows", 24, "samples per snapshot")
	step := flag.Duration("step", time.Hour, "spacing between samples within a snapshot")
	seed := flag.Int64("seed", 1, "random seed for reproducible values")
	flag.Parse()

	if *root == "" || *start == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -root, -start")
	}

	first, err := domain.SnapshotKey(*start).Instant()
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	dir := filepath.Join(*root, *client)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	rng := rand.New(rand.NewSource(*seed))

	for i := 0; i < *count; i++ {
		runAt := first.Add(time.Duration(i) * *cadence)
		key := domain.KeyForInstant(runAt)
		path := filepath.Join(dir, string(key)+".dfs0.csv")

		if err := writeSnapshot(path, runAt, *rows, *step, rng); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s (%d rows)", path, *rows)
	}

	log.Printf("catalog ready: %d snapshots under %s", *count, dir)
	return nil
}

// writeSnapshot emits one dfs0 CSV export: a timestamp header plus the five
// hydrodynamic series, with gentle sinusoidal drift so plots look right.
func writeSnapshot(path string, runAt time.Time, rows int, step time.Duration, rng *rand.Rand) error {
	var b strings.Builder
	b.WriteString("timestamp," + strings.Join(columns, ",") + "\n")

	phase := rng.Float64() * 2 * math.Pi
	for i := 0; i < rows; i++ {
		ts := runAt.Add(time.Duration(i) * step)
		tide := math.Sin(phase + float64(i)/6)

		salinity := 34.0 + tide + rng.Float64()*0.2
		temperature := 27.0 + tide/2 + rng.Float64()*0.3
		density := 1021.5 - salinity*0.01 + rng.Float64()*0.05
		direction := math.Mod(180+tide*90+rng.Float64()*10, 360)
		speed := 0.3 + math.Abs(tide)*0.4 + rng.Float64()*0.05

		fmt.Fprintf(&b, "%s,%.3f,%.3f,%.3f,%.1f,%.3f\n",
			ts.UTC().Format("2006-01-02 15:04:05"),
			salinity, temperature, density, direction, speed)
	}

	return os.WriteFile(path, []byte(b.String()), 0o600)
}
