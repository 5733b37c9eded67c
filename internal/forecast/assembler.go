// Package forecast assembles the rolling forecast horizon: it selects the
// snapshots inside the forward window, ingests each one, and concatenates
// them into a single master series.
package forecast

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
)

// Catalog maps a client identifier to its candidate snapshots.
type Catalog interface {
	Lookup(ctx context.Context, clientID string) (map[domain.SnapshotKey]string, error)
}

// Ingestor converts one snapshot file into a tabular time series. It must
// fail explicitly rather than return a partial record.
type Ingestor interface {
	Ingest(ctx context.Context, path string) (domain.TimeSeriesRecord, error)
}

// Assembler drives selection, ingestion, and concatenation for one client.
// It holds no mutable state between builds; independent builds may run
// concurrently as long as the collaborators tolerate it.
type Assembler struct {
	catalog     Catalog
	ingestor    Ingestor
	clientID    string
	windowDays  int
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates an Assembler for the given client. windowDays and concurrency
// fall back to sensible values when non-positive.
func New(catalog Catalog, ingestor Ingestor, clientID string, windowDays, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Assembler {
	if windowDays <= 0 {
		windowDays = domain.DefaultWindowDays
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Assembler{
		catalog:     catalog,
		ingestor:    ingestor,
		clientID:    clientID,
		windowDays:  windowDays,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// BuildForecast assembles the master series for the window starting at
// reference. It fails with domain.ErrEmptyWindow when no snapshot falls
// inside the window, with a *domain.KeyParseError on a malformed catalog key,
// and with a *domain.IngestionError if any selected file cannot be ingested.
// Catalog failures propagate unwrapped. There is no partial-success mode.
func (a *Assembler) BuildForecast(ctx context.Context, reference time.Time) (domain.MasterSeries, error) {
	start := time.Now()

	entries, err := a.catalog.Lookup(ctx, a.clientID)
	if err != nil {
		a.metrics.BuildErrors.WithLabelValues("catalog").Inc()
		return domain.MasterSeries{}, err
	}

	keys, err := domain.SelectWindow(entries, reference, a.windowDays)
	if err != nil {
		a.metrics.BuildErrors.WithLabelValues("key_parse").Inc()
		return domain.MasterSeries{}, err
	}
	if len(keys) == 0 {
		a.metrics.EmptyWindows.Inc()
		return domain.MasterSeries{}, domain.ErrEmptyWindow
	}

	a.logger.Debug("snapshots selected",
		"client", a.clientID,
		"reference", reference,
		"candidates", len(entries),
		"selected", len(keys),
	)
	a.metrics.SnapshotsSelected.Observe(float64(len(keys)))

	fragments, err := a.ingestAll(ctx, entries, keys)
	if err != nil {
		a.metrics.BuildErrors.WithLabelValues("ingest").Inc()
		return domain.MasterSeries{}, err
	}

	master, err := domain.ConcatSeries(reference, keys, fragments)
	if err != nil {
		a.metrics.BuildErrors.WithLabelValues("concat").Inc()
		return domain.MasterSeries{}, err
	}

	a.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	a.metrics.RowsAssembled.Observe(float64(len(master.Rows)))
	return master, nil
}

// ingestAll fans out over the selected keys with bounded concurrency and
// fans the fragments back in by index, so assembly order follows key order
// no matter which ingestion finishes first.
func (a *Assembler) ingestAll(ctx context.Context, entries map[domain.SnapshotKey]string, keys []domain.SnapshotKey) ([]domain.TimeSeriesRecord, error) {
	fragments := make([]domain.TimeSeriesRecord, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			record, err := a.ingestor.Ingest(gctx, entries[key])
			if err != nil {
				return &domain.IngestionError{Key: key, Err: err}
			}
			fragments[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}
