// Package pipeline runs the forecast refresh loop: rebuild the master series
// on an interval, cache it for HTTP consumers, and hand it to the configured
// sinks.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
)

// Builder assembles the forecast horizon for a reference instant.
type Builder interface {
	BuildForecast(ctx context.Context, reference time.Time) (domain.MasterSeries, error)
}

// Publisher pushes a successful build to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, clientID string, series domain.MasterSeries) error
}

// Store persists a successful build.
type Store interface {
	Save(ctx context.Context, clientID string, series domain.MasterSeries) error
}

// Refresher owns the periodic rebuild of one client's forecast. Each cycle is
// an independent unit of work; the only state carried across cycles is the
// cached latest result and the readiness flag.
type Refresher struct {
	builder   Builder
	publisher Publisher // nil disables publishing
	store     Store     // nil disables persistence
	clientID  string
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	latest atomic.Pointer[domain.MasterSeries]
}

// New creates a Refresher. publisher and store may be nil when the
// corresponding sink is disabled.
func New(builder Builder, publisher Publisher, store Store, clientID string, interval time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Refresher{
		builder:   builder,
		publisher: publisher,
		store:     store,
		clientID:  clientID,
		interval:  interval,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one build has succeeded, or an
// error describing why the service is not yet ready.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no forecast has been assembled yet")
	}
	return nil
}

// Latest returns the most recently assembled master series, if any.
func (r *Refresher) Latest() (domain.MasterSeries, bool) {
	p := r.latest.Load()
	if p == nil {
		return domain.MasterSeries{}, false
	}
	return *p, true
}

// Run executes the refresh loop until the context is cancelled. The first
// build starts immediately.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresh loop started", "client", r.clientID, "interval", r.interval)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 1s, double each failed cycle, cap at
	// the refresh interval. Keeps retries brisk after a transient catalog
	// glitch without hammering a broken share.
	backoff := time.Second
	maxBackoff := r.interval

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		default:
		}

		wait := r.interval
		if err := r.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrEmptyWindow) {
				// A data condition, not an outage: nothing to retry until
				// the model publishes new runs.
				r.logger.Warn("forecast window is empty", "client", r.clientID)
			} else {
				r.logger.Error("forecast refresh failed", "client", r.clientID, "error", err)
				wait = backoff
				backoff = nextBackoff(backoff, maxBackoff)
			}
		} else {
			backoff = time.Second
		}

		if !r.sleep(ctx, wait) {
			r.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// refresh runs one build cycle against "now" and fans the result out to the
// cache and the sinks.
func (r *Refresher) refresh(ctx context.Context) error {
	reference := r.clock.Now().UTC()
	r.metrics.BuildsTotal.Inc()

	series, err := r.builder.BuildForecast(ctx, reference)
	if err != nil {
		return err
	}

	r.latest.Store(&series)
	r.ready.Store(true)
	r.logger.Info("forecast assembled",
		"client", r.clientID,
		"reference", reference,
		"fragments", len(series.Keys),
		"rows", len(series.Rows),
	)

	// Sink failures do not fail the cycle: the fresh forecast is already
	// being served, and the next cycle writes the sinks again.
	if r.store != nil {
		if err := r.store.Save(ctx, r.clientID, series); err != nil {
			r.metrics.StoreErrors.Inc()
			r.logger.Error("store save failed", "client", r.clientID, "error", err)
		} else {
			r.metrics.BuildsStored.Inc()
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, r.clientID, series); err != nil {
			r.metrics.PublishErrors.Inc()
			r.logger.Error("publish failed", "client", r.clientID, "error", err)
		} else {
			r.metrics.BuildsPublished.Inc()
		}
	}

	return nil
}

// sleep waits for d on the injected clock. Returns false if the context was
// cancelled first.
func (r *Refresher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := r.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
