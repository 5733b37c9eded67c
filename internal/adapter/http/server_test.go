package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterhttp "github.com/tidecast/hydro-forecast-etl/internal/adapter/http"
	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) CheckReadiness(_ context.Context) error { return s.err }

type stubSource struct {
	series domain.MasterSeries
	ok     bool
}

func (s *stubSource) Latest() (domain.MasterSeries, bool) { return s.series, s.ok }

func newServer(ready error, source *stubSource) *adapterhttp.Server {
	if source == nil {
		source = &stubSource{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return adapterhttp.NewServer(":0", "TT_HD_BPTT_Cypre", &stubChecker{err: ready}, source, logger)
}

func TestHealthz(t *testing.T) {
	srv := newServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz_Ready(t *testing.T) {
	srv := newServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestReadyz_NotReady(t *testing.T) {
	srv := newServer(errors.New("no forecast has been assembled yet"), nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, 503, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "no forecast")
}

func TestForecast_NoneAssembledYet(t *testing.T) {
	srv := newServer(nil, &stubSource{ok: false})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/forecast", nil))

	assert.Equal(t, 404, rec.Code)
}

func TestForecast_ReturnsLatest(t *testing.T) {
	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	series := domain.MasterSeries{
		Reference: reference,
		BuiltAt:   reference.Add(time.Minute),
		Keys:      []domain.SnapshotKey{"2024030106", "2024030206"},
		Columns:   []string{"Salinity", "Temperature"},
		Rows: []domain.Row{
			{Timestamp: reference.Add(30 * time.Hour), Values: []float64{34.5, 27.1}},
		},
	}
	srv := newServer(nil, &stubSource{series: series, ok: true})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/forecast", nil))

	require.Equal(t, 200, rec.Code)

	var body struct {
		ClientID string   `json:"client_id"`
		Keys     []string `json:"snapshot_keys"`
		Columns  []string `json:"columns"`
		Rows     []struct {
			Values []float64 `json:"values"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TT_HD_BPTT_Cypre", body.ClientID)
	assert.Equal(t, []string{"2024030106", "2024030206"}, body.Keys)
	assert.Equal(t, []string{"Salinity", "Temperature"}, body.Columns)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, []float64{34.5, 27.1}, body.Rows[0].Values)
}

func TestMetricsRouteRegistered(t *testing.T) {
	srv := newServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, 404, rec.Code)
}
