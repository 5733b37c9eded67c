package domain_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

var hdColumns = []string{"Salinity", "Temperature", "Density", "Current direction", "Current speed"}

func fragment(t *testing.T, key domain.SnapshotKey, hours int) domain.TimeSeriesRecord {
	t.Helper()
	start, err := key.Instant()
	require.NoError(t, err)

	rows := make([]domain.Row, hours)
	for i := range rows {
		rows[i] = domain.Row{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Values:    []float64{34.5, 27.1, 1022.4, 1.57, float64(i) * 0.1},
		}
	}
	return domain.TimeSeriesRecord{Columns: hdColumns, Rows: rows}
}

func TestConcatSeries_PreservesFragmentAndRowOrder(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	keys := []domain.SnapshotKey{"2024030106", "2024030206"}
	fragments := []domain.TimeSeriesRecord{
		fragment(t, "2024030106", 24),
		fragment(t, "2024030206", 24),
	}

	master, err := domain.ConcatSeries(reference, keys, fragments)
	require.NoError(t, err)

	assert.Equal(t, keys, master.Keys)
	assert.Equal(t, hdColumns, master.Columns)
	require.Len(t, master.Rows, 48)
	assert.Equal(t, fragments[0].Rows[0], master.Rows[0])
	assert.Equal(t, fragments[0].Rows[23], master.Rows[23])
	assert.Equal(t, fragments[1].Rows[0], master.Rows[24])
	assert.Equal(t, fakeClock.Now().UTC(), master.BuiltAt)

	// Rows within a fragment keep ingestion order, no re-sort.
	for i := 1; i < 24; i++ {
		assert.True(t, master.Rows[i].Timestamp.After(master.Rows[i-1].Timestamp))
	}
}

func TestConcatSeries_Deterministic(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	keys := []domain.SnapshotKey{"2024030106", "2024030206", "2024030306"}
	fragments := []domain.TimeSeriesRecord{
		fragment(t, "2024030106", 12),
		fragment(t, "2024030206", 12),
		fragment(t, "2024030306", 12),
	}

	first, err := domain.ConcatSeries(reference, keys, fragments)
	require.NoError(t, err)
	second, err := domain.ConcatSeries(reference, keys, fragments)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("rebuild mismatch (-first +second):\n%s", diff)
	}
}

func TestConcatSeries_ColumnMismatchReportsKey(t *testing.T) {
	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	keys := []domain.SnapshotKey{"2024030106", "2024030206"}
	bad := domain.TimeSeriesRecord{
		Columns: []string{"Salinity", "Temperature"},
		Rows:    []domain.Row{{Timestamp: reference, Values: []float64{34.5, 27.1}}},
	}

	_, err := domain.ConcatSeries(reference, keys, []domain.TimeSeriesRecord{
		fragment(t, "2024030106", 4),
		bad,
	})
	require.Error(t, err)

	var ingestErr *domain.IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.SnapshotKey("2024030206"), ingestErr.Key)
}

func TestConcatSeries_EmptyInputIsEmptyWindow(t *testing.T) {
	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := domain.ConcatSeries(reference, nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyWindow)
}

func TestConcatSeries_DoesNotAliasInputs(t *testing.T) {
	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	keys := []domain.SnapshotKey{"2024030106"}
	fragments := []domain.TimeSeriesRecord{fragment(t, "2024030106", 2)}

	master, err := domain.ConcatSeries(reference, keys, fragments)
	require.NoError(t, err)

	keys[0] = "mutated"
	assert.Equal(t, domain.SnapshotKey("2024030106"), master.Keys[0])
}
