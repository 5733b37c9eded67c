// Package domain models hydrodynamic (HD) model snapshot output and the
// rolling forecast window assembled from it.
//
// # Snapshot files
//
// Each HD model run exports one tabular time series per client, a "snapshot".
// Snapshots are keyed by the run timestamp, lexically formatted as YYYYMMDDHH
// (zero-padded, 24-hour clock), e.g. "2024030106" for 2024-03-01 06:00 UTC.
// The key is the only metadata the pipeline trusts; catalog iteration order
// carries no meaning.
//
// Snapshot contents are a timestamp-indexed table of named numeric columns.
// The canonical HD model export carries Salinity (PSU), Temperature (°C),
// Density (kg/m³), Current direction (radians), and Current speed (m/s), but
// the pipeline is column-agnostic: it only requires that every fragment of
// one forecast agrees on the column set.
//
// # Forecast window
//
// The forward window is measured in whole days from a reference instant:
// a key is selected iff 0 < wholeDays(parsed - reference) <= N (N = 7 in
// production). The day count truncates, so a run 7 days and 1 hour ahead
// still counts as 7 whole days and is included; 8 full days ahead is not.
// Keys at or before the reference are always excluded.
//
// A malformed key aborts the whole selection with [KeyParseError]: a key
// that does not parse means the model-run publisher is misbehaving, and
// silently excluding it would shrink the forecast horizon without anyone
// noticing.
//
// # Master series
//
// [ConcatSeries] stitches the selected fragments, in ascending key order,
// into a single [MasterSeries] covering the forecast horizon. Row order
// within a fragment is preserved exactly; nothing is re-sorted. The result
// is a fresh value on every build and is never mutated by consumers.
package domain
