package domain

import (
	"time"
)

// KeyLayout is the fixed run-timestamp format of a snapshot key: year, month,
// day, hour, zero-padded, 24-hour clock (YYYYMMDDHH).
const KeyLayout = "2006010215"

// SnapshotKey is the opaque token a catalog uses to label one model run,
// e.g. "2024030106". Keys are unique within one catalog lookup.
type SnapshotKey string

// Instant decodes the run timestamp a key encodes, in UTC.
// A key that does not parse unambiguously is a *KeyParseError.
func (k SnapshotKey) Instant() (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, string(k), time.UTC)
	if err != nil {
		return time.Time{}, &KeyParseError{Key: k, Err: err}
	}
	return t, nil
}

// KeyForInstant formats an instant as a snapshot key. Inverse of
// [SnapshotKey.Instant] for whole-hour instants.
func KeyForInstant(t time.Time) SnapshotKey {
	return SnapshotKey(t.UTC().Format(KeyLayout))
}
