package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyWindow reports that window selection produced zero snapshots.
// It is distinct from a successful-but-empty result on purpose: "no forecast
// data available right now" must never be mistaken for "forecast data exists
// but is empty" by downstream consumers.
var ErrEmptyWindow = errors.New("no snapshots inside forecast window")

// KeyParseError reports a snapshot key that does not match the YYYYMMDDHH
// format. Selection fails closed on the first malformed key.
type KeyParseError struct {
	Key SnapshotKey
	Err error
}

func (e *KeyParseError) Error() string {
	return fmt.Sprintf("parse snapshot key %q: %v", string(e.Key), e.Err)
}

func (e *KeyParseError) Unwrap() error { return e.Err }

// IngestionError reports a failure to ingest one selected snapshot. It carries
// the offending key so operators can find the broken file. A single ingestion
// failure aborts the whole build: a silently incomplete forecast is more
// dangerous than a visible failure.
type IngestionError struct {
	Key SnapshotKey
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest snapshot %q: %v", string(e.Key), e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
