package domain

import (
	"sort"
	"time"
)

// DefaultWindowDays is the production forecast horizon.
const DefaultWindowDays = 7

// SelectWindow filters and orders the snapshot keys of entries that fall
// inside the forward window: strictly after reference, at most days whole
// days ahead. The day count truncates sub-day remainders, so the right edge
// is inclusive through "days days + 23:59" ahead; exactly days*24h ahead is
// included.
//
// The returned keys are sorted ascending by decoded run timestamp, never by
// string order or map iteration order. Identical inputs always produce
// identical output.
//
// Selection fails closed: the first key that does not parse aborts the batch
// with a *KeyParseError, regardless of whether that key would have fallen
// inside the window.
func SelectWindow(entries map[SnapshotKey]string, reference time.Time, days int) ([]SnapshotKey, error) {
	type candidate struct {
		key  SnapshotKey
		when time.Time
	}

	selected := make([]candidate, 0, len(entries))
	for key := range entries {
		when, err := key.Instant()
		if err != nil {
			return nil, err
		}

		elapsed := when.Sub(reference)
		if elapsed <= 0 {
			continue
		}
		wholeDays := int(elapsed / (24 * time.Hour))
		if wholeDays < 1 || wholeDays > days {
			continue
		}
		selected = append(selected, candidate{key: key, when: when})
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].when.Before(selected[j].when)
	})

	keys := make([]SnapshotKey, len(selected))
	for i, c := range selected {
		keys[i] = c.key
	}
	return keys, nil
}
