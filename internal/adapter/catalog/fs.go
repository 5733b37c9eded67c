// Package catalog resolves the candidate snapshot files for a client from
// the HD model output directory tree.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

// snapshotFileRe matches one exported snapshot file and captures its run
// timestamp key, e.g. "2024030106.dfs0.csv".
var snapshotFileRe = regexp.MustCompile(`^(\d{10})\.dfs0\.csv$`)

// FS is a filesystem-backed snapshot catalog. Snapshots for a client live
// under <root>/<clientID>/, one file per model run, named by the run key.
type FS struct {
	root string
}

// NewFS creates a catalog rooted at the HD model output directory.
func NewFS(root string) *FS {
	return &FS{root: root}
}

// Lookup returns the key→path mapping of every snapshot file present for the
// client. The mapping carries no ordering; selection decides that. Files that
// do not look like snapshot exports (logs, temp files) are ignored. Only a
// file that claims a run-key name participates in the pipeline.
func (c *FS) Lookup(ctx context.Context, clientID string) (map[domain.SnapshotKey]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.root, clientID)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup for %q: %w", clientID, err)
	}

	entries := make(map[domain.SnapshotKey]string)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := snapshotFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		entries[domain.SnapshotKey(m[1])] = filepath.Join(dir, de.Name())
	}
	return entries, nil
}
