// Package dataset implements the HUD data ingest pipeline. Each dataset
// downloads a source file, parses it, and bulk-upserts into Postgres, with
// runs recorded in the sync_log table.
package dataset

import (
	"context"
	"time"

	"github.com/rentbench/fmr-cli/internal/db"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

// Cadence describes how often a dataset is updated upstream.
type Cadence string

const (
	Weekly    Cadence = "weekly"
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Annual    Cadence = "annual"
)

// SyncResult holds the outcome of a dataset sync.
type SyncResult struct {
	RowsSynced int64          `json:"rows_synced"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Dataset defines the interface each ingest source must implement.
type Dataset interface {
	// Name returns the unique identifier for this dataset (e.g., "fmr").
	Name() string

	// Table returns the primary target table (e.g., "fmr_county").
	Table() string

	// Cadence returns how often this dataset is updated upstream.
	Cadence() Cadence

	// ShouldRun decides if this dataset needs syncing given the current time
	// and the time of the last successful sync (nil if never synced).
	ShouldRun(now time.Time, lastSync *time.Time) bool

	// Sync performs the actual download, parse, and load into Postgres.
	// tempDir is a working directory for temporary files.
	Sync(ctx context.Context, pool db.Pool, f fetcher.Fetcher, tempDir string) (*SyncResult, error)
}
