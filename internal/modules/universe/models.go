// Package universe loads the project universe: it fetches a registry export,
// parses it into ProjectRecords, accounts for every dropped row, and applies
// the configured eligibility filters.
package universe

import (
	"errors"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
)

// Sentinel errors for whole-file problems. Row-level problems never error;
// they become DroppedRow entries.
var (
	ErrNoHeader      = errors.New("registry export has no header row")
	ErrMissingColumn = errors.New("registry export is missing a required column")
	ErrNoRecords     = errors.New("registry export contains no valid records")
)

// DroppedRow records a source row the parser could not accept
type DroppedRow struct {
	Line   int    `json:"line" msgpack:"line"`
	ID     string `json:"project_id" msgpack:"project_id"`
	Reason string `json:"reason" msgpack:"reason"`
}

// ParseResult is the output of Parse, in source order
type ParseResult struct {
	Records []domain.ProjectRecord
	Dropped []DroppedRow
}

// LoadResult is the output of Loader.Load
type LoadResult struct {
	Records   []domain.ProjectRecord `json:"-"`
	Dropped   []DroppedRow           `json:"dropped"`
	Filtered  int                    `json:"filtered"`
	Source    string                 `json:"source"`
	FetchedAt time.Time              `json:"fetched_at"`
	FromCache bool                   `json:"from_cache"`
	Stale     bool                   `json:"stale"`
	FetchRun  string                 `json:"fetch_run_id,omitempty"` // Run that downloaded the data
}

// cacheEntry is the parsed table persisted by the cache
type cacheEntry struct {
	Source    string                 `msgpack:"source"`
	FetchedAt time.Time              `msgpack:"fetched_at"`
	RunID     string                 `msgpack:"run_id"`
	Records   []domain.ProjectRecord `msgpack:"records"`
	Dropped   []DroppedRow           `msgpack:"dropped"`
}

// inUTC restores the UTC location parsed records carry. msgpack decodes
// timestamps in time.Local, which shifts calendar dates west of UTC.
func (e *cacheEntry) inUTC() {
	e.FetchedAt = e.FetchedAt.UTC()
	for i := range e.Records {
		r := &e.Records[i]
		r.RegistrationDate = r.RegistrationDate.UTC()
		r.CreditingStart = r.CreditingStart.UTC()
		r.CreditingEnd = r.CreditingEnd.UTC()
	}
}
