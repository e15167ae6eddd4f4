package universe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/carbonscreen/internal/clientdata"
	"github.com/aristath/carbonscreen/internal/clients/registry"
	"github.com/rs/zerolog"
)

// LoadOptions control one load
type LoadOptions struct {
	Source     string
	RunID      string
	NoCache    bool // Skip reading the cache; a successful download is still stored
	AllowStale bool // Serve an expired cache entry when the source is unavailable
	Filters    FilterOptions
}

// Loader fetches, parses, caches and filters registry exports
type Loader struct {
	fetcher registry.Fetcher
	cache   *clientdata.Repository
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewLoader creates a loader. cache is optional - if nil, caching is disabled.
func NewLoader(fetcher registry.Fetcher, cache *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *Loader {
	if ttl <= 0 {
		ttl = clientdata.TTLRegistry
	}
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("service", "universe_loader").Logger(),
	}
}

// Load returns the filtered records of opts.Source in source order.
// Only downloads of remote sources are cached, and only after a parse that
// produced at least one record.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	kind := registry.Classify(opts.Source)
	cacheable := l.cache != nil && kind.Remote()

	entry, fromCache, stale, err := l.obtain(ctx, opts, cacheable)
	if err != nil {
		return nil, err
	}

	for _, d := range entry.Dropped {
		l.log.Warn().
			Int("line", d.Line).
			Str("project_id", d.ID).
			Str("reason", d.Reason).
			Msg("Dropped registry row")
	}

	records, filtered := ApplyFilters(entry.Records, opts.Filters)

	l.log.Info().
		Str("source", entry.Source).
		Bool("from_cache", fromCache).
		Int("parsed", len(entry.Records)).
		Int("dropped", len(entry.Dropped)).
		Int("filtered", filtered).
		Int("records", len(records)).
		Msg("Loaded project universe")

	return &LoadResult{
		Records:   records,
		Dropped:   entry.Dropped,
		Filtered:  filtered,
		Source:    entry.Source,
		FetchedAt: entry.FetchedAt,
		FromCache: fromCache,
		Stale:     stale,
		FetchRun:  entry.RunID,
	}, nil
}

func (l *Loader) obtain(ctx context.Context, opts LoadOptions, cacheable bool) (cacheEntry, bool, bool, error) {
	if cacheable && !opts.NoCache {
		var cached cacheEntry
		meta, err := l.cache.GetIfFresh(opts.Source, &cached)
		switch {
		case err == nil:
			cached.inUTC()
			l.log.Debug().
				Str("source", opts.Source).
				Time("stored_at", meta.StoredAt).
				Msg("Cache hit")
			return cached, true, false, nil
		case !errors.Is(err, clientdata.ErrCacheMiss):
			l.log.Warn().Err(err).Str("source", opts.Source).Msg("Ignoring unreadable cache entry")
		}
	}

	fetchedAt := l.now().UTC()
	data, err := l.fetcher.Fetch(ctx, opts.Source)
	if err != nil {
		if cacheable && opts.AllowStale {
			var cached cacheEntry
			if meta, cerr := l.cache.Get(opts.Source, &cached); cerr == nil {
				cached.inUTC()
				l.log.Warn().
					Err(err).
					Str("source", opts.Source).
					Time("fetched_at", cached.FetchedAt).
					Time("expired_at", meta.ExpiresAt).
					Msg("Source unavailable, using stale cached copy")
				return cached, true, true, nil
			}
		}
		return cacheEntry{}, false, false, err
	}

	parsed, err := Parse(bytes.NewReader(data))
	if err != nil {
		return cacheEntry{}, false, false, fmt.Errorf("failed to parse %s: %w", opts.Source, err)
	}
	if len(parsed.Records) == 0 {
		return cacheEntry{}, false, false, fmt.Errorf("%w: %s (%d rows dropped)", ErrNoRecords, opts.Source, len(parsed.Dropped))
	}

	entry := cacheEntry{
		Source:    opts.Source,
		FetchedAt: fetchedAt,
		RunID:     opts.RunID,
		Records:   parsed.Records,
		Dropped:   parsed.Dropped,
	}
	if cacheable {
		if err := l.cache.Store(opts.Source, entry, l.ttl); err != nil {
			l.log.Warn().Err(err).Str("source", opts.Source).Msg("Failed to cache registry export")
		}
	}
	return entry, false, false, nil
}
