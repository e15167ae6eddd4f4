package clientdata

import "time"

// TTL constants for cached registry downloads.
// These are added to the store time to calculate ExpiresAt.
const (
	TTLRegistry = 24 * time.Hour // 1 day - Registry exports refresh daily at most
	TTLMinimum  = time.Minute    // Shorter TTLs are raised to this

	// Expired entries are kept this long as a fallback for unavailable sources
	RetentionStale = 30 * 24 * time.Hour
)
