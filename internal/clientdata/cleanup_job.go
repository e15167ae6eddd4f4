package clientdata

import "github.com/rs/zerolog"

// CleanupJob removes entries that expired past the stale retention window.
// It runs once per screening run before the registry is fetched.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run removes expired entries. Failures are logged and returned but never
// fatal to the caller.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteExpired(RetentionStale)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to delete expired cache entries")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Str("dir", j.repo.Dir()).
			Int("deleted", deleted).
			Msg("Cleaned up expired cache entries")
	}
	return nil
}

// Name returns the job name for logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
